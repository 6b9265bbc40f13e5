package models

import "time"

// ExportFormat identifies supported export renderings.
type ExportFormat string

const (
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatPDF    ExportFormat = "pdf"
	ExportFormatBundle ExportFormat = "json"
)

// Valid returns true when the format is supported.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatPDF, ExportFormatBundle:
		return true
	default:
		return false
	}
}

// ExportJobStatus tracks the async export lifecycle.
type ExportJobStatus string

const (
	ExportJobQueued     ExportJobStatus = "queued"
	ExportJobProcessing ExportJobStatus = "processing"
	ExportJobCompleted  ExportJobStatus = "completed"
	ExportJobFailed     ExportJobStatus = "failed"
)

// ExportJobParams scope the dataset that gets rendered.
type ExportJobParams struct {
	Format   ExportFormat `json:"format"`
	BunkID   string       `json:"bunk_id,omitempty"`
	DateFrom string       `json:"date_from,omitempty"`
	DateTo   string       `json:"date_to,omitempty"`
}

// ExportJob records a requested export and its outcome.
type ExportJob struct {
	ID            string          `db:"id" json:"id"`
	RequestedBy   string          `db:"requested_by" json:"requested_by"`
	Status        ExportJobStatus `db:"status" json:"status"`
	Format        ExportFormat    `db:"format" json:"format"`
	BunkID        *string         `db:"bunk_id" json:"bunk_id,omitempty"`
	DateFrom      *string         `db:"date_from" json:"date_from,omitempty"`
	DateTo        *string         `db:"date_to" json:"date_to,omitempty"`
	FilePath      *string         `db:"file_path" json:"-"`
	DownloadToken *string         `db:"download_token" json:"download_token,omitempty"`
	ExpiresAt     *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Params rebuilds the job parameter view used by the renderer.
func (j *ExportJob) Params() ExportJobParams {
	params := ExportJobParams{Format: j.Format}
	if j.BunkID != nil {
		params.BunkID = *j.BunkID
	}
	if j.DateFrom != nil {
		params.DateFrom = *j.DateFrom
	}
	if j.DateTo != nil {
		params.DateTo = *j.DateTo
	}
	return params
}
