package dto

import "github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"

// CreateExportRequest enqueues an export job.
type CreateExportRequest struct {
	Format   string `json:"format" validate:"required,oneof=csv pdf json"`
	BunkID   string `json:"bunk_id,omitempty"`
	DateFrom string `json:"date_from,omitempty"`
	DateTo   string `json:"date_to,omitempty"`
}

// ExportJobResponse reports job status and, when completed, the download URL.
type ExportJobResponse struct {
	Job         *models.ExportJob `json:"job"`
	DownloadURL string            `json:"download_url,omitempty"`
}

// DataBundle is the full JSON export consumed by the import counterpart:
// roster, submissions and settings in one document.
type DataBundle struct {
	Version     string                  `json:"version"`
	ExportedAt  string                  `json:"exported_at"`
	Bunks       []models.Bunk           `json:"bunks"`
	Campers     []models.CamperWithBunk `json:"campers"`
	Missions    []models.Mission        `json:"missions"`
	Submissions []models.Submission     `json:"submissions"`
	Settings    []models.Setting        `json:"settings"`
}
