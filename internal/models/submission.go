package models

import (
	"time"

	"github.com/lib/pq"
)

// SubmissionStatus tracks the approval lifecycle of a daily submission.
type SubmissionStatus string

const (
	SubmissionStatusPending       SubmissionStatus = "pending"
	SubmissionStatusSubmitted     SubmissionStatus = "submitted"
	SubmissionStatusApproved      SubmissionStatus = "approved"
	SubmissionStatusRejected      SubmissionStatus = "rejected"
	SubmissionStatusEditRequested SubmissionStatus = "edit_requested"
)

// Valid returns true when the status is a supported value.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusSubmitted, SubmissionStatusApproved,
		SubmissionStatusRejected, SubmissionStatusEditRequested:
		return true
	default:
		return false
	}
}

// Submission is a camper's dated record of completed missions.
// (camper_id, date) is the natural key: re-submitting for the same day
// overwrites the existing row rather than appending a second one.
type Submission struct {
	ID                string           `db:"id" json:"id"`
	CamperID          string           `db:"camper_id" json:"camper_id"`
	CamperName        string           `db:"camper_name" json:"camper_name"`
	BunkName          string           `db:"bunk_name" json:"bunk_name"`
	Date              string           `db:"date" json:"date"`
	Missions          pq.StringArray   `db:"missions" json:"missions"`
	Status            SubmissionStatus `db:"status" json:"status"`
	SubmittedAt       time.Time        `db:"submitted_at" json:"submitted_at"`
	ApprovedAt        *time.Time       `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy        *string          `db:"approved_by" json:"approved_by,omitempty"`
	RejectedAt        *time.Time       `db:"rejected_at" json:"rejected_at,omitempty"`
	EditRequestReason *string          `db:"edit_request_reason" json:"edit_request_reason,omitempty"`
}

// SubmissionFilter scopes admin-wide listing queries.
type SubmissionFilter struct {
	CamperID  string
	BunkName  string
	Status    *SubmissionStatus
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
	SortOrder string
}

// BulkCompleteOutcome reports per-camper results of a bulk working-set update.
// Bulk completion is not transactional: campers updated before a late
// failure keep their new working sets.
type BulkCompleteOutcome struct {
	CamperID string `json:"camper_id"`
	Applied  bool   `json:"applied"`
	Reason   string `json:"reason,omitempty"`
}
