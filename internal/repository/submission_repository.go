package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

const submissionColumns = `id, camper_id, camper_name, bunk_name, date, missions, status,
submitted_at, approved_at, approved_by, rejected_at, edit_request_reason`

// SubmissionRepository handles persistence for daily submission records.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert stores a submission keyed by (camper_id, date). A second submit for
// the same key replaces the mission set, status and stamps of the first:
// last write wins.
func (r *SubmissionRepository) Upsert(ctx context.Context, record *models.Submission) (*models.Submission, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO submissions (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (camper_id, date)
DO UPDATE SET missions = EXCLUDED.missions, status = EXCLUDED.status,
              submitted_at = EXCLUDED.submitted_at, approved_at = EXCLUDED.approved_at,
              approved_by = EXCLUDED.approved_by, rejected_at = NULL, edit_request_reason = NULL
RETURNING %s`, submissionColumns, submissionColumns)
	var stored models.Submission
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.CamperID, record.CamperName, record.BunkName, record.Date,
		record.Missions, record.Status, record.SubmittedAt, record.ApprovedAt,
		record.ApprovedBy, record.RejectedAt, record.EditRequestReason); err != nil {
		return nil, fmt.Errorf("upsert submission: %w", err)
	}
	return &stored, nil
}

// FindByID fetches a submission by id.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindForCamperAndDate fetches the submission for a camper on a date, if any.
func (r *SubmissionRepository) FindForCamperAndDate(ctx context.Context, camperID, date string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE camper_id = $1 AND date = $2`, submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, camperID, date); err != nil {
		return nil, err
	}
	return &sub, nil
}

// HistoryForCamper returns a camper's submissions, most recent date first.
// (camper_id, date) is unique so the result carries no duplicate dates.
func (r *SubmissionRepository) HistoryForCamper(ctx context.Context, camperID string) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE camper_id = $1 ORDER BY date DESC`, submissionColumns)
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, camperID); err != nil {
		return nil, fmt.Errorf("submission history: %w", err)
	}
	return subs, nil
}

// List returns submissions matching the provided filter for admin-wide views.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.CamperID != "" {
		where = append(where, fmt.Sprintf("camper_id = $%d", len(args)+1))
		args = append(args, filter.CamperID)
	}
	if filter.BunkName != "" {
		where = append(where, fmt.Sprintf("bunk_name = $%d", len(args)+1))
		args = append(args, filter.BunkName)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != "" {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE %s
ORDER BY date %s, bunk_name, camper_name
LIMIT %d OFFSET %d`, submissionColumns, whereClause, order, size, offset)

	var rows []models.Submission
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM submissions WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return rows, total, nil
}

// MarkApproved stamps approval on a submission. The status guard makes repeat
// calls no-ops that preserve the original approved_at/approved_by values.
// Returns true when the row transitioned on this call.
func (r *SubmissionRepository) MarkApproved(ctx context.Context, id, approver string, at time.Time) (bool, error) {
	const query = `UPDATE submissions
SET status = 'approved', approved_at = $3, approved_by = $2, rejected_at = NULL
WHERE id = $1 AND status <> 'approved'`
	result, err := r.db.ExecContext(ctx, query, id, approver, at)
	if err != nil {
		return false, fmt.Errorf("approve submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("approve submission result: %w", err)
	}
	return affected > 0, nil
}

// MarkRejected records a staff rejection, returning the record to an editable
// state without deleting history.
func (r *SubmissionRepository) MarkRejected(ctx context.Context, id, approver string, at time.Time) (bool, error) {
	const query = `UPDATE submissions
SET status = 'rejected', rejected_at = $3, approved_by = $2, approved_at = NULL
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, approver, at)
	if err != nil {
		return false, fmt.Errorf("reject submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject submission result: %w", err)
	}
	return affected > 0, nil
}

// MarkEditRequested flags a submission for staff-applied edits.
func (r *SubmissionRepository) MarkEditRequested(ctx context.Context, id, reason string) (bool, error) {
	const query = `UPDATE submissions
SET status = 'edit_requested', edit_request_reason = $2
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return false, fmt.Errorf("request edit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("request edit result: %w", err)
	}
	return affected > 0, nil
}

// ApplyEdit replaces the mission set and/or date of a submission and
// re-stamps status to approved. Staff-curated edits are pre-approved.
func (r *SubmissionRepository) ApplyEdit(ctx context.Context, id string, missions pq.StringArray, date, approver string, at time.Time) (*models.Submission, error) {
	query := fmt.Sprintf(`UPDATE submissions
SET missions = $2, date = COALESCE(NULLIF($3, ''), date), status = 'approved',
    approved_at = $5, approved_by = $4, edit_request_reason = NULL, rejected_at = NULL
WHERE id = $1
RETURNING %s`, submissionColumns)
	var sub models.Submission
	if err := r.db.GetContext(ctx, &sub, query, id, missions, date, approver, at); err != nil {
		return nil, err
	}
	return &sub, nil
}

// BunkDailyTotal aggregates submission counts for a bunk and date.
type BunkDailyTotal struct {
	BunkName  string `db:"bunk_name" json:"bunk_name"`
	Total     int    `db:"total" json:"total"`
	Approved  int    `db:"approved" json:"approved"`
	Submitted int    `db:"submitted" json:"submitted"`
	Qualified int    `db:"qualified" json:"qualified"`
}

// DailyTotals summarises submission counts per bunk for a date. The
// qualified column applies the current daily threshold to each stored
// mission set, so a changed setting reclassifies past dates here too.
func (r *SubmissionRepository) DailyTotals(ctx context.Context, date string, dailyRequired int) ([]BunkDailyTotal, error) {
	const query = `SELECT bunk_name,
       COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status = 'approved') AS approved,
       COUNT(*) FILTER (WHERE status IN ('submitted', 'pending', 'edit_requested')) AS submitted,
       COUNT(*) FILTER (WHERE COALESCE(array_length(missions, 1), 0) >= $2) AS qualified
FROM submissions WHERE date = $1
GROUP BY bunk_name ORDER BY bunk_name`
	var totals []BunkDailyTotal
	if err := r.db.SelectContext(ctx, &totals, query, date, dailyRequired); err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	return totals, nil
}

// All returns every stored submission, oldest date first. Used by exports.
func (r *SubmissionRepository) All(ctx context.Context) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions ORDER BY date ASC, bunk_name, camper_name`, submissionColumns)
	var subs []models.Submission
	if err := r.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, fmt.Errorf("all submissions: %w", err)
	}
	return subs, nil
}

// ReplaceAll wipes the submissions table and inserts the provided records.
// Used by the import flow and the data-version wipe.
func (r *SubmissionRepository) ReplaceAll(ctx context.Context, records []models.Submission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submissions replace: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM submissions`); err != nil {
		return fmt.Errorf("clear submissions: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO submissions (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, submissionColumns)
	for i := range records {
		rec := &records[i]
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query,
			rec.ID, rec.CamperID, rec.CamperName, rec.BunkName, rec.Date,
			rec.Missions, rec.Status, rec.SubmittedAt, rec.ApprovedAt,
			rec.ApprovedBy, rec.RejectedAt, rec.EditRequestReason); err != nil {
			return fmt.Errorf("insert submission for %s on %s: %w", rec.CamperID, rec.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submissions replace: %w", err)
	}
	commit = true
	return nil
}
