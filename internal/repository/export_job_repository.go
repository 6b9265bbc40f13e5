package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

const exportJobColumns = `id, requested_by, status, format, bunk_id, date_from, date_to,
file_path, download_token, expires_at, error_message, created_at, updated_at`

// ExportJobRepository tracks asynchronous export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a queued job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.ExportJobQueued
	job.CreatedAt = now
	job.UpdatedAt = now
	query := fmt.Sprintf(`INSERT INTO export_jobs (%s)
VALUES (:id, :requested_by, :status, :format, :bunk_id, :date_from, :date_to,
        :file_path, :download_token, :expires_at, :error_message, :created_at, :updated_at)`, exportJobColumns)
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID fetches a job by id.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM export_jobs WHERE id = $1`, exportJobColumns)
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a queued job into the processing state.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = 'processing', updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkCompleted records the rendered file and its signed download token.
func (r *ExportJobRepository) MarkCompleted(ctx context.Context, id, filePath, token string, expiresAt time.Time) error {
	const query = `UPDATE export_jobs
SET status = 'completed', file_path = $2, download_token = $3, expires_at = $4, error_message = NULL, updated_at = $5
WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath, token, expiresAt, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE export_jobs SET status = 'failed', error_message = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, message, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest jobs for the admin exports view.
func (r *ExportJobRepository) ListRecent(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM export_jobs ORDER BY created_at DESC LIMIT %d`, exportJobColumns, limit)
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}
