package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

// MissionRepository handles persistence for the mission catalog.
type MissionRepository struct {
	db *sqlx.DB
}

// NewMissionRepository constructs the repository.
func NewMissionRepository(db *sqlx.DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// List returns catalog missions, optionally including inactive entries.
func (r *MissionRepository) List(ctx context.Context, includeInactive bool) ([]models.Mission, error) {
	query := `SELECT id, title, type, icon, is_mandatory, is_active FROM missions`
	if !includeInactive {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY type, title`
	var missions []models.Mission
	if err := r.db.SelectContext(ctx, &missions, query); err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return missions, nil
}

// ActiveIDs returns the ids of all active missions.
func (r *MissionRepository) ActiveIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM missions WHERE is_active = TRUE`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active mission ids: %w", err)
	}
	return ids, nil
}

// SetActive toggles a mission's active flag, returning the updated row.
func (r *MissionRepository) SetActive(ctx context.Context, id string, active bool) (*models.Mission, error) {
	const query = `UPDATE missions SET is_active = $2 WHERE id = $1
RETURNING id, title, type, icon, is_mandatory, is_active`
	var mission models.Mission
	if err := r.db.GetContext(ctx, &mission, query, id, active); err != nil {
		return nil, err
	}
	return &mission, nil
}

// ReplaceCatalog wipes and reinserts the mission catalog.
func (r *MissionRepository) ReplaceCatalog(ctx context.Context, missions []models.Mission) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM missions`); err != nil {
		return fmt.Errorf("clear missions: %w", err)
	}
	const insert = `INSERT INTO missions (id, title, type, icon, is_mandatory, is_active)
VALUES (:id, :title, :type, :icon, :is_mandatory, :is_active)`
	for i := range missions {
		if _, err := tx.NamedExecContext(ctx, insert, missions[i]); err != nil {
			return fmt.Errorf("insert mission %s: %w", missions[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	commit = true
	return nil
}
