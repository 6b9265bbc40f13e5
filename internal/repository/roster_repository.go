package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

// RosterRepository handles persistence for the static bunk/camper roster.
// Rows change only during seeding; everything else is read-only.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListBunks returns all bunks ordered by display name.
func (r *RosterRepository) ListBunks(ctx context.Context) ([]models.Bunk, error) {
	const query = `SELECT id, display_name FROM bunks ORDER BY display_name ASC`
	var bunks []models.Bunk
	if err := r.db.SelectContext(ctx, &bunks, query); err != nil {
		return nil, fmt.Errorf("list bunks: %w", err)
	}
	return bunks, nil
}

// FindBunk fetches a single bunk by id.
func (r *RosterRepository) FindBunk(ctx context.Context, id string) (*models.Bunk, error) {
	const query = `SELECT id, display_name FROM bunks WHERE id = $1`
	var bunk models.Bunk
	if err := r.db.GetContext(ctx, &bunk, query, id); err != nil {
		return nil, err
	}
	return &bunk, nil
}

// ListStaffForBunk returns staff users assigned to a bunk.
func (r *RosterRepository) ListStaffForBunk(ctx context.Context, bunkID string) ([]models.Staff, error) {
	const query = `SELECT id, full_name AS name, bunk_id, role FROM users
WHERE bunk_id = $1 AND role IN ('STAFF', 'ADMIN') ORDER BY full_name ASC`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, bunkID); err != nil {
		return nil, fmt.Errorf("list staff for bunk: %w", err)
	}
	return staff, nil
}

// ListCampersForBunk returns campers registered to a bunk.
func (r *RosterRepository) ListCampersForBunk(ctx context.Context, bunkID string) ([]models.Camper, error) {
	const query = `SELECT id, name, bunk_id, code FROM campers WHERE bunk_id = $1 ORDER BY name ASC`
	var campers []models.Camper
	if err := r.db.SelectContext(ctx, &campers, query, bunkID); err != nil {
		return nil, fmt.Errorf("list campers for bunk: %w", err)
	}
	return campers, nil
}

// ListAllCampers returns every camper with bunk metadata.
func (r *RosterRepository) ListAllCampers(ctx context.Context) ([]models.CamperWithBunk, error) {
	const query = `SELECT c.id, c.name, c.bunk_id, c.code, b.display_name AS bunk_name
FROM campers c JOIN bunks b ON b.id = c.bunk_id ORDER BY b.display_name, c.name`
	var campers []models.CamperWithBunk
	if err := r.db.SelectContext(ctx, &campers, query); err != nil {
		return nil, fmt.Errorf("list campers: %w", err)
	}
	return campers, nil
}

// FindCamper fetches a camper by id.
func (r *RosterRepository) FindCamper(ctx context.Context, id string) (*models.CamperWithBunk, error) {
	const query = `SELECT c.id, c.name, c.bunk_id, c.code, b.display_name AS bunk_name
FROM campers c JOIN bunks b ON b.id = c.bunk_id WHERE c.id = $1`
	var camper models.CamperWithBunk
	if err := r.db.GetContext(ctx, &camper, query, id); err != nil {
		return nil, err
	}
	return &camper, nil
}

// FindCamperByCode resolves a camper from an access code, exact match.
func (r *RosterRepository) FindCamperByCode(ctx context.Context, code string) (*models.CamperWithBunk, error) {
	const query = `SELECT c.id, c.name, c.bunk_id, c.code, b.display_name AS bunk_name
FROM campers c JOIN bunks b ON b.id = c.bunk_id WHERE c.code = $1`
	var camper models.CamperWithBunk
	if err := r.db.GetContext(ctx, &camper, query, code); err != nil {
		return nil, err
	}
	return &camper, nil
}

// ReplaceRoster wipes and reinserts bunks and campers within one transaction.
// Used by the seeding flow when the data version marker changes.
func (r *RosterRepository) ReplaceRoster(ctx context.Context, bunks []models.Bunk, campers []models.Camper) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster replace: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campers`); err != nil {
		return fmt.Errorf("clear campers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM bunks`); err != nil {
		return fmt.Errorf("clear bunks: %w", err)
	}

	const insertBunk = `INSERT INTO bunks (id, display_name) VALUES (:id, :display_name)`
	for i := range bunks {
		if _, err := tx.NamedExecContext(ctx, insertBunk, bunks[i]); err != nil {
			return fmt.Errorf("insert bunk %s: %w", bunks[i].ID, err)
		}
	}

	const insertCamper = `INSERT INTO campers (id, name, bunk_id, code) VALUES (:id, :name, :bunk_id, :code)`
	for i := range campers {
		if _, err := tx.NamedExecContext(ctx, insertCamper, campers[i]); err != nil {
			return fmt.Errorf("insert camper %s: %w", campers[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster replace: %w", err)
	}
	commit = true
	return nil
}
