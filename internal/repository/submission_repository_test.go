package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func submissionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "camper_id", "camper_name", "bunk_name", "date", "missions", "status",
		"submitted_at", "approved_at", "approved_by", "rejected_at", "edit_request_reason",
	})
}

func TestSubmissionRepositoryUpsertReturnsStoredRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`INSERT INTO submissions`).
		WillReturnRows(submissionRows().AddRow(
			"sub-1", "yoni_cotlar", "Yoni Cotlar", "Bunk Alef", "2026-07-01",
			pq.StringArray{"shacharit", "torah-study"}, "approved",
			now, now, "auto", nil, nil,
		))

	stored, err := repo.Upsert(context.Background(), &models.Submission{
		CamperID:   "yoni_cotlar",
		CamperName: "Yoni Cotlar",
		BunkName:   "Bunk Alef",
		Date:       "2026-07-01",
		Missions:   pq.StringArray{"shacharit", "torah-study"},
		Status:     models.SubmissionStatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", stored.ID)
	assert.Equal(t, models.SubmissionStatusApproved, stored.Status)
	assert.Len(t, stored.Missions, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryMarkApprovedTransitionsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "staff-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	transitioned, err := repo.MarkApproved(context.Background(), "sub-1", "staff-1", time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Second call matches no row because of the status guard.
	mock.ExpectExec(`UPDATE submissions`).
		WithArgs("sub-1", "staff-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	transitioned, err = repo.MarkApproved(context.Background(), "sub-1", "staff-1", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	status := models.SubmissionStatusSubmitted
	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE 1=1 AND bunk_name = \$1 AND status = \$2 AND date >= \$3`).
		WithArgs("Bunk Alef", status, "2026-07-01").
		WillReturnRows(submissionRows().AddRow(
			"sub-2", "mendel_katz", "Mendel Katz", "Bunk Alef", "2026-07-02",
			pq.StringArray{"chesed"}, "submitted", time.Now().UTC(), nil, nil, nil, nil,
		))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM submissions WHERE 1=1`).
		WithArgs("Bunk Alef", status, "2026-07-01").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows, total, err := repo.List(context.Background(), models.SubmissionFilter{
		BunkName: "Bunk Alef",
		Status:   &status,
		DateFrom: "2026-07-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "mendel_katz", rows[0].CamperID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryDailyTotals(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	// The qualified column compares each stored mission set against the
	// threshold passed in, so the rollup tracks setting changes.
	mock.ExpectQuery(`SELECT bunk_name.+array_length\(missions, 1\), 0\) >= \$2\) AS qualified`).
		WithArgs("2026-07-01", 3).
		WillReturnRows(sqlmock.NewRows([]string{"bunk_name", "total", "approved", "submitted", "qualified"}).
			AddRow("Bunk Alef", 4, 3, 1, 3).
			AddRow("Bunk Beis", 2, 2, 0, 1))

	totals, err := repo.DailyTotals(context.Background(), "2026-07-01", 3)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, 3, totals[0].Approved)
	assert.Equal(t, 3, totals[0].Qualified)
	assert.Equal(t, "Bunk Beis", totals[1].BunkName)
	assert.Equal(t, 1, totals[1].Qualified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryHistoryOrdersByDateDescending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSubmissionRepository(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM submissions WHERE camper_id = \$1 ORDER BY date DESC`).
		WithArgs("yoni_cotlar").
		WillReturnRows(submissionRows().
			AddRow("sub-3", "yoni_cotlar", "Yoni Cotlar", "Bunk Alef", "2026-07-03",
				pq.StringArray{"chesed"}, "approved", now, nil, nil, nil, nil).
			AddRow("sub-1", "yoni_cotlar", "Yoni Cotlar", "Bunk Alef", "2026-07-01",
				pq.StringArray{"shacharit"}, "approved", now, nil, nil, nil, nil))

	history, err := repo.HistoryForCamper(context.Background(), "yoni_cotlar")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2026-07-03", history[0].Date)
	assert.Equal(t, "2026-07-01", history[1].Date)
	assert.NoError(t, mock.ExpectationsWereMet())
}
