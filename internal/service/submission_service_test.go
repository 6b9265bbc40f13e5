package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type stubSubmissionStore struct {
	byID        map[string]*models.Submission
	byCamperDay map[string]*models.Submission
	upserted    []*models.Submission
	approvals   int
	approveOK   bool
}

func newStubSubmissionStore() *stubSubmissionStore {
	return &stubSubmissionStore{
		byID:        map[string]*models.Submission{},
		byCamperDay: map[string]*models.Submission{},
		approveOK:   true,
	}
}

func (s *stubSubmissionStore) Upsert(_ context.Context, record *models.Submission) (*models.Submission, error) {
	stored := *record
	if stored.ID == "" {
		stored.ID = "generated-id"
	}
	s.upserted = append(s.upserted, &stored)
	s.byID[stored.ID] = &stored
	s.byCamperDay[stored.CamperID+"|"+stored.Date] = &stored
	return &stored, nil
}

func (s *stubSubmissionStore) FindByID(_ context.Context, id string) (*models.Submission, error) {
	if sub, ok := s.byID[id]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSubmissionStore) FindForCamperAndDate(_ context.Context, camperID, date string) (*models.Submission, error) {
	if sub, ok := s.byCamperDay[camperID+"|"+date]; ok {
		return sub, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSubmissionStore) HistoryForCamper(_ context.Context, camperID string) ([]models.Submission, error) {
	var out []models.Submission
	for _, sub := range s.byID {
		if sub.CamperID == camperID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (s *stubSubmissionStore) List(_ context.Context, _ models.SubmissionFilter) ([]models.Submission, int, error) {
	return nil, 0, nil
}

func (s *stubSubmissionStore) MarkApproved(_ context.Context, id, approver string, at time.Time) (bool, error) {
	sub, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	s.approvals++
	if !s.approveOK || sub.Status == models.SubmissionStatusApproved {
		return false, nil
	}
	sub.Status = models.SubmissionStatusApproved
	sub.ApprovedAt = &at
	sub.ApprovedBy = &approver
	return true, nil
}

func (s *stubSubmissionStore) MarkRejected(_ context.Context, id, approver string, at time.Time) (bool, error) {
	if sub, ok := s.byID[id]; ok {
		sub.Status = models.SubmissionStatusRejected
		sub.RejectedAt = &at
		sub.ApprovedBy = &approver
		sub.ApprovedAt = nil
		return true, nil
	}
	return false, nil
}

func (s *stubSubmissionStore) MarkEditRequested(_ context.Context, id, reason string) (bool, error) {
	if sub, ok := s.byID[id]; ok {
		sub.Status = models.SubmissionStatusEditRequested
		sub.EditRequestReason = &reason
		return true, nil
	}
	return false, nil
}

func (s *stubSubmissionStore) ApplyEdit(_ context.Context, id string, missions pq.StringArray, date, approver string, at time.Time) (*models.Submission, error) {
	sub, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	sub.Missions = missions
	if date != "" {
		sub.Date = date
	}
	sub.Status = models.SubmissionStatusApproved
	sub.ApprovedAt = &at
	sub.ApprovedBy = &approver
	return sub, nil
}

type stubRoster struct {
	campers map[string]*models.CamperWithBunk
	bunks   map[string]*models.Bunk
}

func newStubRoster() *stubRoster {
	return &stubRoster{
		campers: map[string]*models.CamperWithBunk{
			"yoni_cotlar": {
				Camper:   models.Camper{ID: "yoni_cotlar", Name: "Yoni Cotlar", BunkID: "bunk-alef"},
				BunkName: "Bunk Alef",
			},
			"shmuel_weiss": {
				Camper:   models.Camper{ID: "shmuel_weiss", Name: "Shmuel Weiss", BunkID: "bunk-beis"},
				BunkName: "Bunk Beis",
			},
		},
		bunks: map[string]*models.Bunk{
			"bunk-alef": {ID: "bunk-alef", DisplayName: "Bunk Alef"},
			"bunk-beis": {ID: "bunk-beis", DisplayName: "Bunk Beis"},
		},
	}
}

func (s *stubRoster) FindCamper(_ context.Context, id string) (*models.CamperWithBunk, error) {
	if camper, ok := s.campers[id]; ok {
		return camper, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRoster) FindBunk(_ context.Context, id string) (*models.Bunk, error) {
	if bunk, ok := s.bunks[id]; ok {
		return bunk, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubRoster) ListCampersForBunk(_ context.Context, bunkID string) ([]models.Camper, error) {
	var out []models.Camper
	for _, camper := range s.campers {
		if camper.BunkID == bunkID {
			out = append(out, camper.Camper)
		}
	}
	return out, nil
}

type stubCatalog struct{ active []string }

func (s *stubCatalog) ActiveIDs(_ context.Context) ([]string, error) {
	return s.active, nil
}

type stubWorkingSets struct {
	sets    map[string][]string
	cleared []string
}

func newStubWorkingSets() *stubWorkingSets {
	return &stubWorkingSets{sets: map[string][]string{}}
}

func (s *stubWorkingSets) Get(_ context.Context, camperID string) ([]string, error) {
	return s.sets[camperID], nil
}

func (s *stubWorkingSets) Add(_ context.Context, camperID string, missionIDs []string) error {
	s.sets[camperID] = append(s.sets[camperID], missionIDs...)
	return nil
}

func (s *stubWorkingSets) Remove(_ context.Context, camperID string, missionIDs []string) error {
	remove := map[string]bool{}
	for _, id := range missionIDs {
		remove[id] = true
	}
	var kept []string
	for _, id := range s.sets[camperID] {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	s.sets[camperID] = kept
	return nil
}

func (s *stubWorkingSets) Clear(_ context.Context, camperID string) error {
	s.cleared = append(s.cleared, camperID)
	delete(s.sets, camperID)
	return nil
}

type stubSettings struct{ settings models.SystemSettings }

func (s *stubSettings) Resolve(_ context.Context) (*models.SystemSettings, error) {
	resolved := s.settings
	return &resolved, nil
}

type stubAudit struct{ logs []*models.AuditLog }

func (s *stubAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func camperClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleCamper}
}

func staffClaims(bunkID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff, BunkID: bunkID}
}

func newTestSubmissionService(store *stubSubmissionStore, working *stubWorkingSets, autoApprove bool) (*SubmissionService, *stubAudit) {
	audit := &stubAudit{}
	svc := NewSubmissionService(
		store,
		newStubRoster(),
		&stubCatalog{active: []string{"shacharit", "torah-study", "chesed", "mincha"}},
		working,
		&stubSettings{settings: models.SystemSettings{DailyRequired: 3, WeeklyRequired: 15, AutoApprove: autoApprove}},
		audit,
		nil,
		nil,
	)
	return svc, audit
}

func TestSubmitRejectsEmptySelection(t *testing.T) {
	svc, _ := newTestSubmissionService(newStubSubmissionStore(), newStubWorkingSets(), true)

	_, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar",
		Date:     "2026-07-01",
		Missions: []string{"  ", ""},
	})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrEmptySelection.Code, appErr.Code)
}

func TestSubmitRejectsUnknownMission(t *testing.T) {
	svc, _ := newTestSubmissionService(newStubSubmissionStore(), newStubWorkingSets(), true)

	_, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar",
		Date:     "2026-07-01",
		Missions: []string{"shacharit", "made-up"},
	})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrUnknownMission.Code, appErr.Code)
}

func TestSubmitAutoApprovesAndClearsWorkingSet(t *testing.T) {
	store := newStubSubmissionStore()
	working := newStubWorkingSets()
	working.sets["yoni_cotlar"] = []string{"shacharit"}
	svc, _ := newTestSubmissionService(store, working, true)

	sub, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar",
		Date:     "2026-07-01",
		Missions: []string{"torah-study", "shacharit", "shacharit"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, sub.Status)
	require.NotNil(t, sub.ApprovedBy)
	assert.Equal(t, AutoApprover, *sub.ApprovedBy)
	// Duplicates are collapsed.
	assert.Equal(t, pq.StringArray{"shacharit", "torah-study"}, sub.Missions)
	assert.Contains(t, working.cleared, "yoni_cotlar")
	assert.Equal(t, "Bunk Alef", sub.BunkName)
}

func TestSubmitWithoutAutoApproveStaysSubmitted(t *testing.T) {
	svc, _ := newTestSubmissionService(newStubSubmissionStore(), newStubWorkingSets(), false)

	sub, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar",
		Date:     "2026-07-01",
		Missions: []string{"shacharit"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
	assert.Nil(t, sub.ApprovedAt)
}

func TestSubmitForAnotherCamperForbidden(t *testing.T) {
	svc, _ := newTestSubmissionService(newStubSubmissionStore(), newStubWorkingSets(), true)

	_, err := svc.Submit(context.Background(), camperClaims("shmuel_weiss"), SubmitRequest{
		CamperID: "yoni_cotlar",
		Date:     "2026-07-01",
		Missions: []string{"shacharit"},
	})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestResubmitSameDateOverwrites(t *testing.T) {
	store := newStubSubmissionStore()
	svc, _ := newTestSubmissionService(store, newStubWorkingSets(), true)
	actor := camperClaims("yoni_cotlar")

	_, err := svc.Submit(context.Background(), actor, SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit"},
	})
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), actor, SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit", "chesed"},
	})
	require.NoError(t, err)

	stored, err := svc.GetForCamperAndDate(context.Background(), actor, "yoni_cotlar", "2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, second.Missions, stored.Missions)
}

func TestApproveIsIdempotent(t *testing.T) {
	store := newStubSubmissionStore()
	working := newStubWorkingSets()
	svc, audit := newTestSubmissionService(store, working, false)

	sub, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit", "torah-study", "chesed"},
	})
	require.NoError(t, err)

	staff := staffClaims("bunk-alef")
	first, err := svc.Approve(context.Background(), staff, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, first.Status)
	firstStamp := first.ApprovedAt

	second, err := svc.Approve(context.Background(), staff, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, firstStamp, second.ApprovedAt)

	// Only the transitioning call is audited.
	decisionLogs := 0
	for _, log := range audit.logs {
		if log.Action == models.AuditActionApprove {
			decisionLogs++
		}
	}
	assert.Equal(t, 1, decisionLogs)
}

func TestApproveScopedToOwnBunk(t *testing.T) {
	store := newStubSubmissionStore()
	svc, _ := newTestSubmissionService(store, newStubWorkingSets(), false)

	sub, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit"},
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), staffClaims("bunk-beis"), sub.ID)
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestRequestEditThenStaffEdit(t *testing.T) {
	store := newStubSubmissionStore()
	svc, _ := newTestSubmissionService(store, newStubWorkingSets(), true)
	actor := camperClaims("yoni_cotlar")

	sub, err := svc.Submit(context.Background(), actor, SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit"},
	})
	require.NoError(t, err)

	flagged, err := svc.RequestEdit(context.Background(), actor, RequestEditRequest{
		SubmissionID: sub.ID,
		Reason:       "forgot torah study",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusEditRequested, flagged.Status)

	edited, err := svc.Edit(context.Background(), staffClaims("bunk-alef"), EditSubmissionRequest{
		SubmissionID: sub.ID,
		Missions:     []string{"shacharit", "torah-study"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusApproved, edited.Status)
	assert.Len(t, edited.Missions, 2)
}

func TestBulkCompleteSkipsApprovedAndForeignCampers(t *testing.T) {
	store := newStubSubmissionStore()
	working := newStubWorkingSets()
	svc, _ := newTestSubmissionService(store, working, true)

	// yoni already has an approved submission for the date.
	_, err := svc.Submit(context.Background(), camperClaims("yoni_cotlar"), SubmitRequest{
		CamperID: "yoni_cotlar", Date: "2026-07-01", Missions: []string{"shacharit", "torah-study", "chesed"},
	})
	require.NoError(t, err)

	outcomes, err := svc.BulkComplete(context.Background(), staffClaims("bunk-alef"), BulkCompleteRequest{
		BunkID:    "bunk-alef",
		CamperIDs: []string{"yoni_cotlar", "shmuel_weiss"},
		Missions:  []string{"chesed"},
		Date:      "2026-07-01",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Applied)
	assert.Equal(t, "submission already approved", outcomes[0].Reason)
	assert.False(t, outcomes[1].Applied)
	assert.Equal(t, "camper is not in this bunk", outcomes[1].Reason)
}

func TestBulkCompleteAppliesToWorkingSet(t *testing.T) {
	working := newStubWorkingSets()
	svc, _ := newTestSubmissionService(newStubSubmissionStore(), working, true)

	outcomes, err := svc.BulkComplete(context.Background(), staffClaims("bunk-alef"), BulkCompleteRequest{
		BunkID:    "bunk-alef",
		CamperIDs: []string{"yoni_cotlar"},
		Missions:  []string{"chesed", "mincha"},
		Date:      "2026-07-01",
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Applied)
	assert.ElementsMatch(t, []string{"chesed", "mincha"}, working.sets["yoni_cotlar"])
}
