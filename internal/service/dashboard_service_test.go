package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/repository"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type dashboardStubRoster struct{ *stubRoster }

func (s *dashboardStubRoster) ListAllCampers(_ context.Context) ([]models.CamperWithBunk, error) {
	var out []models.CamperWithBunk
	for _, camper := range s.campers {
		out = append(out, *camper)
	}
	return out, nil
}

type dashboardStubSubmissions struct {
	*stubSubmissionStore
	totals []repository.BunkDailyTotal
}

func (s *dashboardStubSubmissions) DailyTotals(_ context.Context, _ string, _ int) ([]repository.BunkDailyTotal, error) {
	return s.totals, nil
}

type stubMissionList struct{ missions []models.Mission }

func (s *stubMissionList) List(_ context.Context, includeInactive bool) ([]models.Mission, error) {
	if includeInactive {
		return s.missions, nil
	}
	var active []models.Mission
	for _, mission := range s.missions {
		if mission.IsActive {
			active = append(active, mission)
		}
	}
	return active, nil
}

func newTestDashboardService(subs *dashboardStubSubmissions, working *stubWorkingSets) *DashboardService {
	return NewDashboardService(
		subs,
		&dashboardStubRoster{newStubRoster()},
		&stubMissionList{missions: []models.Mission{
			{ID: "shacharit", Title: "Shacharis", IsActive: true},
			{ID: "torah-study", Title: "Torah Study", IsActive: true},
			{ID: "shabbat-prep", Title: "Shabbos Prep", IsActive: false},
		}},
		working,
		&stubSettings{settings: models.SystemSettings{DailyRequired: 3, WeeklyRequired: 15}},
		nil,
		0,
		nil,
	)
}

func TestCamperViewWithoutSubmission(t *testing.T) {
	working := newStubWorkingSets()
	working.sets["yoni_cotlar"] = []string{"shacharit", "torah-study"}
	svc := newTestDashboardService(&dashboardStubSubmissions{stubSubmissionStore: newStubSubmissionStore()}, working)

	view, err := svc.CamperView(context.Background(), camperClaims("yoni_cotlar"), "yoni_cotlar", "2026-07-01")
	require.NoError(t, err)

	assert.Nil(t, view.Submission)
	assert.Equal(t, QualificationNotSubmitted, view.Today.Status)
	assert.Equal(t, 2, view.Today.Count)
	assert.False(t, view.Today.Qualified)
	// Inactive missions stay off the camper's catalog.
	assert.Len(t, view.MissionCatalog, 2)
}

func TestCamperViewForbiddenForOthers(t *testing.T) {
	svc := newTestDashboardService(&dashboardStubSubmissions{stubSubmissionStore: newStubSubmissionStore()}, newStubWorkingSets())

	_, err := svc.CamperView(context.Background(), camperClaims("shmuel_weiss"), "yoni_cotlar", "2026-07-01")
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)
}

func TestStaffViewScopedToOwnBunk(t *testing.T) {
	svc := newTestDashboardService(&dashboardStubSubmissions{stubSubmissionStore: newStubSubmissionStore()}, newStubWorkingSets())

	_, err := svc.StaffView(context.Background(), staffClaims("bunk-alef"), "bunk-beis", "2026-07-01")
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrForbidden.Code, appErr.Code)

	view, err := svc.StaffView(context.Background(), staffClaims("bunk-alef"), "bunk-alef", "2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, "Bunk Alef", view.BunkName)
	require.Len(t, view.Campers, 1)
	assert.Equal(t, "yoni_cotlar", view.Campers[0].CamperID)
}

func TestAdminViewAggregatesTotals(t *testing.T) {
	subs := &dashboardStubSubmissions{
		stubSubmissionStore: newStubSubmissionStore(),
		totals: []repository.BunkDailyTotal{
			{BunkName: "Bunk Alef", Total: 8, Approved: 6, Submitted: 2, Qualified: 5},
			{BunkName: "Bunk Beis", Total: 7, Approved: 5, Submitted: 1, Qualified: 4},
		},
	}
	svc := newTestDashboardService(subs, newStubWorkingSets())

	view, err := svc.AdminView(context.Background(), "2026-07-01")
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalCampers)
	assert.Equal(t, 3, view.TotalSubmitted)
	assert.Equal(t, 11, view.TotalApproved)
	assert.Equal(t, 9, view.TotalQualified)
	require.Len(t, view.Bunks, 2)
	assert.Equal(t, 5, view.Bunks[0].Qualified)
	assert.Equal(t, 3, view.Settings.DailyRequired)
}
