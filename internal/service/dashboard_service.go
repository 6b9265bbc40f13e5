package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/repository"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/cache"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type dashboardSubmissions interface {
	FindForCamperAndDate(ctx context.Context, camperID, date string) (*models.Submission, error)
	HistoryForCamper(ctx context.Context, camperID string) ([]models.Submission, error)
	DailyTotals(ctx context.Context, date string, dailyRequired int) ([]repository.BunkDailyTotal, error)
}

type dashboardRoster interface {
	FindCamper(ctx context.Context, id string) (*models.CamperWithBunk, error)
	FindBunk(ctx context.Context, id string) (*models.Bunk, error)
	ListCampersForBunk(ctx context.Context, bunkID string) ([]models.Camper, error)
	ListAllCampers(ctx context.Context) ([]models.CamperWithBunk, error)
}

type dashboardMissions interface {
	List(ctx context.Context, includeInactive bool) ([]models.Mission, error)
}

type workingSetReader interface {
	Get(ctx context.Context, camperID string) ([]string, error)
}

// DashboardService assembles the three role views. Staff and admin views
// are cached in Redis for a short TTL; the camper view reads live so a
// camper sees their own submit immediately.
type DashboardService struct {
	submissions dashboardSubmissions
	roster      dashboardRoster
	missions    dashboardMissions
	working     workingSetReader
	settings    settingsResolver
	store       *cache.Store
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(
	submissions dashboardSubmissions,
	roster dashboardRoster,
	missions dashboardMissions,
	working workingSetReader,
	settings settingsResolver,
	store *cache.Store,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		submissions: submissions,
		roster:      roster,
		missions:    missions,
		working:     working,
		settings:    settings,
		store:       store,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// CamperView builds the camper home dashboard for one date.
func (s *DashboardService) CamperView(ctx context.Context, actor *models.JWTClaims, camperID, date string) (*dto.CamperDashboardResponse, error) {
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != camperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only view their own dashboard")
	}
	camper, err := s.roster.FindCamper(ctx, camperID)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "camper not found")
	}
	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	sub, err := s.submissions.FindForCamperAndDate(ctx, camperID, date)
	if err != nil {
		sub = nil
	}
	working, err := s.working.Get(ctx, camperID)
	if err != nil {
		working = nil
	}
	history, err := s.submissions.HistoryForCamper(ctx, camperID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	catalog, err := s.missions.List(ctx, false)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	from, to, err := WeekBounds(date)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	if working == nil {
		working = []string{}
	}
	return &dto.CamperDashboardResponse{
		Camper: models.IdentityInfo{
			ID:       camper.ID,
			Name:     camper.Name,
			Role:     models.RoleCamper,
			BunkID:   camper.BunkID,
			BunkName: camper.BunkName,
		},
		Date:           date,
		Submission:     sub,
		WorkingSet:     working,
		Today:          EvaluateDay(sub, len(working), resolved.DailyRequired),
		Weekly:         EvaluateWeek(history, from, to, resolved.DailyRequired, resolved.WeeklyRequired),
		History:        history,
		MissionCatalog: catalog,
	}, nil
}

// StaffView builds the bunk review dashboard for one date.
func (s *DashboardService) StaffView(ctx context.Context, actor *models.JWTClaims, bunkID, date string) (*dto.StaffDashboardResponse, error) {
	if actor != nil && actor.Role == models.RoleStaff && actor.BunkID != bunkID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "staff may only view their own bunk")
	}

	key := fmt.Sprintf("dash:staff:%s:%s", bunkID, date)
	cached := &dto.StaffDashboardResponse{}
	if hit, err := s.store.GetJSON(ctx, key, cached); err == nil && hit {
		return cached, nil
	}

	bunk, err := s.roster.FindBunk(ctx, bunkID)
	if err != nil {
		return nil, apperrors.Clone(apperrors.ErrNotFound, "bunk not found")
	}
	campers, err := s.roster.ListCampersForBunk(ctx, bunkID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]dto.StaffCamperRow, 0, len(campers))
	for _, camper := range campers {
		sub, err := s.submissions.FindForCamperAndDate(ctx, camper.ID, date)
		if err != nil {
			sub = nil
		}
		workingCount := 0
		if sub == nil {
			if working, err := s.working.Get(ctx, camper.ID); err == nil {
				workingCount = len(working)
			}
		}
		rows = append(rows, dto.StaffCamperRow{
			CamperID:   camper.ID,
			CamperName: camper.Name,
			Submission: sub,
			Today:      EvaluateDay(sub, workingCount, resolved.DailyRequired),
		})
	}

	view := &dto.StaffDashboardResponse{
		BunkID:   bunk.ID,
		BunkName: bunk.DisplayName,
		Date:     date,
		Campers:  rows,
	}
	if err := s.store.SetJSON(ctx, key, view, s.cacheTTL); err != nil {
		s.logger.Sugar().Warnw("dashboard cache write failed", "key", key, "error", err)
	}
	return view, nil
}

// AdminView builds the camp-wide rollup for one date.
func (s *DashboardService) AdminView(ctx context.Context, date string) (*dto.AdminDashboardResponse, error) {
	key := "dash:admin:" + date
	cached := &dto.AdminDashboardResponse{}
	if hit, err := s.store.GetJSON(ctx, key, cached); err == nil && hit {
		return cached, nil
	}

	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.submissions.DailyTotals(ctx, date, resolved.DailyRequired)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	campers, err := s.roster.ListAllCampers(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}

	view := &dto.AdminDashboardResponse{
		Date:         date,
		TotalCampers: len(campers),
		Bunks:        make([]dto.AdminBunkSummary, 0, len(totals)),
		Settings:     *resolved,
	}
	for _, total := range totals {
		view.TotalSubmitted += total.Submitted
		view.TotalApproved += total.Approved
		view.TotalQualified += total.Qualified
		view.Bunks = append(view.Bunks, dto.AdminBunkSummary{
			BunkName:  total.BunkName,
			Total:     total.Total,
			Approved:  total.Approved,
			Submitted: total.Submitted,
			Qualified: total.Qualified,
		})
	}
	if err := s.store.SetJSON(ctx, key, view, s.cacheTTL); err != nil {
		s.logger.Sugar().Warnw("dashboard cache write failed", "key", key, "error", err)
	}
	return view, nil
}

// InvalidateDate drops cached staff and admin views for a date. Called
// after decisions so reviewers see fresh counts.
func (s *DashboardService) InvalidateDate(ctx context.Context, date string) {
	if err := s.store.DeletePrefix(ctx, "dash:staff:"); err != nil {
		s.logger.Sugar().Warnw("dashboard invalidate failed", "error", err)
	}
	if err := s.store.DeletePrefix(ctx, "dash:admin:"+date); err != nil {
		s.logger.Sugar().Warnw("dashboard invalidate failed", "error", err)
	}
}
