package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type rosterStore interface {
	ListBunks(ctx context.Context) ([]models.Bunk, error)
	FindBunk(ctx context.Context, id string) (*models.Bunk, error)
	ListStaffForBunk(ctx context.Context, bunkID string) ([]models.Staff, error)
	ListCampersForBunk(ctx context.Context, bunkID string) ([]models.Camper, error)
	ListAllCampers(ctx context.Context) ([]models.CamperWithBunk, error)
	FindCamper(ctx context.Context, id string) (*models.CamperWithBunk, error)
}

type missionStore interface {
	List(ctx context.Context, includeInactive bool) ([]models.Mission, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Mission, error)
}

// CamperCredential pairs a camper with the access code handed out by
// staff. Exposed only on the admin credentials endpoint.
type CamperCredential struct {
	CamperID string `json:"camper_id"`
	Name     string `json:"name"`
	BunkName string `json:"bunk_name"`
	Code     string `json:"code"`
}

// RosterService serves the static bunk, camper and mission reference data.
type RosterService struct {
	roster   rosterStore
	missions missionStore
	logger   *zap.Logger
}

// NewRosterService constructs the service.
func NewRosterService(roster rosterStore, missions missionStore, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{roster: roster, missions: missions, logger: logger}
}

// ListBunks returns every bunk.
func (s *RosterService) ListBunks(ctx context.Context) ([]models.Bunk, error) {
	bunks, err := s.roster.ListBunks(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return bunks, nil
}

// GetBunkDetail returns a bunk with its staff and camper rosters.
func (s *RosterService) GetBunkDetail(ctx context.Context, bunkID string) (*models.BunkDetail, error) {
	bunk, err := s.roster.FindBunk(ctx, bunkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "bunk not found")
		}
		return nil, apperrors.FromError(err)
	}
	staff, err := s.roster.ListStaffForBunk(ctx, bunkID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	campers, err := s.roster.ListCampersForBunk(ctx, bunkID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return &models.BunkDetail{Bunk: *bunk, Staff: staff, Campers: campers}, nil
}

// ListCampers returns the camp-wide camper roster.
func (s *RosterService) ListCampers(ctx context.Context) ([]models.CamperWithBunk, error) {
	campers, err := s.roster.ListAllCampers(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return campers, nil
}

// GetCamper fetches a single camper with bunk metadata.
func (s *RosterService) GetCamper(ctx context.Context, id string) (*models.CamperWithBunk, error) {
	camper, err := s.roster.FindCamper(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "camper not found")
		}
		return nil, apperrors.FromError(err)
	}
	return camper, nil
}

// ListCredentials returns the access codes for distribution to campers.
// Admin only; codes never appear in regular roster responses.
func (s *RosterService) ListCredentials(ctx context.Context) ([]CamperCredential, error) {
	campers, err := s.roster.ListAllCampers(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	creds := make([]CamperCredential, 0, len(campers))
	for _, camper := range campers {
		creds = append(creds, CamperCredential{
			CamperID: camper.ID,
			Name:     camper.Name,
			BunkName: camper.BunkName,
			Code:     camper.Code,
		})
	}
	return creds, nil
}

// ListMissions returns the catalog, hiding inactive entries unless asked.
func (s *RosterService) ListMissions(ctx context.Context, includeInactive bool) ([]models.Mission, error) {
	missions, err := s.missions.List(ctx, includeInactive)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return missions, nil
}

// SetMissionActive toggles a mission in or out of the active catalog.
// Deactivating never deletes: stored submissions keep referencing the id.
func (s *RosterService) SetMissionActive(ctx context.Context, id string, active bool) (*models.Mission, error) {
	mission, err := s.missions.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "mission not found")
		}
		return nil, apperrors.FromError(err)
	}
	s.logger.Sugar().Infow("mission toggled", "mission_id", id, "active", active)
	return mission, nil
}
