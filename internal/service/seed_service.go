package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/seed"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type seedRoster interface {
	ReplaceRoster(ctx context.Context, bunks []models.Bunk, campers []models.Camper) error
}

type seedMissions interface {
	ReplaceCatalog(ctx context.Context, missions []models.Mission) error
}

type seedSubmissions interface {
	ReplaceAll(ctx context.Context, records []models.Submission) error
}

type seedUsers interface {
	Create(ctx context.Context, user *models.User) error
	DeleteAll(ctx context.Context) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SeedService owns the data-version handshake: when the configured dataset
// version differs from the stored marker, all submissions and working sets
// are wiped and the roster is reseeded with fresh access codes.
type SeedService struct {
	roster      seedRoster
	missions    seedMissions
	submissions seedSubmissions
	users       seedUsers
	settings    *SettingsService
	working     workingSetWiper
	cfg         config.CampConfig
	logger      *zap.Logger
}

// NewSeedService constructs the service.
func NewSeedService(
	roster seedRoster,
	missions seedMissions,
	submissions seedSubmissions,
	users seedUsers,
	settings *SettingsService,
	working workingSetWiper,
	cfg config.CampConfig,
	logger *zap.Logger,
) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{
		roster:      roster,
		missions:    missions,
		submissions: submissions,
		users:       users,
		settings:    settings,
		working:     working,
		cfg:         cfg,
		logger:      logger,
	}
}

// EnsureSeeded runs at startup. A matching stored version is a no-op; a
// mismatch (or a fresh database) rebuilds everything from the embedded
// dataset. Submissions recorded under the old version are dropped. A
// failed version read aborts startup: a transient outage must not be
// mistaken for a fresh install and trigger the wipe.
func (s *SeedService) EnsureSeeded(ctx context.Context) error {
	stored, err := s.settings.StoredDataVersion(ctx)
	if err != nil {
		return err
	}
	if stored == s.cfg.DataVersion {
		s.logger.Sugar().Infow("dataset up to date", "version", stored)
		return nil
	}

	data, err := seed.Load()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "load seed dataset")
	}
	if err := seed.AssignCodes(data.Campers); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "assign access codes")
	}

	if err := s.submissions.ReplaceAll(ctx, nil); err != nil {
		return err
	}
	if err := s.working.ClearAll(ctx); err != nil {
		s.logger.Sugar().Warnw("working set wipe failed during reseed", "error", err)
	}
	if err := s.roster.ReplaceRoster(ctx, data.Bunks, data.Campers); err != nil {
		return err
	}
	if err := s.missions.ReplaceCatalog(ctx, data.Missions); err != nil {
		return err
	}

	if err := s.users.DeleteAll(ctx); err != nil {
		return err
	}
	for _, staff := range data.Staff {
		hash, err := bcrypt.GenerateFromPassword([]byte(staff.Password), bcrypt.DefaultCost)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "hash staff password")
		}
		user := &models.User{
			Email:        staff.Email,
			PasswordHash: string(hash),
			FullName:     staff.FullName,
			Role:         models.UserRole(staff.Role),
			BunkID:       staff.BunkID,
			Active:       true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
	}

	settings := make([]models.Setting, 0, len(data.Settings)+1)
	settings = append(settings, data.Settings...)
	settings = append(settings, models.Setting{
		Key:   models.SettingDataVersion,
		Value: s.cfg.DataVersion,
		Type:  models.SettingTypeString,
	})
	if err := s.settings.store.BulkUpsert(ctx, settings); err != nil {
		return apperrors.FromError(err)
	}

	log := &models.AuditLog{Action: models.AuditActionReseed, Resource: "data"}
	version := s.cfg.DataVersion
	log.ResourceID = &version
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("audit write failed", "action", log.Action, "error", err)
	}

	s.logger.Sugar().Infow("dataset reseeded",
		"version", s.cfg.DataVersion, "previous", stored,
		"bunks", len(data.Bunks), "campers", len(data.Campers), "missions", len(data.Missions))
	for _, camper := range data.Campers {
		s.logger.Sugar().Infow("camper access code issued", "camper_id", camper.ID, "code", camper.Code)
	}
	return nil
}
