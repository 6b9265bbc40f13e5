package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

// settingDef describes one editable setting key.
type settingDef struct {
	Type        models.SettingType
	Description string
	MinValue    int
}

// settingRegistry lists the keys the API accepts. Anything else is rejected.
var settingRegistry = map[string]settingDef{
	models.SettingDailyRequired:  {Type: models.SettingTypeNumber, Description: "missions required per day to qualify", MinValue: 1},
	models.SettingWeeklyRequired: {Type: models.SettingTypeNumber, Description: "missions required per week to qualify", MinValue: 1},
	models.SettingAutoApprove:    {Type: models.SettingTypeBoolean, Description: "approve submissions immediately on submit"},
	models.SettingCurrentSession: {Type: models.SettingTypeString, Description: "active camp session label"},
	models.SettingCurrentWeek:    {Type: models.SettingTypeNumber, Description: "current week of the session", MinValue: 1},
	models.SettingCurrentDay:     {Type: models.SettingTypeNumber, Description: "current day of the week", MinValue: 1},
	models.SettingDataVersion:    {Type: models.SettingTypeString, Description: "seed dataset version marker"},
}

type settingStore interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, setting *models.Setting) error
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SettingsService owns the global settings registry and its typed view.
type SettingsService struct {
	store    settingStore
	audit    auditRecorder
	defaults config.CampConfig
	logger   *zap.Logger
}

// NewSettingsService constructs the service.
func NewSettingsService(store settingStore, audit auditRecorder, defaults config.CampConfig, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{store: store, audit: audit, defaults: defaults, logger: logger}
}

func registryKeys() []string {
	keys := make([]string, 0, len(settingRegistry))
	for key := range settingRegistry {
		keys = append(keys, key)
	}
	return keys
}

// List returns every known setting with stored or default values.
func (s *SettingsService) List(ctx context.Context) ([]dto.SettingItem, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	items := []dto.SettingItem{
		{Key: models.SettingDailyRequired, Value: strconv.Itoa(resolved.DailyRequired), Type: string(models.SettingTypeNumber)},
		{Key: models.SettingWeeklyRequired, Value: strconv.Itoa(resolved.WeeklyRequired), Type: string(models.SettingTypeNumber)},
		{Key: models.SettingAutoApprove, Value: strconv.FormatBool(resolved.AutoApprove), Type: string(models.SettingTypeBoolean)},
		{Key: models.SettingCurrentSession, Value: resolved.CurrentSession, Type: string(models.SettingTypeString)},
		{Key: models.SettingCurrentWeek, Value: strconv.Itoa(resolved.CurrentWeek), Type: string(models.SettingTypeNumber)},
		{Key: models.SettingCurrentDay, Value: strconv.Itoa(resolved.CurrentDay), Type: string(models.SettingTypeNumber)},
		{Key: models.SettingDataVersion, Value: resolved.DataVersion, Type: string(models.SettingTypeString)},
	}
	for i := range items {
		if def, ok := settingRegistry[items[i].Key]; ok {
			items[i].Description = def.Description
		}
	}
	return items, nil
}

// Resolve builds the typed settings view, falling back to configured
// defaults for keys not yet persisted.
func (s *SettingsService) Resolve(ctx context.Context) (*models.SystemSettings, error) {
	stored, err := s.store.ListByKeys(ctx, registryKeys())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "load settings")
	}
	byKey := make(map[string]string, len(stored))
	for _, setting := range stored {
		byKey[setting.Key] = setting.Value
	}

	resolved := &models.SystemSettings{
		DailyRequired:  s.defaults.DefaultDailyRequired,
		WeeklyRequired: s.defaults.DefaultWeeklyRequired,
		AutoApprove:    s.defaults.AutoApprove,
		CurrentSession: "1",
		CurrentWeek:    1,
		CurrentDay:     1,
		DataVersion:    s.defaults.DataVersion,
	}
	if raw, ok := byKey[models.SettingDailyRequired]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			resolved.DailyRequired = n
		}
	}
	if raw, ok := byKey[models.SettingWeeklyRequired]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			resolved.WeeklyRequired = n
		}
	}
	if raw, ok := byKey[models.SettingAutoApprove]; ok {
		if b, err := strconv.ParseBool(raw); err == nil {
			resolved.AutoApprove = b
		}
	}
	if raw, ok := byKey[models.SettingCurrentSession]; ok && raw != "" {
		resolved.CurrentSession = raw
	}
	if raw, ok := byKey[models.SettingCurrentWeek]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			resolved.CurrentWeek = n
		}
	}
	if raw, ok := byKey[models.SettingCurrentDay]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			resolved.CurrentDay = n
		}
	}
	if raw, ok := byKey[models.SettingDataVersion]; ok && raw != "" {
		resolved.DataVersion = raw
	}
	return resolved, nil
}

// Update validates and persists one setting, recording an audit entry.
func (s *SettingsService) Update(ctx context.Context, actor *models.JWTClaims, req dto.UpdateSettingRequest) (*models.Setting, error) {
	setting, err := s.buildSetting(req, actor)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, setting); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "save setting")
	}
	s.recordAudit(ctx, actor, req.Key, req.Value)
	s.logger.Sugar().Infow("setting updated", "key", req.Key, "value", req.Value)
	return setting, nil
}

// BulkUpdate applies several setting changes in one transaction.
func (s *SettingsService) BulkUpdate(ctx context.Context, actor *models.JWTClaims, req dto.BulkUpdateSettingsRequest) error {
	if len(req.Items) == 0 {
		return apperrors.Clone(apperrors.ErrValidation, "at least one setting is required")
	}
	settings := make([]models.Setting, 0, len(req.Items))
	for _, item := range req.Items {
		setting, err := s.buildSetting(item, actor)
		if err != nil {
			return err
		}
		settings = append(settings, *setting)
	}
	if err := s.store.BulkUpsert(ctx, settings); err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "save settings")
	}
	for _, item := range req.Items {
		s.recordAudit(ctx, actor, item.Key, item.Value)
	}
	return nil
}

// StoredDataVersion reads the persisted dataset marker. A missing row means
// the database was never seeded and reports as empty; any other failure is
// surfaced so callers do not mistake an outage for a fresh install.
func (s *SettingsService) StoredDataVersion(ctx context.Context) (string, error) {
	setting, err := s.store.Get(ctx, models.SettingDataVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "read data version")
	}
	return setting.Value, nil
}

func (s *SettingsService) buildSetting(req dto.UpdateSettingRequest, actor *models.JWTClaims) (*models.Setting, error) {
	key := strings.TrimSpace(req.Key)
	def, ok := settingRegistry[key]
	if !ok {
		return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown setting key %q", key))
	}
	value := strings.TrimSpace(req.Value)
	switch def.Type {
	case models.SettingTypeNumber:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("%s must be a number", key))
		}
		if n < def.MinValue {
			return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("%s must be at least %d", key, def.MinValue))
		}
		value = strconv.Itoa(n)
	case models.SettingTypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("%s must be true or false", key))
		}
		value = strconv.FormatBool(b)
	default:
		if value == "" {
			return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("%s must not be empty", key))
		}
	}

	setting := &models.Setting{Key: key, Value: value, Type: def.Type}
	if def.Description != "" {
		desc := def.Description
		setting.Description = &desc
	}
	if actor != nil {
		updatedBy := actor.UserID
		setting.UpdatedBy = &updatedBy
	}
	return setting, nil
}

func (s *SettingsService) recordAudit(ctx context.Context, actor *models.JWTClaims, key, value string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:   models.AuditActionSettingUpdate,
		Resource: "settings",
	}
	log.ResourceID = &key
	if actor != nil {
		userID := actor.UserID
		log.UserID = &userID
	}
	if payload, err := json.Marshal(map[string]string{"key": key, "value": value}); err == nil {
		log.NewValues = payload
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("audit write failed", "action", log.Action, "error", err)
	}
}
