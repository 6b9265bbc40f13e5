package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

type stubSettingStore struct {
	stored map[string]models.Setting
}

func newStubSettingStore() *stubSettingStore {
	return &stubSettingStore{stored: map[string]models.Setting{}}
}

func (s *stubSettingStore) ListByKeys(_ context.Context, keys []string) ([]models.Setting, error) {
	var out []models.Setting
	for _, key := range keys {
		if setting, ok := s.stored[key]; ok {
			out = append(out, setting)
		}
	}
	return out, nil
}

func (s *stubSettingStore) Get(_ context.Context, key string) (*models.Setting, error) {
	if setting, ok := s.stored[key]; ok {
		return &setting, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubSettingStore) Upsert(_ context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now().UTC()
	s.stored[setting.Key] = *setting
	return nil
}

func (s *stubSettingStore) BulkUpsert(_ context.Context, settings []models.Setting) error {
	for _, setting := range settings {
		s.stored[setting.Key] = setting
	}
	return nil
}

func testCampDefaults() config.CampConfig {
	return config.CampConfig{
		DataVersion:           "v4",
		DefaultDailyRequired:  3,
		DefaultWeeklyRequired: 15,
		AutoApprove:           true,
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func TestResolveFallsBackToDefaults(t *testing.T) {
	svc := NewSettingsService(newStubSettingStore(), nil, testCampDefaults(), nil)

	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, resolved.DailyRequired)
	assert.Equal(t, 15, resolved.WeeklyRequired)
	assert.True(t, resolved.AutoApprove)
	assert.Equal(t, "v4", resolved.DataVersion)
}

func TestResolvePrefersStoredValues(t *testing.T) {
	store := newStubSettingStore()
	store.stored[models.SettingDailyRequired] = models.Setting{Key: models.SettingDailyRequired, Value: "5", Type: models.SettingTypeNumber}
	store.stored[models.SettingAutoApprove] = models.Setting{Key: models.SettingAutoApprove, Value: "false", Type: models.SettingTypeBoolean}
	svc := NewSettingsService(store, nil, testCampDefaults(), nil)

	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, resolved.DailyRequired)
	assert.False(t, resolved.AutoApprove)
	// Untouched keys keep their defaults.
	assert.Equal(t, 15, resolved.WeeklyRequired)
}

func TestUpdateRejectsUnknownKey(t *testing.T) {
	svc := NewSettingsService(newStubSettingStore(), nil, testCampDefaults(), nil)

	_, err := svc.Update(context.Background(), adminClaims(), dto.UpdateSettingRequest{Key: "favorite_color", Value: "blue"})
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrValidation.Code, appErr.Code)
}

func TestUpdateValidatesTypes(t *testing.T) {
	svc := NewSettingsService(newStubSettingStore(), nil, testCampDefaults(), nil)
	actor := adminClaims()

	_, err := svc.Update(context.Background(), actor, dto.UpdateSettingRequest{Key: models.SettingDailyRequired, Value: "not-a-number"})
	assert.Error(t, err)

	_, err = svc.Update(context.Background(), actor, dto.UpdateSettingRequest{Key: models.SettingDailyRequired, Value: "0"})
	assert.Error(t, err)

	_, err = svc.Update(context.Background(), actor, dto.UpdateSettingRequest{Key: models.SettingAutoApprove, Value: "maybe"})
	assert.Error(t, err)

	setting, err := svc.Update(context.Background(), actor, dto.UpdateSettingRequest{Key: models.SettingDailyRequired, Value: "4"})
	require.NoError(t, err)
	assert.Equal(t, "4", setting.Value)
	require.NotNil(t, setting.UpdatedBy)
	assert.Equal(t, "admin-1", *setting.UpdatedBy)
}

func TestBulkUpdateAllOrNothingValidation(t *testing.T) {
	store := newStubSettingStore()
	svc := NewSettingsService(store, nil, testCampDefaults(), nil)

	err := svc.BulkUpdate(context.Background(), adminClaims(), dto.BulkUpdateSettingsRequest{
		Items: []dto.UpdateSettingRequest{
			{Key: models.SettingDailyRequired, Value: "4"},
			{Key: models.SettingWeeklyRequired, Value: "bogus"},
		},
	})
	require.Error(t, err)
	// The invalid item blocks the whole batch.
	assert.Empty(t, store.stored)
}

type failingSettingStore struct{ *stubSettingStore }

func (s *failingSettingStore) Get(_ context.Context, _ string) (*models.Setting, error) {
	return nil, errors.New("connection refused")
}

func TestStoredDataVersionDistinguishesMissingFromFailure(t *testing.T) {
	svc := NewSettingsService(newStubSettingStore(), nil, testCampDefaults(), nil)

	// No stored marker reads as never seeded.
	version, err := svc.StoredDataVersion(context.Background())
	require.NoError(t, err)
	assert.Empty(t, version)

	// A store outage surfaces as an error, not an empty marker.
	svc = NewSettingsService(&failingSettingStore{newStubSettingStore()}, nil, testCampDefaults(), nil)
	_, err = svc.StoredDataVersion(context.Background())
	require.Error(t, err)
}

func TestThresholdChangeIsRetroactive(t *testing.T) {
	store := newStubSettingStore()
	svc := NewSettingsService(store, nil, testCampDefaults(), nil)

	sub := approvedSubmission("2026-07-01", "shacharit", "torah-study", "chesed")
	resolved, err := svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, EvaluateDay(&sub, 0, resolved.DailyRequired).Qualified)

	_, err = svc.Update(context.Background(), adminClaims(), dto.UpdateSettingRequest{Key: models.SettingDailyRequired, Value: "4"})
	require.NoError(t, err)

	resolved, err = svc.Resolve(context.Background())
	require.NoError(t, err)
	assert.False(t, EvaluateDay(&sub, 0, resolved.DailyRequired).Qualified)
}
