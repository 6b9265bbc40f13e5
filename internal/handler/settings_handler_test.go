package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type stubSettingsService struct {
	items      []dto.SettingItem
	resolved   *models.SystemSettings
	updateErr  error
	lastUpdate dto.UpdateSettingRequest
}

func (s *stubSettingsService) List(_ context.Context) ([]dto.SettingItem, error) {
	return s.items, nil
}

func (s *stubSettingsService) Resolve(_ context.Context) (*models.SystemSettings, error) {
	return s.resolved, nil
}

func (s *stubSettingsService) Update(_ context.Context, _ *models.JWTClaims, req dto.UpdateSettingRequest) (*models.Setting, error) {
	s.lastUpdate = req
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Setting{Key: req.Key, Value: req.Value}, nil
}

func (s *stubSettingsService) BulkUpdate(_ context.Context, _ *models.JWTClaims, _ dto.BulkUpdateSettingsRequest) error {
	return s.updateErr
}

func newSettingsRouter(svc *stubSettingsService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	h := NewSettingsHandler(svc)
	router.GET("/settings", h.List)
	router.GET("/settings/resolved", h.Resolve)
	router.PUT("/settings/:key", h.Update)
	router.PUT("/settings", h.BulkUpdate)
	return router
}

func TestSettingsListHandler(t *testing.T) {
	svc := &stubSettingsService{items: []dto.SettingItem{
		{Key: models.SettingDailyRequired, Value: "3", Type: "NUMBER"},
	}}
	router := newSettingsRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestSettingsUpdateHandlerUsesPathKey(t *testing.T) {
	svc := &stubSettingsService{}
	router := newSettingsRouter(svc)

	body, _ := json.Marshal(map[string]string{"value": "4"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/settings/daily_required", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "daily_required", svc.lastUpdate.Key)
	assert.Equal(t, "4", svc.lastUpdate.Value)
}

func TestSettingsUpdateHandlerValidationError(t *testing.T) {
	svc := &stubSettingsService{updateErr: apperrors.Clone(apperrors.ErrValidation, "daily_required must be a number")}
	router := newSettingsRouter(svc)

	body, _ := json.Marshal(map[string]string{"value": "banana"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/settings/daily_required", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, apperrors.ErrValidation.Code, envelope.Error.Code)
}

func TestSettingsBulkUpdateNoContent(t *testing.T) {
	router := newSettingsRouter(&stubSettingsService{})

	body, _ := json.Marshal(map[string]interface{}{
		"items": []map[string]string{{"key": "daily_required", "value": "4"}},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
