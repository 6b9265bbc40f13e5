package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type settingsService interface {
	List(ctx context.Context) ([]dto.SettingItem, error)
	Resolve(ctx context.Context) (*models.SystemSettings, error)
	Update(ctx context.Context, actor *models.JWTClaims, req dto.UpdateSettingRequest) (*models.Setting, error)
	BulkUpdate(ctx context.Context, actor *models.JWTClaims, req dto.BulkUpdateSettingsRequest) error
}

// SettingsHandler serves the global settings endpoints.
type SettingsHandler struct {
	settings settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(settings settingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// List godoc
// @Summary All settings with effective values
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]dto.SettingItem}
// @Router /settings [get]
func (h *SettingsHandler) List(c *gin.Context) {
	items, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Resolve godoc
// @Summary Typed view of the effective settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.SystemSettings}
// @Router /settings/resolved [get]
func (h *SettingsHandler) Resolve(c *gin.Context) {
	resolved, err := h.settings.Resolve(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

// Update godoc
// @Summary Update one setting
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "setting key"
// @Param payload body dto.UpdateSettingRequest true "new value"
// @Success 200 {object} response.Envelope{data=models.Setting}
// @Router /settings/{key} [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.Key = c.Param("key")
	actor := middleware.CurrentUser(c)
	setting, err := h.settings.Update(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, setting, nil)
}

// BulkUpdate godoc
// @Summary Update several settings at once
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkUpdateSettingsRequest true "updates"
// @Success 204
// @Router /settings [put]
func (h *SettingsHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	actor := middleware.CurrentUser(c)
	if err := h.settings.BulkUpdate(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
