package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/service"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type rosterService interface {
	ListBunks(ctx context.Context) ([]models.Bunk, error)
	GetBunkDetail(ctx context.Context, bunkID string) (*models.BunkDetail, error)
	ListCampers(ctx context.Context) ([]models.CamperWithBunk, error)
	GetCamper(ctx context.Context, id string) (*models.CamperWithBunk, error)
	ListCredentials(ctx context.Context) ([]service.CamperCredential, error)
	ListMissions(ctx context.Context, includeInactive bool) ([]models.Mission, error)
	SetMissionActive(ctx context.Context, id string, active bool) (*models.Mission, error)
}

// RosterHandler serves bunk, camper and mission catalog endpoints.
type RosterHandler struct {
	roster rosterService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(roster rosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// ListBunks godoc
// @Summary List bunks
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.Bunk}
// @Router /bunks [get]
func (h *RosterHandler) ListBunks(c *gin.Context) {
	bunks, err := h.roster.ListBunks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bunks, nil)
}

// GetBunk godoc
// @Summary Bunk detail with staff and campers
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "bunk id"
// @Success 200 {object} response.Envelope{data=models.BunkDetail}
// @Router /bunks/{id} [get]
func (h *RosterHandler) GetBunk(c *gin.Context) {
	detail, err := h.roster.GetBunkDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListCampers godoc
// @Summary Camp-wide camper roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]models.CamperWithBunk}
// @Router /campers [get]
func (h *RosterHandler) ListCampers(c *gin.Context) {
	campers, err := h.roster.ListCampers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, campers, nil)
}

// GetCamper godoc
// @Summary Single camper
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Success 200 {object} response.Envelope{data=models.CamperWithBunk}
// @Router /campers/{id} [get]
func (h *RosterHandler) GetCamper(c *gin.Context) {
	camper, err := h.roster.GetCamper(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, camper, nil)
}

// ListCredentials godoc
// @Summary Camper access codes for distribution
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=[]service.CamperCredential}
// @Router /admin/credentials [get]
func (h *RosterHandler) ListCredentials(c *gin.Context) {
	creds, err := h.roster.ListCredentials(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, creds, nil)
}

// ListMissions godoc
// @Summary Mission catalog
// @Tags missions
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "include deactivated missions"
// @Success 200 {object} response.Envelope{data=[]models.Mission}
// @Router /missions [get]
func (h *RosterHandler) ListMissions(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.DefaultQuery("include_inactive", "false"))
	missions, err := h.roster.ListMissions(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, missions, nil)
}

type setMissionActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetMissionActive godoc
// @Summary Toggle a mission's active flag
// @Tags missions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "mission id"
// @Param payload body setMissionActiveRequest true "active flag"
// @Success 200 {object} response.Envelope{data=models.Mission}
// @Router /missions/{id}/active [patch]
func (h *RosterHandler) SetMissionActive(c *gin.Context) {
	var req setMissionActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "active flag is required"))
		return
	}
	mission, err := h.roster.SetMissionActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mission, nil)
}
