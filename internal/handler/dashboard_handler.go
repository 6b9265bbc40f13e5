package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type dashboardService interface {
	CamperView(ctx context.Context, actor *models.JWTClaims, camperID, date string) (*dto.CamperDashboardResponse, error)
	StaffView(ctx context.Context, actor *models.JWTClaims, bunkID, date string) (*dto.StaffDashboardResponse, error)
	AdminView(ctx context.Context, date string) (*dto.AdminDashboardResponse, error)
}

// DashboardHandler serves the three role dashboards.
type DashboardHandler struct {
	dashboards dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboards dashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

func queryDate(c *gin.Context) string {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	return date
}

// Camper godoc
// @Summary Camper home dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Param date query string false "date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope{data=dto.CamperDashboardResponse}
// @Router /dashboards/camper/{id} [get]
func (h *DashboardHandler) Camper(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	view, err := h.dashboards.CamperView(c.Request.Context(), actor, c.Param("id"), queryDate(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Staff godoc
// @Summary Staff bunk review dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Param id path string true "bunk id"
// @Param date query string false "date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope{data=dto.StaffDashboardResponse}
// @Router /dashboards/bunk/{id} [get]
func (h *DashboardHandler) Staff(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	view, err := h.dashboards.StaffView(c.Request.Context(), actor, c.Param("id"), queryDate(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Admin godoc
// @Summary Camp-wide admin dashboard
// @Tags dashboards
// @Produce json
// @Security BearerAuth
// @Param date query string false "date YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope{data=dto.AdminDashboardResponse}
// @Router /dashboards/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	view, err := h.dashboards.AdminView(c.Request.Context(), queryDate(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
