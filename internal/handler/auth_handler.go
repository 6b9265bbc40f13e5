package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

// AuthHandler exposes login endpoints for the two credential types.
type AuthHandler struct {
	auth authService
}

type authService interface {
	StaffLogin(ctx context.Context, req models.StaffLoginRequest) (*models.LoginResponse, error)
	CamperLogin(ctx context.Context, req models.CamperLoginRequest) (*models.LoginResponse, error)
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth authService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// StaffLogin godoc
// @Summary Staff and admin login
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body models.StaffLoginRequest true "credentials"
// @Success 200 {object} response.Envelope{data=models.LoginResponse}
// @Router /auth/staff/login [post]
func (h *AuthHandler) StaffLogin(c *gin.Context) {
	var req models.StaffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.auth.StaffLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CamperLogin godoc
// @Summary Camper login by access code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body models.CamperLoginRequest true "access code"
// @Success 200 {object} response.Envelope{data=models.LoginResponse}
// @Router /auth/camper/login [post]
func (h *AuthHandler) CamperLogin(c *gin.Context) {
	var req models.CamperLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.Request.UserAgent()

	result, err := h.auth.CamperLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Me godoc
// @Summary Current authenticated identity
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=models.IdentityInfo}
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, models.IdentityInfo{
		ID:     claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
		BunkID: claims.BunkID,
	}, nil)
}
