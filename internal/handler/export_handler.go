package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, actor *models.JWTClaims, req dto.CreateExportRequest) (*models.ExportJob, error)
	Status(ctx context.Context, jobID string) (*dto.ExportJobResponse, error)
	ListRecent(ctx context.Context, limit int) ([]models.ExportJob, error)
	OpenDownload(token string) (*os.File, string, error)
	BuildBundle(ctx context.Context) (*dto.DataBundle, error)
	Import(ctx context.Context, actor *models.JWTClaims, bundle dto.DataBundle) error
}

// ExportHandler serves export job management and signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Queue a new export job
// @Tags exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateExportRequest true "export parameters"
// @Success 201 {object} response.Envelope{data=models.ExportJob}
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	actor := middleware.CurrentUser(c)
	job, err := h.exports.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// Status godoc
// @Summary Export job status and download URL
// @Tags exports
// @Produce json
// @Security BearerAuth
// @Param id path string true "job id"
// @Success 200 {object} response.Envelope{data=dto.ExportJobResponse}
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	resp, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// List godoc
// @Summary Recent export jobs
// @Tags exports
// @Produce json
// @Security BearerAuth
// @Param limit query int false "max jobs"
// @Success 200 {object} response.Envelope{data=[]models.ExportJob}
// @Router /exports [get]
func (h *ExportHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobs, err := h.exports.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Download godoc
// @Summary Download a rendered export by signed token
// @Tags exports
// @Produce octet-stream
// @Param token query string true "signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "token is required"))
		return
	}
	file, relPath, err := h.exports.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, apperrors.ErrInternal)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(relPath)+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}

// Bundle godoc
// @Summary Synchronous full JSON export
// @Tags exports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope{data=dto.DataBundle}
// @Router /admin/backup [get]
func (h *ExportHandler) Bundle(c *gin.Context) {
	bundle, err := h.exports.BuildBundle(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bundle, nil)
}

// Import godoc
// @Summary Replace the dataset with an exported bundle
// @Tags exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.DataBundle true "bundle"
// @Success 204
// @Router /admin/backup [post]
func (h *ExportHandler) Import(c *gin.Context) {
	var bundle dto.DataBundle
	if err := c.ShouldBindJSON(&bundle); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid bundle"))
		return
	}
	actor := middleware.CurrentUser(c)
	if err := h.exports.Import(c.Request.Context(), actor, bundle); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
