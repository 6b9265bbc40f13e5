package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/service"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req service.SubmitRequest) (*models.Submission, error)
	RequestEdit(ctx context.Context, actor *models.JWTClaims, req service.RequestEditRequest) (*models.Submission, error)
	Approve(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error)
	Reject(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error)
	Edit(ctx context.Context, actor *models.JWTClaims, req service.EditSubmissionRequest) (*models.Submission, error)
	GetForCamperAndDate(ctx context.Context, actor *models.JWTClaims, camperID, date string) (*models.Submission, error)
	History(ctx context.Context, actor *models.JWTClaims, camperID string) ([]models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error)
	WorkingSet(ctx context.Context, actor *models.JWTClaims, camperID string) ([]string, error)
	UpdateWorkingSet(ctx context.Context, actor *models.JWTClaims, camperID string, add, remove []string) ([]string, error)
	BulkComplete(ctx context.Context, actor *models.JWTClaims, req service.BulkCompleteRequest) ([]models.BulkCompleteOutcome, error)
}

type dashboardInvalidator interface {
	InvalidateDate(ctx context.Context, date string)
}

// SubmissionHandler serves the daily submission lifecycle endpoints.
type SubmissionHandler struct {
	submissions submissionService
	dashboards  dashboardInvalidator
}

// NewSubmissionHandler constructs the handler. The invalidator may be nil
// when dashboards are disabled.
func NewSubmissionHandler(submissions submissionService, dashboards dashboardInvalidator) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions, dashboards: dashboards}
}

// Submit godoc
// @Summary Submit a camper's missions for one date
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SubmitRequest true "submission"
// @Success 201 {object} response.Envelope{data=models.Submission}
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, sub.Date)
	response.Created(c, sub)
}

// RequestEdit godoc
// @Summary Ask staff to amend a finalized submission
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param payload body service.RequestEditRequest true "reason"
// @Success 200 {object} response.Envelope{data=models.Submission}
// @Router /submissions/{id}/request-edit [post]
func (h *SubmissionHandler) RequestEdit(c *gin.Context) {
	var req service.RequestEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.SubmissionID = c.Param("id")
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.RequestEdit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, sub.Date)
	response.JSON(c, http.StatusOK, sub, nil)
}

// Approve godoc
// @Summary Approve a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Success 200 {object} response.Envelope{data=models.Submission}
// @Router /submissions/{id}/approve [post]
func (h *SubmissionHandler) Approve(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, sub.Date)
	response.JSON(c, http.StatusOK, sub, nil)
}

// Reject godoc
// @Summary Reject a submission
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Success 200 {object} response.Envelope{data=models.Submission}
// @Router /submissions/{id}/reject [post]
func (h *SubmissionHandler) Reject(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.Reject(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, sub.Date)
	response.JSON(c, http.StatusOK, sub, nil)
}

// Edit godoc
// @Summary Apply a staff correction to a submission
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "submission id"
// @Param payload body service.EditSubmissionRequest true "corrected missions"
// @Success 200 {object} response.Envelope{data=models.Submission}
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Edit(c *gin.Context) {
	var req service.EditSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.SubmissionID = c.Param("id")
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.Edit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidate(c, sub.Date)
	response.JSON(c, http.StatusOK, sub, nil)
}

// List godoc
// @Summary Filtered submissions across the camp
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param camper_id query string false "camper id"
// @Param bunk query string false "bunk display name"
// @Param status query string false "submission status"
// @Param date_from query string false "inclusive start date"
// @Param date_to query string false "inclusive end date"
// @Param page query int false "page"
// @Param page_size query int false "page size"
// @Success 200 {object} response.Envelope{data=[]models.Submission}
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{
		CamperID:  c.Query("camper_id"),
		BunkName:  c.Query("bunk"),
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
		SortOrder: c.Query("sort"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.SubmissionStatus(raw)
		if !status.Valid() {
			response.Error(c, apperrors.Clone(apperrors.ErrValidation, "unknown status filter"))
			return
		}
		filter.Status = &status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	rows, pagination, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// GetForDate godoc
// @Summary A camper's submission for one date
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Param date path string true "date YYYY-MM-DD"
// @Success 200 {object} response.Envelope{data=models.Submission}
// @Router /campers/{id}/submissions/{date} [get]
func (h *SubmissionHandler) GetForDate(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	sub, err := h.submissions.GetForCamperAndDate(c.Request.Context(), actor, c.Param("id"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// History godoc
// @Summary A camper's full submission history
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Success 200 {object} response.Envelope{data=[]models.Submission}
// @Router /campers/{id}/submissions [get]
func (h *SubmissionHandler) History(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	subs, err := h.submissions.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, nil)
}

// GetWorkingSet godoc
// @Summary A camper's pre-submission working set
// @Tags submissions
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Success 200 {object} response.Envelope{data=[]string}
// @Router /campers/{id}/working-set [get]
func (h *SubmissionHandler) GetWorkingSet(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	ids, err := h.submissions.WorkingSet(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

type updateWorkingSetRequest struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// UpdateWorkingSet godoc
// @Summary Add or remove missions in the working set
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "camper id"
// @Param payload body updateWorkingSetRequest true "changes"
// @Success 200 {object} response.Envelope{data=[]string}
// @Router /campers/{id}/working-set [put]
func (h *SubmissionHandler) UpdateWorkingSet(c *gin.Context) {
	var req updateWorkingSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	actor := middleware.CurrentUser(c)
	ids, err := h.submissions.UpdateWorkingSet(c.Request.Context(), actor, c.Param("id"), req.Add, req.Remove)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

// BulkComplete godoc
// @Summary Mark missions complete for several campers at once
// @Tags submissions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "bunk id"
// @Param payload body service.BulkCompleteRequest true "campers and missions"
// @Success 200 {object} response.Envelope{data=[]models.BulkCompleteOutcome}
// @Router /bunks/{id}/bulk-complete [post]
func (h *SubmissionHandler) BulkComplete(c *gin.Context) {
	var req service.BulkCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperrors.Clone(apperrors.ErrValidation, "invalid request body"))
		return
	}
	req.BunkID = c.Param("id")
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}
	actor := middleware.CurrentUser(c)
	outcomes, err := h.submissions.BulkComplete(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

func (h *SubmissionHandler) invalidate(c *gin.Context, date string) {
	if h.dashboards == nil {
		return
	}
	h.dashboards.InvalidateDate(c.Request.Context(), date)
}
