package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
)

// AutoApprover is recorded as the approver on auto-approved submissions.
const AutoApprover = "auto"

type submissionStore interface {
	Upsert(ctx context.Context, record *models.Submission) (*models.Submission, error)
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	FindForCamperAndDate(ctx context.Context, camperID, date string) (*models.Submission, error)
	HistoryForCamper(ctx context.Context, camperID string) ([]models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
	MarkApproved(ctx context.Context, id, approver string, at time.Time) (bool, error)
	MarkRejected(ctx context.Context, id, approver string, at time.Time) (bool, error)
	MarkEditRequested(ctx context.Context, id, reason string) (bool, error)
	ApplyEdit(ctx context.Context, id string, missions pq.StringArray, date, approver string, at time.Time) (*models.Submission, error)
}

type camperDirectory interface {
	FindCamper(ctx context.Context, id string) (*models.CamperWithBunk, error)
	FindBunk(ctx context.Context, id string) (*models.Bunk, error)
	ListCampersForBunk(ctx context.Context, bunkID string) ([]models.Camper, error)
}

type missionCatalog interface {
	ActiveIDs(ctx context.Context) ([]string, error)
}

type workingSetStore interface {
	Get(ctx context.Context, camperID string) ([]string, error)
	Add(ctx context.Context, camperID string, missionIDs []string) error
	Remove(ctx context.Context, camperID string, missionIDs []string) error
	Clear(ctx context.Context, camperID string) error
}

type settingsResolver interface {
	Resolve(ctx context.Context) (*models.SystemSettings, error)
}

type submissionMetrics interface {
	SubmissionRecorded(status string)
	DecisionRecorded(action string)
}

// SubmitRequest carries a camper's daily mission set.
type SubmitRequest struct {
	CamperID string   `json:"camper_id" validate:"required"`
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	Missions []string `json:"missions"`
}

// RequestEditRequest asks staff to amend a finalized submission.
type RequestEditRequest struct {
	SubmissionID string `json:"-" validate:"required"`
	Reason       string `json:"reason" validate:"required,max=500"`
}

// EditSubmissionRequest is a staff-applied correction. Date is optional;
// when empty the original date is kept.
type EditSubmissionRequest struct {
	SubmissionID string   `json:"-" validate:"required"`
	Missions     []string `json:"missions" validate:"required,min=1"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// BulkCompleteRequest marks missions complete in the working sets of
// several campers at once.
type BulkCompleteRequest struct {
	BunkID    string   `json:"-" validate:"required"`
	CamperIDs []string `json:"camper_ids" validate:"required,min=1"`
	Missions  []string `json:"missions" validate:"required,min=1"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
}

// SubmissionService implements the daily submission lifecycle.
type SubmissionService struct {
	submissions submissionStore
	roster      camperDirectory
	missions    missionCatalog
	working     workingSetStore
	settings    settingsResolver
	audit       auditRecorder
	metrics     submissionMetrics
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(
	submissions submissionStore,
	roster camperDirectory,
	missions missionCatalog,
	working workingSetStore,
	settings settingsResolver,
	audit auditRecorder,
	metrics submissionMetrics,
	logger *zap.Logger,
) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		submissions: submissions,
		roster:      roster,
		missions:    missions,
		working:     working,
		settings:    settings,
		audit:       audit,
		metrics:     metrics,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Submit stores the camper's mission set for a date. Re-submitting for the
// same date overwrites the earlier record. The working set is cleared once
// the submission is stored.
func (s *SubmissionService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid submission")
	}
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != req.CamperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only submit for themselves")
	}

	missions := normalizeMissions(req.Missions)
	if len(missions) == 0 {
		return nil, apperrors.ErrEmptySelection
	}
	if err := s.checkCatalog(ctx, missions); err != nil {
		return nil, err
	}

	camper, err := s.roster.FindCamper(ctx, req.CamperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "camper not found")
		}
		return nil, apperrors.FromError(err)
	}

	resolved, err := s.settings.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.Submission{
		CamperID:    camper.ID,
		CamperName:  camper.Name,
		BunkName:    camper.BunkName,
		Date:        req.Date,
		Missions:    missions,
		Status:      models.SubmissionStatusSubmitted,
		SubmittedAt: now,
	}
	if resolved.AutoApprove {
		record.Status = models.SubmissionStatusApproved
		record.ApprovedAt = &now
		approver := AutoApprover
		record.ApprovedBy = &approver
	}

	stored, err := s.submissions.Upsert(ctx, record)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if err := s.working.Clear(ctx, camper.ID); err != nil {
		s.logger.Sugar().Warnw("working set clear failed", "camper_id", camper.ID, "error", err)
	}
	if s.metrics != nil {
		s.metrics.SubmissionRecorded(string(stored.Status))
	}
	s.logger.Sugar().Infow("submission stored",
		"camper_id", stored.CamperID, "date", stored.Date,
		"missions", len(stored.Missions), "status", stored.Status)
	return stored, nil
}

// RequestEdit flags a finalized submission for staff correction.
func (s *SubmissionService) RequestEdit(ctx context.Context, actor *models.JWTClaims, req RequestEditRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid edit request")
	}
	sub, err := s.findSubmission(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != sub.CamperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only amend their own submissions")
	}
	if _, err := s.submissions.MarkEditRequested(ctx, sub.ID, req.Reason); err != nil {
		return nil, apperrors.FromError(err)
	}
	return s.findSubmission(ctx, sub.ID)
}

// Approve finalizes a submission. Repeat approvals are no-ops that keep
// the original approval stamp.
func (s *SubmissionService) Approve(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error) {
	sub, err := s.authorizeDecision(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	transitioned, err := s.submissions.MarkApproved(ctx, sub.ID, actor.UserID, time.Now().UTC())
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	if transitioned {
		s.recordDecision(ctx, actor, models.AuditActionApprove, sub)
		if s.metrics != nil {
			s.metrics.DecisionRecorded("approve")
		}
	}
	return s.findSubmission(ctx, sub.ID)
}

// Reject returns a submission to an editable state without deleting it.
func (s *SubmissionService) Reject(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error) {
	sub, err := s.authorizeDecision(ctx, actor, submissionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.submissions.MarkRejected(ctx, sub.ID, actor.UserID, time.Now().UTC()); err != nil {
		return nil, apperrors.FromError(err)
	}
	s.recordDecision(ctx, actor, models.AuditActionReject, sub)
	if s.metrics != nil {
		s.metrics.DecisionRecorded("reject")
	}
	return s.findSubmission(ctx, sub.ID)
}

// Edit applies a staff correction to the mission set and optionally the
// date. Edited submissions come back approved.
func (s *SubmissionService) Edit(ctx context.Context, actor *models.JWTClaims, req EditSubmissionRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid edit")
	}
	sub, err := s.authorizeDecision(ctx, actor, req.SubmissionID)
	if err != nil {
		return nil, err
	}
	missions := normalizeMissions(req.Missions)
	if len(missions) == 0 {
		return nil, apperrors.ErrEmptySelection
	}
	if err := s.checkCatalog(ctx, missions); err != nil {
		return nil, err
	}
	updated, err := s.submissions.ApplyEdit(ctx, sub.ID, missions, req.Date, actor.UserID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.FromError(err)
	}
	s.recordDecision(ctx, actor, models.AuditActionEdit, updated)
	if s.metrics != nil {
		s.metrics.DecisionRecorded("edit")
	}
	return updated, nil
}

// GetForCamperAndDate returns the stored submission or nil when absent.
func (s *SubmissionService) GetForCamperAndDate(ctx context.Context, actor *models.JWTClaims, camperID, date string) (*models.Submission, error) {
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != camperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only view their own submissions")
	}
	sub, err := s.submissions.FindForCamperAndDate(ctx, camperID, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return sub, nil
}

// History lists a camper's submissions, newest first.
func (s *SubmissionService) History(ctx context.Context, actor *models.JWTClaims, camperID string) ([]models.Submission, error) {
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != camperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only view their own history")
	}
	subs, err := s.submissions.HistoryForCamper(ctx, camperID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return subs, nil
}

// List returns filtered submissions with pagination for admin views.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	rows, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, nil, apperrors.FromError(err)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// WorkingSet returns the camper's live pre-submission selections.
func (s *SubmissionService) WorkingSet(ctx context.Context, actor *models.JWTClaims, camperID string) ([]string, error) {
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != camperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only view their own progress")
	}
	ids, err := s.working.Get(ctx, camperID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	sort.Strings(ids)
	return ids, nil
}

// UpdateWorkingSet adds or removes missions from a camper's working set.
func (s *SubmissionService) UpdateWorkingSet(ctx context.Context, actor *models.JWTClaims, camperID string, add, remove []string) ([]string, error) {
	if actor != nil && actor.Role == models.RoleCamper && actor.UserID != camperID {
		return nil, apperrors.Clone(apperrors.ErrForbidden, "campers may only change their own progress")
	}
	add = normalizeMissions(add)
	if len(add) > 0 {
		if err := s.checkCatalog(ctx, add); err != nil {
			return nil, err
		}
		if err := s.working.Add(ctx, camperID, add); err != nil {
			return nil, apperrors.FromError(err)
		}
	}
	if remove = normalizeMissions(remove); len(remove) > 0 {
		if err := s.working.Remove(ctx, camperID, remove); err != nil {
			return nil, apperrors.FromError(err)
		}
	}
	return s.WorkingSet(ctx, actor, camperID)
}

// BulkComplete unions missions into the working sets of the listed campers.
// Campers whose submission for the date is already approved are skipped.
// Partial failures do not roll back campers already updated.
func (s *SubmissionService) BulkComplete(ctx context.Context, actor *models.JWTClaims, req BulkCompleteRequest) ([]models.BulkCompleteOutcome, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid bulk request")
	}
	if err := s.authorizeBunk(ctx, actor, req.BunkID); err != nil {
		return nil, err
	}
	missions := normalizeMissions(req.Missions)
	if len(missions) == 0 {
		return nil, apperrors.ErrEmptySelection
	}
	if err := s.checkCatalog(ctx, missions); err != nil {
		return nil, err
	}

	campers, err := s.roster.ListCampersForBunk(ctx, req.BunkID)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	inBunk := make(map[string]bool, len(campers))
	for _, camper := range campers {
		inBunk[camper.ID] = true
	}

	outcomes := make([]models.BulkCompleteOutcome, 0, len(req.CamperIDs))
	for _, camperID := range req.CamperIDs {
		outcome := models.BulkCompleteOutcome{CamperID: camperID}
		if !inBunk[camperID] {
			outcome.Reason = "camper is not in this bunk"
			outcomes = append(outcomes, outcome)
			continue
		}
		existing, err := s.submissions.FindForCamperAndDate(ctx, camperID, req.Date)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			outcome.Reason = "lookup failed"
			outcomes = append(outcomes, outcome)
			continue
		}
		if existing != nil && existing.Status == models.SubmissionStatusApproved {
			outcome.Reason = "submission already approved"
			outcomes = append(outcomes, outcome)
			continue
		}
		if err := s.working.Add(ctx, camperID, missions); err != nil {
			outcome.Reason = "working set update failed"
			outcomes = append(outcomes, outcome)
			continue
		}
		outcome.Applied = true
		outcomes = append(outcomes, outcome)
	}
	s.logger.Sugar().Infow("bulk complete applied",
		"bunk_id", req.BunkID, "date", req.Date, "campers", len(req.CamperIDs))
	return outcomes, nil
}

func (s *SubmissionService) findSubmission(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.submissions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.FromError(err)
	}
	return sub, nil
}

// authorizeDecision loads the submission and verifies the actor may act on
// it. Staff are scoped to their own bunk; admins see everything.
func (s *SubmissionService) authorizeDecision(ctx context.Context, actor *models.JWTClaims, submissionID string) (*models.Submission, error) {
	if actor == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if actor.Role == models.RoleCamper {
		return nil, apperrors.ErrForbidden
	}
	sub, err := s.findSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleStaff {
		bunk, err := s.roster.FindBunk(ctx, actor.BunkID)
		if err != nil {
			return nil, apperrors.Clone(apperrors.ErrForbidden, "staff bunk assignment missing")
		}
		if bunk.DisplayName != sub.BunkName {
			return nil, apperrors.Clone(apperrors.ErrForbidden, "submission belongs to another bunk")
		}
	}
	return sub, nil
}

func (s *SubmissionService) authorizeBunk(ctx context.Context, actor *models.JWTClaims, bunkID string) error {
	if actor == nil {
		return apperrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleStaff:
		if actor.BunkID != bunkID {
			return apperrors.Clone(apperrors.ErrForbidden, "staff may only act on their own bunk")
		}
		return nil
	default:
		return apperrors.ErrForbidden
	}
}

func (s *SubmissionService) checkCatalog(ctx context.Context, missions []string) error {
	active, err := s.missions.ActiveIDs(ctx)
	if err != nil {
		return apperrors.FromError(err)
	}
	known := make(map[string]bool, len(active))
	for _, id := range active {
		known[id] = true
	}
	for _, id := range missions {
		if !known[id] {
			return apperrors.Clone(apperrors.ErrUnknownMission, fmt.Sprintf("mission %q is not in the active catalog", id))
		}
	}
	return nil
}

func (s *SubmissionService) recordDecision(ctx context.Context, actor *models.JWTClaims, action string, sub *models.Submission) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{Action: action, Resource: "submissions"}
	log.ResourceID = &sub.ID
	userID := actor.UserID
	log.UserID = &userID
	if payload, err := json.Marshal(map[string]interface{}{
		"camper_id": sub.CamperID,
		"date":      sub.Date,
		"missions":  sub.Missions,
	}); err == nil {
		log.NewValues = payload
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Sugar().Warnw("audit write failed", "action", action, "error", err)
	}
}

// normalizeMissions trims, dedupes and sorts mission ids.
func normalizeMissions(ids []string) pq.StringArray {
	seen := make(map[string]bool, len(ids))
	out := make(pq.StringArray, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}
