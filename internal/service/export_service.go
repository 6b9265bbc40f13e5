package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/dto"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	apperrors "github.com/mendten/camp-mitzvah-tracker-sub001/pkg/errors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/export"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/jobs"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/storage"
)

// DataBundleVersion marks the JSON bundle layout. Import rejects other
// versions.
const DataBundleVersion = "1"

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, filePath, token string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	ListRecent(ctx context.Context, limit int) ([]models.ExportJob, error)
}

type exportSubmissions interface {
	All(ctx context.Context) ([]models.Submission, error)
	ReplaceAll(ctx context.Context, records []models.Submission) error
}

type exportRoster interface {
	ListBunks(ctx context.Context) ([]models.Bunk, error)
	ListAllCampers(ctx context.Context) ([]models.CamperWithBunk, error)
	ReplaceRoster(ctx context.Context, bunks []models.Bunk, campers []models.Camper) error
}

type exportMissions interface {
	List(ctx context.Context, includeInactive bool) ([]models.Mission, error)
	ReplaceCatalog(ctx context.Context, missions []models.Mission) error
}

type exportSettings interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Setting, error)
	BulkUpsert(ctx context.Context, settings []models.Setting) error
}

type workingSetWiper interface {
	ClearAll(ctx context.Context) error
}

type exportMetrics interface {
	ExportRecorded(format, status string)
}

type enqueuer interface {
	Push(task jobs.Task) error
}

// ExportService renders submissions into downloadable files through an
// async job queue, and imports previously exported JSON bundles.
type ExportService struct {
	jobs        exportJobStore
	submissions exportSubmissions
	roster      exportRoster
	missions    exportMissions
	settings    exportSettings
	working     workingSetWiper
	audit       auditRecorder
	metrics     exportMetrics

	queue    enqueuer
	store    *storage.LocalStorage
	signer   *storage.TicketSigner
	urlTTL   time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

// ExportServiceConfig wires the export service collaborators.
type ExportServiceConfig struct {
	Jobs        exportJobStore
	Submissions exportSubmissions
	Roster      exportRoster
	Missions    exportMissions
	Settings    exportSettings
	Working     workingSetWiper
	Audit       auditRecorder
	Metrics     exportMetrics
	Store       *storage.LocalStorage
	Signer      *storage.TicketSigner
	URLTTL      time.Duration
	Logger      *zap.Logger
}

// NewExportService constructs the service. Call BindQueue before Generate.
func NewExportService(cfg ExportServiceConfig) *ExportService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportService{
		jobs:        cfg.Jobs,
		submissions: cfg.Submissions,
		roster:      cfg.Roster,
		missions:    cfg.Missions,
		settings:    cfg.Settings,
		working:     cfg.Working,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
		store:       cfg.Store,
		signer:      cfg.Signer,
		urlTTL:      ttl,
		validate:    validator.New(),
		logger:      logger,
	}
}

// BindQueue attaches the worker queue that processes jobs.
func (s *ExportService) BindQueue(queue enqueuer) {
	s.queue = queue
}

// Generate creates a queued export job and hands it to the workers.
func (s *ExportService) Generate(ctx context.Context, actor *models.JWTClaims, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "invalid export request")
	}
	format := models.ExportFormat(req.Format)
	if !format.Valid() {
		return nil, apperrors.Clone(apperrors.ErrValidation, "unsupported export format")
	}
	if s.queue == nil {
		return nil, apperrors.Clone(apperrors.ErrInternal, "export workers are not running")
	}

	job := &models.ExportJob{Format: format}
	if actor != nil {
		job.RequestedBy = actor.UserID
	}
	if req.BunkID != "" {
		job.BunkID = &req.BunkID
	}
	if req.DateFrom != "" {
		job.DateFrom = &req.DateFrom
	}
	if req.DateTo != "" {
		job.DateTo = &req.DateTo
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, apperrors.FromError(err)
	}
	if err := s.queue.Push(jobs.Task{RecordID: job.ID}); err != nil {
		_ = s.jobs.MarkFailed(ctx, job.ID, "enqueue failed")
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "enqueue export")
	}
	s.logger.Sugar().Infow("export queued", "job_id", job.ID, "format", job.Format)
	return job, nil
}

// Process is the queue runner: it renders the job's report to disk and
// records the signed download token.
func (s *ExportService) Process(ctx context.Context, task jobs.Task) error {
	record, err := s.jobs.FindByID(ctx, task.RecordID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", task.RecordID, err)
	}
	if record.Status == models.ExportJobCompleted {
		return nil
	}
	if err := s.jobs.MarkProcessing(ctx, record.ID); err != nil {
		return err
	}

	filename, err := s.render(ctx, record)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logger.Sugar().Errorw("mark export failed", "job_id", record.ID, "error", markErr)
		}
		if s.metrics != nil {
			s.metrics.ExportRecorded(string(record.Format), string(models.ExportJobFailed))
		}
		return err
	}

	token, expiresAt, err := s.signer.Issue(record.ID, filename)
	if err != nil {
		_ = s.jobs.MarkFailed(ctx, record.ID, "sign download token")
		return err
	}
	if err := s.jobs.MarkCompleted(ctx, record.ID, filename, token, expiresAt); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ExportRecorded(string(record.Format), string(models.ExportJobCompleted))
	}
	s.logger.Sugar().Infow("export completed", "job_id", record.ID, "file", filename)
	return nil
}

// Status reports a job with its download URL when ready.
func (s *ExportService) Status(ctx context.Context, jobID string) (*dto.ExportJobResponse, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Clone(apperrors.ErrNotFound, "export job not found")
		}
		return nil, apperrors.FromError(err)
	}
	resp := &dto.ExportJobResponse{Job: job}
	if job.Status == models.ExportJobCompleted && job.DownloadToken != nil {
		resp.DownloadURL = "/exports/download?token=" + *job.DownloadToken
	}
	return resp, nil
}

// ListRecent returns the newest jobs for the admin exports view.
func (s *ExportService) ListRecent(ctx context.Context, limit int) ([]models.ExportJob, error) {
	jobsList, err := s.jobs.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return jobsList, nil
}

// OpenDownload validates a signed token and opens the rendered file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	ticket, err := s.signer.Redeem(token, false)
	if err != nil {
		return nil, "", apperrors.Clone(apperrors.ErrUnauthorized, "invalid or expired download token")
	}
	file, err := s.store.Open(ticket.File)
	if err != nil {
		return nil, "", apperrors.Clone(apperrors.ErrNotFound, "export file no longer available")
	}
	return file, ticket.File, nil
}

// CleanupExpired removes rendered files older than the signing TTL.
func (s *ExportService) CleanupExpired() {
	deleted, err := s.store.CleanupOlderThan(s.urlTTL)
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return
	}
	if len(deleted) > 0 {
		s.logger.Sugar().Infow("export files cleaned", "count", len(deleted))
	}
}

// BuildBundle assembles the full JSON export document.
func (s *ExportService) BuildBundle(ctx context.Context) (*dto.DataBundle, error) {
	bunks, err := s.roster.ListBunks(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	campers, err := s.roster.ListAllCampers(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	missions, err := s.missions.List(ctx, true)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	submissions, err := s.submissions.All(ctx)
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	settings, err := s.settings.ListByKeys(ctx, registryKeys())
	if err != nil {
		return nil, apperrors.FromError(err)
	}
	return &dto.DataBundle{
		Version:     DataBundleVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Bunks:       bunks,
		Campers:     campers,
		Missions:    missions,
		Submissions: submissions,
		Settings:    settings,
	}, nil
}

// Import replaces the stored dataset with a previously exported bundle.
// Working sets are wiped so no stale selections survive the swap.
func (s *ExportService) Import(ctx context.Context, actor *models.JWTClaims, bundle dto.DataBundle) error {
	if bundle.Version != DataBundleVersion {
		return apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unsupported bundle version %q", bundle.Version))
	}
	if len(bundle.Bunks) == 0 || len(bundle.Campers) == 0 {
		return apperrors.Clone(apperrors.ErrValidation, "bundle must include roster data")
	}

	campers := make([]models.Camper, 0, len(bundle.Campers))
	for _, camper := range bundle.Campers {
		campers = append(campers, camper.Camper)
	}
	if err := s.roster.ReplaceRoster(ctx, bundle.Bunks, campers); err != nil {
		return apperrors.FromError(err)
	}
	if len(bundle.Missions) > 0 {
		if err := s.missions.ReplaceCatalog(ctx, bundle.Missions); err != nil {
			return apperrors.FromError(err)
		}
	}
	if err := s.submissions.ReplaceAll(ctx, bundle.Submissions); err != nil {
		return apperrors.FromError(err)
	}
	if len(bundle.Settings) > 0 {
		if err := s.settings.BulkUpsert(ctx, bundle.Settings); err != nil {
			return apperrors.FromError(err)
		}
	}
	if err := s.working.ClearAll(ctx); err != nil {
		s.logger.Sugar().Warnw("working set wipe failed during import", "error", err)
	}

	if s.audit != nil && actor != nil {
		log := &models.AuditLog{Action: models.AuditActionImport, Resource: "data"}
		userID := actor.UserID
		log.UserID = &userID
		if payload, err := json.Marshal(map[string]int{
			"bunks":       len(bundle.Bunks),
			"campers":     len(bundle.Campers),
			"submissions": len(bundle.Submissions),
		}); err == nil {
			log.NewValues = payload
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Sugar().Warnw("audit write failed", "action", log.Action, "error", err)
		}
	}
	s.logger.Sugar().Infow("data imported",
		"bunks", len(bundle.Bunks), "campers", len(bundle.Campers), "submissions", len(bundle.Submissions))
	return nil
}

func (s *ExportService) render(ctx context.Context, job *models.ExportJob) (string, error) {
	params := job.Params()
	switch params.Format {
	case models.ExportFormatBundle:
		bundle, err := s.BuildBundle(ctx)
		if err != nil {
			return "", err
		}
		raw, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode bundle: %w", err)
		}
		return s.store.Save(exportFilename(job, "json"), raw)
	case models.ExportFormatCSV:
		report, err := s.buildReport(ctx, params)
		if err != nil {
			return "", err
		}
		raw, err := report.CSV()
		if err != nil {
			return "", err
		}
		return s.store.Save(exportFilename(job, "csv"), raw)
	case models.ExportFormatPDF:
		report, err := s.buildReport(ctx, params)
		if err != nil {
			return "", err
		}
		raw, err := report.PDF()
		if err != nil {
			return "", err
		}
		return s.store.Save(exportFilename(job, "pdf"), raw)
	default:
		return "", fmt.Errorf("unsupported format %q", params.Format)
	}
}

func (s *ExportService) buildReport(ctx context.Context, params models.ExportJobParams) (export.Report, error) {
	subs, err := s.submissions.All(ctx)
	if err != nil {
		return export.Report{}, err
	}

	bunkName := ""
	if params.BunkID != "" {
		bunks, err := s.roster.ListBunks(ctx)
		if err != nil {
			return export.Report{}, err
		}
		for _, bunk := range bunks {
			if bunk.ID == params.BunkID {
				bunkName = bunk.DisplayName
				break
			}
		}
		if bunkName == "" {
			return export.Report{}, fmt.Errorf("unknown bunk %q", params.BunkID)
		}
	}

	report := export.Report{Title: "Mission Report"}
	if bunkName != "" {
		report.Title = "Mission Report: " + bunkName
	}
	for i := range subs {
		sub := &subs[i]
		if bunkName != "" && sub.BunkName != bunkName {
			continue
		}
		if params.DateFrom != "" && sub.Date < params.DateFrom {
			continue
		}
		if params.DateTo != "" && sub.Date > params.DateTo {
			continue
		}
		approvedBy := ""
		if sub.ApprovedBy != nil {
			approvedBy = *sub.ApprovedBy
		}
		report.Rows = append(report.Rows, export.Row{
			Date:       sub.Date,
			Bunk:       sub.BunkName,
			Camper:     sub.CamperName,
			Status:     string(sub.Status),
			Missions:   sub.Missions,
			ApprovedBy: approvedBy,
		})
	}
	return report, nil
}

func exportFilename(job *models.ExportJob, ext string) string {
	return fmt.Sprintf("%s/%s.%s", time.Now().UTC().Format("2006-01-02"), job.ID, ext)
}
