// @title Camp Mission Tracker API
// @version 1.0
// @description Daily mission tracking and approval for camp bunks.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/mendten/camp-mitzvah-tracker-sub001/api/swagger"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/handler"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/middleware"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/repository"
	"github.com/mendten/camp-mitzvah-tracker-sub001/internal/service"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/cache"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/config"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/database"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/jobs"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/logger"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/middleware/cors"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/middleware/requestid"
	"github.com/mendten/camp-mitzvah-tracker-sub001/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Sugar().Fatalw("server exited", "error", err)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck

	// Repositories.
	rosterRepo := repository.NewRosterRepository(db)
	missionRepo := repository.NewMissionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	userRepo := repository.NewUserRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	workingRepo := repository.NewWorkingSetRepository(redisClient)
	cacheStore := cache.NewStore(redisClient)

	// Metrics.
	metrics := service.NewMetrics(prometheus.DefaultRegisterer)
	httpMetrics := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)

	// Services.
	settingsService := service.NewSettingsService(settingRepo, userRepo, cfg.Camp, log)
	authService := service.NewAuthService(userRepo, rosterRepo, userRepo, metrics, cfg.JWT, log)
	rosterService := service.NewRosterService(rosterRepo, missionRepo, log)
	submissionService := service.NewSubmissionService(
		submissionRepo, rosterRepo, missionRepo, workingRepo,
		settingsService, userRepo, metrics, log)
	dashboardService := service.NewDashboardService(
		submissionRepo, rosterRepo, missionRepo, workingRepo,
		settingsService, cacheStore, cfg.Dashboard.CacheTTL, log)
	seedService := service.NewSeedService(
		rosterRepo, missionRepo, submissionRepo, userRepo,
		settingsService, workingRepo, cfg.Camp, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seedService.EnsureSeeded(ctx); err != nil {
		return fmt.Errorf("seed dataset: %w", err)
	}

	// Exports.
	var exportService *service.ExportService
	var exportQueue *jobs.Queue
	if cfg.Exports.Enabled {
		localStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		signer := storage.NewTicketSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportService = service.NewExportService(service.ExportServiceConfig{
			Jobs:        exportJobRepo,
			Submissions: submissionRepo,
			Roster:      rosterRepo,
			Missions:    missionRepo,
			Settings:    settingRepo,
			Working:     workingRepo,
			Audit:       userRepo,
			Metrics:     metrics,
			Store:       localStore,
			Signer:      signer,
			URLTTL:      cfg.Exports.SignedURLTTL,
			Logger:      log,
		})
		exportQueue = jobs.New("exports", exportService.Process, jobs.Options{
			Workers:     cfg.Exports.WorkerConcurrency,
			MaxAttempts: cfg.Exports.WorkerRetries,
			Backoff:     5 * time.Second,
			Logger:      log,
		})
		exportQueue.Start(ctx)
		defer exportQueue.Stop()
		exportService.BindQueue(exportQueue)

		go func() {
			ticker := time.NewTicker(cfg.Exports.CleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					exportService.CleanupExpired()
				}
			}
		}()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	submissionHandler := handler.NewSubmissionHandler(submissionService, dashboardService)
	settingsHandler := handler.NewSettingsHandler(settingsService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)

	// Router.
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(logger.GinMiddleware(log))
	router.Use(httpMetrics.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group(cfg.APIPrefix)

	// Public routes.
	api.POST("/auth/staff/login", authHandler.StaffLogin)
	api.POST("/auth/camper/login", authHandler.CamperLogin)

	// Signed downloads live outside the authenticated tree: the token is
	// the credential.
	var exportHandler *handler.ExportHandler
	if exportService != nil {
		exportHandler = handler.NewExportHandler(exportService)
		router.GET("/exports/download", exportHandler.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.Auth(authService))
	{
		authed.GET("/auth/me", authHandler.Me)

		authed.GET("/bunks", rosterHandler.ListBunks)
		authed.GET("/bunks/:id", rosterHandler.GetBunk)
		authed.GET("/campers/:id", rosterHandler.GetCamper)
		authed.GET("/missions", rosterHandler.ListMissions)

		authed.POST("/submissions", submissionHandler.Submit)
		authed.POST("/submissions/:id/request-edit", submissionHandler.RequestEdit)
		authed.GET("/campers/:id/submissions", submissionHandler.History)
		authed.GET("/campers/:id/submissions/:date", submissionHandler.GetForDate)
		authed.GET("/campers/:id/working-set", submissionHandler.GetWorkingSet)
		authed.PUT("/campers/:id/working-set", submissionHandler.UpdateWorkingSet)

		if cfg.Dashboard.Enabled {
			authed.GET("/dashboards/camper/:id", dashboardHandler.Camper)
		}
	}

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleStaff, models.RoleAdmin))
	{
		staff.GET("/campers", rosterHandler.ListCampers)
		staff.GET("/submissions", submissionHandler.List)
		staff.POST("/submissions/:id/approve", submissionHandler.Approve)
		staff.POST("/submissions/:id/reject", submissionHandler.Reject)
		staff.PUT("/submissions/:id", submissionHandler.Edit)
		staff.POST("/bunks/:id/bulk-complete", submissionHandler.BulkComplete)
		staff.GET("/settings", settingsHandler.List)
		staff.GET("/settings/resolved", settingsHandler.Resolve)
		if cfg.Dashboard.Enabled {
			staff.GET("/dashboards/bunk/:id", dashboardHandler.Staff)
		}
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.PATCH("/missions/:id/active", rosterHandler.SetMissionActive)
		admin.GET("/admin/credentials", rosterHandler.ListCredentials)
		admin.PUT("/settings", settingsHandler.BulkUpdate)
		admin.PUT("/settings/:key", settingsHandler.Update)
		if cfg.Dashboard.Enabled {
			admin.GET("/dashboards/admin", dashboardHandler.Admin)
		}
		if exportHandler != nil {
			admin.POST("/exports", exportHandler.Create)
			admin.GET("/exports", exportHandler.List)
			admin.GET("/exports/:id", exportHandler.Status)
			admin.GET("/admin/backup", exportHandler.Bundle)
			admin.POST("/admin/backup", exportHandler.Import)
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Sugar().Infow("server listening", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
