package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-results-api/api/swagger"
	"github.com/noah-isme/sma-results-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/export"
	"github.com/noah-isme/sma-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
)

// @title School Results API
// @version 1.0.0
// @description Score records, result locks, mark distributions and report cards.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo service.CacheRepository
	checks := map[string]handler.Pinger{}
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	}
	if redisClient != nil {
		redisRepo := repository.NewCacheRepository(redisClient)
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
		checks["redis"] = redisRepo
	}

	scoreRepo := repository.NewScoreRepository(db)
	lockRepo := repository.NewResultLockRepository(db)
	templateRepo := repository.NewDistributionTemplateRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	traitRepo := repository.NewTraitRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	checks["postgres"] = scoreRepo

	metricsSvc := service.NewMetricsService()
	validate := service.NewValidator()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Results.DistributionCacheTTL, logr, cfg.Results.CacheEnabled)

	distributionSvc := service.NewMarkDistributionService(scoreRepo, templateRepo, cacheSvc, validate, logr, cfg.Results.DistributionCacheTTL)
	warmupSvc := service.NewWarmupService(distributionSvc, metricsSvc, logr, service.WarmupConfig{
		Enabled: cfg.Results.WarmupEnabled,
		MaxJobs: cfg.Results.WarmupMaxJobs,
		Timeout: cfg.Results.WarmupTimeout,
		Workers: cfg.Results.WarmupWorkers,
	})
	scoreSvc := service.NewScoreService(scoreRepo, lockRepo, warmupSvc, metricsSvc, validate, logr, service.ScoreServiceConfig{
		ChunkSize:    cfg.Results.ChunkSize,
		ListLimit:    cfg.Results.ListLimit,
		MaxListLimit: cfg.Results.MaxListLimit,
		ReadTimeout:  cfg.Results.ReadTimeout,
	})
	lockSvc := service.NewResultLockService(lockRepo, metricsSvc, validate, logr)
	reportSvc := service.NewReportCardService(service.ReportCardDeps{
		Scores:     scoreRepo,
		Locks:      lockRepo,
		Students:   studentRepo,
		Attendance: attendanceRepo,
		Traits:     traitRepo,
		Schools:    schoolRepo,
	}, metricsSvc, validate, logr)
	sessionSvc := service.NewSessionService(schoolRepo, cacheSvc, cfg.Results.FallbackSessions, logr)
	exportSvc := service.NewExportService(scoreSvc, reportSvc, logr, export.NewCSVExporter(), export.NewPDFExporter())
	actorSvc := service.NewActorService(assignmentRepo, studentRepo, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	warmupSvc.Start(ctx)
	defer warmupSvc.Stop()

	scoreHandler := handler.NewScoreHandler(scoreSvc, exportSvc)
	lockHandler := handler.NewResultLockHandler(lockSvc)
	distributionHandler := handler.NewMarkDistributionHandler(distributionSvc)
	reportHandler := handler.NewReportCardHandler(reportSvc, exportSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	gradeHandler := handler.NewGradeBandHandler()
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(metricsSvc, cfg.Metrics.Path, "/health", "/ready"))
		r.GET(cfg.Metrics.Path, metricsHandler.Prometheus)
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Docs.Enabled || cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/grade-bands", gradeHandler.Resolve)
	api.GET("/sessions", sessionHandler.List)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokenSvc), internalmiddleware.Actor(actorSvc))

	secured.GET("/scores", scoreHandler.List)
	secured.POST("/scores/batch", internalmiddleware.StaffOnly(), scoreHandler.SaveBatch)
	secured.GET("/scores/export", internalmiddleware.StaffOnly(), scoreHandler.Export)

	secured.GET("/result-locks", internalmiddleware.StaffOnly(), lockHandler.List)
	secured.POST("/result-locks/:action", internalmiddleware.AdminOnly(), lockHandler.Mutate)

	secured.GET("/mark-distributions", distributionHandler.Get)
	templates := secured.Group("/mark-distributions/templates")
	templates.GET("", internalmiddleware.StaffOnly(), distributionHandler.ListTemplates)
	templates.PUT("", internalmiddleware.AdminOnly(), distributionHandler.UpsertTemplate)
	templates.DELETE("", internalmiddleware.AdminOnly(), distributionHandler.DeleteTemplate)

	secured.GET("/report-cards/:studentId", reportHandler.Get)
	secured.GET("/report-cards/:studentId/pdf", reportHandler.PDF)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
