package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/univ-adp-api/api/swagger"
	"github.com/noah-isme/univ-adp-api/internal/handler"
	"github.com/noah-isme/univ-adp-api/internal/middleware"
	"github.com/noah-isme/univ-adp-api/internal/repository"
	"github.com/noah-isme/univ-adp-api/internal/service"
	"github.com/noah-isme/univ-adp-api/pkg/cache"
	"github.com/noah-isme/univ-adp-api/pkg/config"
	"github.com/noah-isme/univ-adp-api/pkg/database"
	"github.com/noah-isme/univ-adp-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/univ-adp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/univ-adp-api/pkg/middleware/requestid"
	"github.com/noah-isme/univ-adp-api/pkg/storage"
)

// @title University ADP API
// @version 1.0.0
// @description Enrollment and grading engine for the academic data platform.
// @BasePath /api/v1
// @schemes http
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

	metricsSvc := service.NewMetricsService()

	cacheEnabled := cfg.Transcripts.CacheEnabled
	var cacheRepo service.CacheRepository
	if cacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, transcript cache disabled", "error", err)
			cacheEnabled = false
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Transcripts.CacheTTL, logr, cacheEnabled)

	studentRepo := repository.NewStudentRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	offeringRepo := repository.NewCourseOfferingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeScaleRepo := repository.NewGradeScaleRepository(db)

	studentSvc := service.NewStudentService(studentRepo, nil, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, nil, logr)
	offeringSvc := service.NewCourseOfferingService(offeringRepo, semesterRepo, enrollmentRepo, nil, logr)
	gradeScaleSvc := service.NewGradeScaleService(gradeScaleRepo, nil, logr)
	eligibilitySvc := service.NewEligibilityService(studentRepo, offeringRepo, enrollmentRepo, logr)
	gpaSvc := service.NewGPAService(enrollmentRepo, studentRepo, logr)
	transcriptSvc := service.NewTranscriptService(enrollmentRepo, studentRepo, semesterRepo, cacheSvc, cfg.Transcripts.CacheTTL, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, eligibilitySvc, gradeScaleSvc, studentRepo, transcriptSvc, cfg.Grading, nil, logr)
	exportSvc := service.NewExportService(transcriptSvc, logr)

	exportStore, err := storage.NewExportStore(cfg.Exports.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export store", "error", err)
	}
	exportSigner := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Exports.DownloadTTL)
	exportJobSvc := service.NewExportJobService(exportSvc, exportStore, exportSigner, cfg.Exports.Workers, logr)
	exportJobSvc.Start(context.Background())
	defer exportJobSvc.Stop()

	studentHandler := handler.NewStudentHandler(studentSvc)
	semesterHandler := handler.NewSemesterHandler(semesterSvc)
	offeringHandler := handler.NewCourseOfferingHandler(offeringSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, metricsSvc)
	gradeScaleHandler := handler.NewGradeScaleHandler(gradeScaleSvc)
	eligibilityHandler := handler.NewEligibilityHandler(eligibilitySvc)
	transcriptHandler := handler.NewTranscriptHandler(transcriptSvc, gpaSvc, exportSvc)
	exportJobHandler := handler.NewExportJobHandler(exportJobSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/eligibility", eligibilityHandler.Check)

		api.GET("/students", studentHandler.List)
		api.GET("/students/:id", studentHandler.Get)
		api.GET("/students/:id/gpa", transcriptHandler.GPA)
		api.GET("/students/:id/transcript", transcriptHandler.Get)
		if cfg.Transcripts.ExportEnabled {
			api.GET("/students/:id/transcript/export", transcriptHandler.Export)
			api.GET("/export-jobs/:id", exportJobHandler.Status)
			api.GET("/exports/download", exportJobHandler.Download)
		}

		api.GET("/semesters", semesterHandler.List)
		api.GET("/semesters/current", semesterHandler.Current)
		api.GET("/semesters/:id", semesterHandler.Get)

		api.GET("/offerings", offeringHandler.List)
		api.GET("/offerings/:id", offeringHandler.Get)

		api.GET("/enrollments", enrollmentHandler.List)

		api.GET("/grade-scale", gradeScaleHandler.ListActive)
		api.GET("/grade-scale/all", gradeScaleHandler.ListAll)
	}

	protected := api.Group("", middleware.Resolve(cfg.JWT.Secret))
	{
		protected.POST("/students", studentHandler.Create)
		protected.PUT("/students/:id", studentHandler.Update)

		protected.POST("/semesters", semesterHandler.Create)
		protected.PUT("/semesters/:id", semesterHandler.Update)

		protected.POST("/offerings", offeringHandler.Create)
		protected.PATCH("/offerings/:id/capacity", offeringHandler.AdjustCapacity)
		protected.PATCH("/offerings/:id/active", offeringHandler.SetActive)

		if cfg.Transcripts.ExportEnabled {
			protected.POST("/students/:id/transcript/export-jobs", exportJobHandler.Submit)
		}

		protected.POST("/enrollments", enrollmentHandler.Enroll)
		protected.POST("/enrollments/:id/withdraw", enrollmentHandler.Withdraw)
		protected.PUT("/enrollments/:id/grade", enrollmentHandler.AssignGrade)

		protected.POST("/grade-scale", gradeScaleHandler.Create)
		protected.PUT("/grade-scale/:id", gradeScaleHandler.Update)
		protected.DELETE("/grade-scale/:id", gradeScaleHandler.Deactivate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
