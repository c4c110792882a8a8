package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/AurelMV/cbt-admin-api/api/swagger"
	"github.com/AurelMV/cbt-admin-api/internal/handler"
	"github.com/AurelMV/cbt-admin-api/internal/middleware"
	"github.com/AurelMV/cbt-admin-api/internal/repository"
	"github.com/AurelMV/cbt-admin-api/internal/service"
	"github.com/AurelMV/cbt-admin-api/pkg/cache"
	"github.com/AurelMV/cbt-admin-api/pkg/config"
	"github.com/AurelMV/cbt-admin-api/pkg/database"
	"github.com/AurelMV/cbt-admin-api/pkg/logger"
	corsmiddleware "github.com/AurelMV/cbt-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/AurelMV/cbt-admin-api/pkg/middleware/requestid"
	"github.com/AurelMV/cbt-admin-api/pkg/storage"
)

// @title CBT Admin API
// @version 1.0.0
// @description Administration backend for pre-university cycles: attendance, eligibility and enrollment review.
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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, summary caching disabled", "error", err)
		redisClient = nil
	}

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	cycleRepo := repository.NewCycleRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	enrollmentRepo := repository.NewPreEnrollmentRepository(db)
	paymentRepo := repository.NewPrePaymentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Summary.CacheTTL, logr, cfg.Summary.Enabled)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "cbt-admin-api",
	})

	notificationSvc := service.NewNotificationService(notificationRepo, cfg.Notifications, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	attendanceSvc := service.NewAttendanceService(attendanceRepo, cycleRepo, studentRepo, 0, validate, logr)
	inboxSvc := service.NewInboxService(enrollmentRepo, paymentRepo, groupRepo, notificationSvc, validate, logr)
	cycleSvc := service.NewCycleService(cycleRepo, studentRepo, enrollmentRepo, paymentRepo, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cycleRepo, attendanceRepo, validate, logr)
	groupSvc := service.NewGroupService(groupRepo, cycleRepo, validate, logr)
	uploadSvc := service.NewUploadService(uploadRepo, uploadStore, logr, service.UploadConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})
	exportSvc := service.NewExportService(cycleRepo, studentRepo, attendanceRepo, attendanceSvc, reportStore, logr, nil, nil)

	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Cycles:        handler.NewCycleHandler(cycleSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Groups:        handler.NewGroupHandler(groupSvc),
		Attendance:    handler.NewAttendanceHandler(attendanceSvc),
		Inbox:         handler.NewInboxHandler(inboxSvc),
		Uploads:       handler.NewUploadHandler(uploadSvc),
		Reports:       handler.NewReportHandler(exportSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Metrics:       handler.NewMetricsHandler(metricsSvc),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
