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

	_ "github.com/openclass/openclass-api/api/swagger"
	"github.com/openclass/openclass-api/internal/handler"
	"github.com/openclass/openclass-api/internal/middleware"
	"github.com/openclass/openclass-api/internal/models"
	"github.com/openclass/openclass-api/internal/repository"
	"github.com/openclass/openclass-api/internal/service"
	"github.com/openclass/openclass-api/pkg/cache"
	"github.com/openclass/openclass-api/pkg/config"
	"github.com/openclass/openclass-api/pkg/database"
	"github.com/openclass/openclass-api/pkg/jobs"
	"github.com/openclass/openclass-api/pkg/logger"
	corsmiddleware "github.com/openclass/openclass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openclass/openclass-api/pkg/middleware/requestid"
)

// @title OpenClass API
// @version 1.0.0
// @description Course analytics and management platform
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	gateRepo := repository.NewGateRepository(redisClient)

	// Services.
	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cacheService, metricsService, logr, service.AnalyticsServiceConfig{
		TrendWindowMonths: cfg.Analytics.TrendWindowMonths,
		ActivityLimit:     cfg.Analytics.ActivityLimit,
		CacheTTL:          cfg.Analytics.CacheTTL,
	})

	invalidator := service.NewAnalyticsInvalidator(analyticsService, logr, jobs.QueueConfig{Workers: 2})
	invalidator.Start(ctx)
	defer invalidator.Stop()

	authService := service.NewAuthService(userRepo, logr, service.AuthServiceConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	gateService := service.NewGateService(gateRepo, logr, service.GateServiceConfig{
		Secret:          cfg.Gate.Secret,
		MinKeyLength:    cfg.Gate.MinKeyLength,
		MaxAttempts:     cfg.Gate.MaxAttempts,
		LockoutDuration: cfg.Gate.LockoutDuration,
		ValidationTTL:   cfg.Gate.ValidationTTL,
	})
	courseService := service.NewCourseService(courseRepo, invalidator, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, invalidator, logr)
	assignmentService := service.NewAssignmentService(assignmentRepo, courseRepo, invalidator, logr)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, courseRepo, enrollmentRepo, invalidator, logr)
	exportService := service.NewExportService(analyticsService, logr, service.ExportServiceConfig{MaxRows: cfg.Exports.MaxRows})

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	courseHandler := handler.NewCourseHandler(courseService)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentService)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, exportService)
	gateHandler := handler.NewGateHandler(gateService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(authService))
	authed.GET("/auth/me", authHandler.Me)

	courses := authed.Group("/courses")
	{
		courses.GET("", courseHandler.List)
		courses.GET("/:id", courseHandler.Get)
		courses.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Create)
		courses.PUT("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), courseHandler.Delete)

		courses.GET("/:id/enrollments", enrollmentHandler.List)
		courses.POST("/:id/enrollments", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), enrollmentHandler.Enroll)
		courses.DELETE("/:id/enrollments/:studentId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), enrollmentHandler.Unenroll)

		courses.GET("/:id/assignments", assignmentHandler.List)
		courses.POST("/:id/assignments", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), assignmentHandler.Create)
	}

	authed.PUT("/assignments/:assignmentId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), assignmentHandler.Update)
	authed.DELETE("/assignments/:assignmentId", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), assignmentHandler.Delete)
	authed.GET("/assignments/:assignmentId/submissions", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), submissionHandler.ListByAssignment)
	authed.POST("/submissions", middleware.RequireRoles(models.RoleStudent), submissionHandler.Submit)
	authed.PUT("/submissions/:submissionId/grade", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), submissionHandler.Grade)

	authed.POST("/gate/validate", gateHandler.Submit)
	authed.GET("/gate/status", gateHandler.Status)

	analytics := authed.Group("/analytics")
	analytics.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	// The access gate fronts the admin view only: admins must hold a
	// validated key window before any aggregation read, teachers pass
	// ungated.
	analytics.Use(middleware.RequireGate(gateService, models.RoleAdmin))
	analytics.Use(middleware.WithResponseMeta())
	{
		analytics.GET("/overview", analyticsHandler.Overview)
		analytics.GET("/summary", analyticsHandler.Summary)
		analytics.GET("/students-per-course", analyticsHandler.StudentsPerCourse)
		analytics.GET("/assignment-status", analyticsHandler.AssignmentStatus)
		analytics.GET("/course-performance", analyticsHandler.CoursePerformance)
		analytics.GET("/progress-trend", analyticsHandler.ProgressTrend)
		analytics.GET("/completion-rates", analyticsHandler.CompletionRates)
		analytics.GET("/grade-distribution", analyticsHandler.GradeDistribution)
		analytics.GET("/activity", analyticsHandler.RecentActivity)

		if cfg.Exports.Enabled {
			analytics.GET("/export", analyticsHandler.ExportGradeReport)
		}

		// Platform instrumentation is admin-only; the group gate above
		// already covers it.
		analytics.GET("/system",
			middleware.RequireRoles(models.RoleAdmin),
			analyticsHandler.SystemMetrics)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
