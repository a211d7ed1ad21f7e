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
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-standing/api/swagger"
	"github.com/noah-isme/academic-standing/internal/handler"
	"github.com/noah-isme/academic-standing/internal/middleware"
	"github.com/noah-isme/academic-standing/internal/repository"
	"github.com/noah-isme/academic-standing/internal/service"
	"github.com/noah-isme/academic-standing/pkg/cache"
	"github.com/noah-isme/academic-standing/pkg/config"
	"github.com/noah-isme/academic-standing/pkg/database"
	"github.com/noah-isme/academic-standing/pkg/lock"
	"github.com/noah-isme/academic-standing/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-standing/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-standing/pkg/middleware/requestid"
)

// @title Academic Standing API
// @version 1.0.0
// @description GPA, academic standing, level progression and graduation for enrolled students
// @BasePath /api/v1
// @schemes http

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

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logr.Info("database migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	locker, err := newLocker(cfg.Lock, redisClient, logr)
	if err != nil {
		return err
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	histories := repository.NewAcademicHistoryRepository(db)
	records := repository.NewSemesterRecordRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	students := repository.NewStudentRepository(db)

	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient, logr),
		metricsSvc,
		cfg.Academic.CacheTTL,
		logr.Named("cache"),
		cfg.Academic.CacheEnabled && redisClient != nil,
	)

	historySvc := service.NewAcademicHistoryService(histories, records, students, locker, cacheSvc, metricsSvc, validate,
		logr.Named("academic_history"), cfg.Academic.DefaultRequiredCredits)
	semesterSvc := service.NewSemesterRecordService(records, enrollments, histories, students, historySvc, locker,
		cacheSvc, metricsSvc, validate, logr.Named("semester_record"))
	transcriptSvc := service.NewTranscriptService(enrollments, students, histories, cacheSvc, logr.Named("transcript"))

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.GET("/metrics/summary", metricsHandler.Summary)
	registerAcademicRoutes(api,
		handler.NewAcademicHistoryHandler(historySvc, transcriptSvc),
		handler.NewSemesterRecordHandler(semesterSvc),
	)

	if cfg.Env != config.EnvProduction {
		swagger.SwaggerInfo.BasePath = cfg.APIPrefix
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("lock_backend", cfg.Lock.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocker(cfg config.LockConfig, client redis.UniversalClient, logr *zap.Logger) (lock.Locker, error) {
	if cfg.Backend != config.LockBackendRedis {
		return lock.NewKeyedMutex(cfg.WaitTimeout), nil
	}
	if client == nil {
		return nil, errors.New("LOCK_BACKEND=redis requires ENABLE_REDIS=true")
	}
	return lock.NewRedisLocker(client, cfg.TTL, cfg.WaitTimeout, logr.Named("lock")), nil
}

func registerAcademicRoutes(api gin.IRouter, histories *handler.AcademicHistoryHandler, records *handler.SemesterRecordHandler) {
	api.POST("/academic-histories", histories.Create)
	api.POST("/semester-records", records.Create)

	student := api.Group("/students/:studentId")
	student.GET("/academic-history", histories.Get)
	student.POST("/academic-history/cumulative-gpa", histories.UpdateCumulativeGPA)
	student.POST("/academic-history/level-progression", histories.CheckLevelProgression)
	student.POST("/academic-history/standing", histories.UpdateStanding)
	student.PUT("/academic-history/current-semester", histories.UpdateCurrentSemester)
	student.GET("/graduation-eligibility", histories.GraduationEligibility)
	student.POST("/graduation", histories.MarkGraduated)
	student.GET("/academic-summary", histories.Summary)
	student.GET("/transcript", histories.Transcript)
	student.GET("/semester-records", records.List)

	record := student.Group("/semesters/:semesterId/record")
	record.GET("", records.Get)
	record.PATCH("", records.UpdateStatistics)
	record.POST("/gpa", records.CalculateGPA)
	record.POST("/standing", records.UpdateStanding)
	record.POST("/finalize", records.Finalize)
	record.GET("/statistics", records.Statistics)
}
