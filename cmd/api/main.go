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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-portal-api/api/swagger"
	"github.com/noah-isme/academy-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-portal-api/internal/middleware"
	"github.com/noah-isme/academy-portal-api/internal/repository"
	"github.com/noah-isme/academy-portal-api/internal/service"
	"github.com/noah-isme/academy-portal-api/pkg/cache"
	"github.com/noah-isme/academy-portal-api/pkg/config"
	"github.com/noah-isme/academy-portal-api/pkg/database"
	"github.com/noah-isme/academy-portal-api/pkg/jobs"
	"github.com/noah-isme/academy-portal-api/pkg/logger"
	"github.com/noah-isme/academy-portal-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/academy-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/academy-portal-api/pkg/storage"
)

// @title Academy Portal API
// @version 1.0.0
// @description Bootcamp enrollment, attendance and outreach API for the academy portal.
// @BasePath /api
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// The API keeps serving without the cache; reads fall through to postgres.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Attendance.PublicCacheTTL, logr, redisClient != nil)

	sender, err := mailer.New(cfg.SMTP, logr)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	bulk := mailer.NewBatchSender(sender, cfg.Mail.BatchSize, cfg.Mail.BatchDelay, logr)

	documents, err := storage.NewLocalStorage(cfg.Storage.DocumentsDir)
	if err != nil {
		return fmt.Errorf("init document storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})

	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewAttendanceSessionRepository(db)
	responseRepo := repository.NewAttendanceResponseRepository(db)
	sponsorRepo := repository.NewSponsorRepository(db)
	volunteerRepo := repository.NewVolunteerRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		Audience:           []string{cfg.JWT.Issuer},
	})

	enrollmentSvc := service.NewEnrollmentService(service.EnrollmentServiceParams{
		Repo:      enrollmentRepo,
		Cache:     cacheSvc,
		Sender:    sender,
		Queue:     queue,
		Storage:   documents,
		Signer:    signer,
		Audit:     userRepo,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.EnrollmentServiceConfig{
			NotifyOnStatusChange: cfg.Bootcamp.NotifyOnStatusChange,
			CountsCacheTTL:       cfg.Bootcamp.CountsCacheTTL,
			Organization:         cfg.SMTP.FromName,
			APIPrefix:            cfg.APIPrefix,
		},
	})
	queue.Register(service.JobTypeEnrollmentStatusEmail, enrollmentSvc.HandleStatusEmailJob)

	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Sessions:    sessionRepo,
		Responses:   responseRepo,
		Enrollments: enrollmentRepo,
		Mailer:      bulk,
		Cache:       cacheSvc,
		Audit:       userRepo,
		Metrics:     metrics,
		Validator:   validate,
		Logger:      logr,
		Config: service.AttendanceServiceConfig{
			PublicBaseURL:  cfg.Mail.PublicBaseURL,
			PublicCacheTTL: cfg.Attendance.PublicCacheTTL,
			Organization:   cfg.SMTP.FromName,
		},
	})

	campaignSvc := service.NewCampaignService(service.CampaignServiceParams{
		Mailer:       bulk,
		Enrollments:  enrollmentRepo,
		Volunteers:   volunteerRepo,
		Sponsors:     sponsorRepo,
		Audit:        userRepo,
		Metrics:      metrics,
		Validator:    validate,
		Logger:       logr,
		Organization: cfg.SMTP.FromName,
	})

	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisPing(ctx, redisClient) }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Email:      handler.NewEmailHandler(campaignSvc),
		Sponsor:    handler.NewSponsorHandler(service.NewSponsorService(sponsorRepo, validate, logr)),
		Volunteer:  handler.NewVolunteerHandler(service.NewVolunteerService(volunteerRepo, validate, logr)),
		Comment:    handler.NewCommentHandler(service.NewCommentService(commentRepo, validate, logr)),
		Metrics:    metricsHandler,
	}, handler.RouterOptions{
		Tokens:        authSvc,
		Audit:         userRepo,
		PublicLimiter: internalmiddleware.NewIPRateLimiter(cfg.RateLimit.PublicPerMinute, cfg.RateLimit.PublicBurst),
		Logger:        logr,
	})

	queue.Start(ctx)
	defer queue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
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

func redisPing(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
