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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academy-lifecycle-api/api/swagger"
	"github.com/noah-isme/academy-lifecycle-api/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	"github.com/noah-isme/academy-lifecycle-api/internal/router"
	"github.com/noah-isme/academy-lifecycle-api/internal/service"
	"github.com/noah-isme/academy-lifecycle-api/pkg/cache"
	"github.com/noah-isme/academy-lifecycle-api/pkg/config"
	"github.com/noah-isme/academy-lifecycle-api/pkg/database"
	"github.com/noah-isme/academy-lifecycle-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-lifecycle-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-lifecycle-api/pkg/middleware/requestid"
)

// @title Academy Lifecycle API
// @version 1.0.0
// @description Student enrollment, tutor assignment, settlement, graduation and alumni subscription engine
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	enrollmentRepo := repository.NewEnrollmentRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	alumniRepo := repository.NewAlumniRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	financeCache := service.NewCacheService(cacheRepo, metrics, cfg.Finance.CacheTTL, logr, cfg.Finance.CacheEnabled && redisClient != nil)
	subscriptionCache := service.NewCacheService(cacheRepo, metrics, cfg.Subscription.StatsCacheTTL, logr, cfg.Subscription.CacheEnabled && redisClient != nil)

	audience := ""
	if len(cfg.JWT.Audience) > 0 {
		audience = cfg.JWT.Audience[0]
	}
	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Audience: audience})

	enrollmentService := service.NewEnrollmentService(enrollmentRepo, studentRepo, metrics, validate, logr)
	assignmentService := service.NewAssignmentService(service.AssignmentServiceParams{
		Repo:      enrollmentRepo,
		Tutors:    tutorRepo,
		Cache:     financeCache,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	settlementService := service.NewSettlementService(service.SettlementServiceParams{
		Repo:      settlementRepo,
		Rosters:   tutorRepo,
		Students:  studentRepo,
		Cache:     financeCache,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config:    service.SettlementServiceConfig{OverviewTTL: cfg.Finance.CacheTTL},
	})
	graduationService := service.NewGraduationService(service.GraduationServiceParams{
		Students:  studentRepo,
		Alumni:    alumniRepo,
		Cache:     subscriptionCache,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionServiceParams{
		Repo:      alumniRepo,
		Cache:     subscriptionCache,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config:    service.SubscriptionServiceConfig{StatsTTL: cfg.Subscription.StatsCacheTTL},
	})

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	router.Register(r, router.Dependencies{
		APIPrefix:         cfg.APIPrefix,
		AssignmentHandler: handler.NewAssignmentHandler(enrollmentService, assignmentService),
		FinanceHandler:    handler.NewFinanceHandler(settlementService),
		GraduationHandler: handler.NewGraduationHandler(graduationService),
		AlumniHandler:     handler.NewAlumniHandler(subscriptionService),
		MetricsHandler:    handler.NewMetricsHandler(metrics, checks),
		Tokens:            tokens,
		Audit:             auditRepo,
		Logger:            logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
