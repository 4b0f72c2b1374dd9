package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-clearance-api/api/swagger"
	"github.com/noah-isme/campus-clearance-api/internal/handler"
	"github.com/noah-isme/campus-clearance-api/internal/middleware"
	"github.com/noah-isme/campus-clearance-api/internal/models"
	"github.com/noah-isme/campus-clearance-api/internal/repository"
	"github.com/noah-isme/campus-clearance-api/internal/service"
	"github.com/noah-isme/campus-clearance-api/pkg/cache"
	"github.com/noah-isme/campus-clearance-api/pkg/config"
	"github.com/noah-isme/campus-clearance-api/pkg/database"
	"github.com/noah-isme/campus-clearance-api/pkg/export"
	"github.com/noah-isme/campus-clearance-api/pkg/jobs"
	"github.com/noah-isme/campus-clearance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-clearance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-clearance-api/pkg/middleware/requestid"
	"github.com/noah-isme/campus-clearance-api/pkg/storage"
)

// @title Campus Clearance API
// @version 0.1.0
// @description Graduation clearance workflow service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, comment caching disabled", "error", err)
		redisClient = nil
	}

	certStorage, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	notifySvc := service.NewNotificationService(jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, logr)

	// The external face-matching provider is not wired in this deployment;
	// signups without a matcher route to manual review.
	matcher := service.IdentityMatcherFunc(func(ctx context.Context, selfie, document []byte) (service.MatchResult, error) {
		return service.MatchResult{}, fmt.Errorf("identity matcher not configured")
	})

	verificationSvc := service.NewVerificationService(userRepo, matcher, auditRepo, notifySvc, logr)
	authSvc := service.NewAuthService(userRepo, verificationSvc, auditRepo, validate, cfg.JWT, logr)
	certSvc := service.NewCertificateService(clearanceRepo, userRepo, export.NewCertificateRenderer(), certStorage, signer, auditRepo, metricsSvc, cfg.Certificates.Institution, logr)
	clearanceSvc := service.NewClearanceService(clearanceRepo, userRepo, certSvc, auditRepo, notifySvc, metricsSvc, logr)
	approvalSvc := service.NewApprovalService(approvalRepo, auditRepo, notifySvc, logr)
	commentSvc := service.NewCommentService(commentRepo, clearanceRepo, cacheRepo, metricsSvc, validate, cfg.Comments.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	clearanceHandler := handler.NewClearanceHandler(clearanceSvc, approvalSvc, certSvc)
	commentHandler := handler.NewCommentHandler(commentSvc)
	accountHandler := handler.NewAccountHandler(verificationSvc)
	auditHandler := handler.NewAuditHandler(auditRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	clearance := api.Group("/clearance", middleware.JWT(authSvc))
	clearance.POST("/apply", middleware.RequireCapability(models.CapApplyClearance), clearanceHandler.Apply)
	clearance.GET("/status", clearanceHandler.Status)
	clearance.GET("/requests/:id", clearanceHandler.Get)
	clearance.POST("/requests/:id/resubmit", middleware.RequireCapability(models.CapResubmitClearance), clearanceHandler.Resubmit)
	clearance.DELETE("/requests/:id", middleware.RequireCapability(models.CapCancelClearance), clearanceHandler.Cancel)
	clearance.GET("/requests/:id/certificate", clearanceHandler.Certificate)
	stageReviewers := middleware.RequireRoles(models.RoleLibraryAdmin, models.RoleCashierAdmin, models.RoleRegistrarAdmin)
	clearance.POST("/stages/:stage/approve", stageReviewers, clearanceHandler.ApproveStage)
	clearance.POST("/stages/:stage/reject", stageReviewers, clearanceHandler.RejectStage)
	clearance.POST("/professor/approve", middleware.RequireCapability(models.CapDecideProfessor), clearanceHandler.ProfessorApprove)
	clearance.POST("/professor/reject", middleware.RequireCapability(models.CapDecideProfessor), clearanceHandler.ProfessorReject)

	api.GET("/certificates/download", clearanceHandler.Download)

	comments := api.Group("/comments", middleware.JWT(authSvc))
	comments.POST("", middleware.RequireCapability(models.CapPostComment), commentHandler.Create)
	comments.GET("", commentHandler.List)
	comments.POST("/:id/resolve", commentHandler.Resolve)
	comments.DELETE("/:id", commentHandler.Delete)

	accounts := api.Group("/accounts", middleware.JWT(authSvc), middleware.RequireCapability(models.CapReviewAccounts))
	accounts.GET("/pending", accountHandler.ListPending)
	accounts.POST("/approve", middleware.Audit(auditRepo, models.AuditActionAccountApprove, "user"), accountHandler.Approve)
	accounts.POST("/reject", middleware.Audit(auditRepo, models.AuditActionAccountReject, "user"), accountHandler.Reject)

	api.GET("/audit-logs", middleware.JWT(authSvc), middleware.RequireCapability(models.CapViewAuditLog), auditHandler.List)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifySvc.Start(rootCtx)
	defer notifySvc.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
