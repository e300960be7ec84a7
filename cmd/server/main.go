// Package main runs the club management HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clubhub/backend/config"
	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/invitations"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/onboarding"
	"github.com/clubhub/backend/internal/profiles"
	"github.com/clubhub/backend/internal/realtime"
	"github.com/clubhub/backend/internal/worker"
	"github.com/clubhub/backend/pkg/database"
	"github.com/clubhub/backend/pkg/queue"
	"github.com/clubhub/backend/pkg/redis"
	"github.com/clubhub/backend/pkg/response"
	"github.com/clubhub/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			LogosBucket:          cfg.AWS.LogosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	emitter := events.NewEmitter(jobQueue, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Profiles
	profileRepo := profiles.NewRepository(pool)
	profileHandler := profiles.NewHandler(profileRepo)

	// Onboarding
	onboardingRepo := onboarding.NewRepository(pool)
	onboardingService := onboarding.NewService(onboardingRepo, logger)

	// Clubs
	clubRepo := clubs.NewRepository(pool)
	clubHandler := clubs.NewHandler(clubRepo, onboardingService, emitter, s3Client, logger)
	onboardingHandler := onboarding.NewHandler(onboardingService, clubRepo, logger)

	// Invitations
	invitationRepo := invitations.NewRepository(pool)
	invitationService := invitations.NewService(invitationRepo, clubRepo, emitter, logger)
	invitationHandler := invitations.NewHandler(invitationService, logger)

	// Club event worker (onboarding auto-update + realtime fanout)
	processor := worker.NewClubEventProcessor(onboardingService, hub, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Profile
		api.GET("/profile", profileHandler.Get)
		api.PATCH("/profile", profileHandler.Update)
		api.GET("/profile/consent", profileHandler.GetConsent)
		api.PUT("/profile/consent", profileHandler.UpdateConsent)

		// Clubs
		api.POST("/clubs", clubHandler.Create)
		api.GET("/clubs/my-clubs", clubHandler.MyClubs)
		api.GET("/clubs/my-invitations", invitationHandler.ListMyInvitations)
		api.GET("/clubs/:id", clubHandler.Get)
		api.PATCH("/clubs/:id", clubHandler.Update)
		api.DELETE("/clubs/:id", clubHandler.Delete)
		api.POST("/clubs/:id/logo", clubHandler.UploadLogo)
		api.GET("/clubs/:id/members", clubHandler.Members)
		api.GET("/clubs/:id/membership", clubHandler.Membership)

		// Invitations
		api.POST("/clubs/:id/invite-email", invitationHandler.InviteByEmail)
		api.POST("/clubs/:id/invite-code", invitationHandler.GenerateInviteCode)
		api.POST("/clubs/:id/accept-invitation", invitationHandler.AcceptInvitation)
		api.GET("/clubs/:id/invitations", invitationHandler.ListClubInvitations)
		api.POST("/clubs/join/:inviteCode", invitationHandler.JoinByCode)
		api.DELETE("/clubs/invitations/:invitationId", invitationHandler.CancelInvitation)

		// Onboarding
		api.GET("/onboarding/status", onboardingHandler.GetStatus)
		api.PATCH("/onboarding/status", onboardingHandler.UpdateStep)
		api.GET("/onboarding/steps", onboardingHandler.ListSteps)
	}

	// WebSocket (token in query; no Authorization header required)
	validateToken := func(token string) (uuid.UUID, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return uuid.Nil, err
		}
		return claims.UserID, nil
	}
	router.GET("/ws", realtime.ServeWs(hub, logger, validateToken, clubRepo.GetRole))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (club actions and invitation emails)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go processor.Run(workerCtx)
	logger.Info("club event worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
