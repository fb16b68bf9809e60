package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docscopilot/user-service/internal/config"
	"github.com/docscopilot/user-service/internal/handler"
	"github.com/docscopilot/user-service/internal/repository"
	"github.com/docscopilot/user-service/internal/service"
	"github.com/docscopilot/user-service/shared/cqrs"
	"github.com/docscopilot/user-service/shared/events"
	"github.com/docscopilot/user-service/shared/logger"
	"github.com/docscopilot/user-service/shared/middleware"
	"github.com/docscopilot/user-service/shared/models"
	redisClient "github.com/docscopilot/user-service/shared/redis"
	"github.com/docscopilot/user-service/shared/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logger.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("user service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// Database connection (write store)
	db, err := repository.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.RunMigrations {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
	}

	// Redis connection (profile cache, verification codes, event stream)
	redis, err := redisClient.NewClient(ctx, redisClient.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.RedisDialTimeout,
		IOTimeout:   cfg.RedisIOTimeout,
	})
	if err != nil {
		return err
	}
	defer redis.Close()

	profiles := redisClient.NewViewCache[models.Account](redis.Client, cfg.ProfileTTL, logger)
	codes := redisClient.NewCodeStore(redis.Client)
	publisher := events.NewPublisher(redis.Client).WithMaxLen(cfg.EventStreamMaxLen)

	registry := repository.NewRegistry(db, profiles)
	hasher := utils.NewPasswordHasher(utils.DefaultArgon2Params)
	accounts := service.NewAccountService(registry, hasher, codes, publisher, logger)

	accounts.BootstrapAdmin(ctx, cqrs.BootstrapConfig{
		AdminEmail: cfg.AdminEmail,
		DBPassword: cfg.DBPassword,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))
	handler.NewAccountHandler(accounts, accounts).Mount(router, middleware.AuthMiddleware([]byte(cfg.JWTSecret)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("user service starting", "port", cfg.Port)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
