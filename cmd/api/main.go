package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go-rental-store/internal/config"
	"go-rental-store/internal/mailer"
	"go-rental-store/internal/middleware"
	"go-rental-store/internal/repository"
	"go-rental-store/internal/router"
	"go-rental-store/internal/service"
	"go-rental-store/internal/storage"
	"go-rental-store/internal/worker"
	"go-rental-store/internal/ws"
	"go-rental-store/pkg/database"
	"go-rental-store/pkg/jwt"
	"go-rental-store/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		File:   cfg.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.ConnectDB(database.Options{
		DSN:      cfg.DatabaseURL,
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		Port:     cfg.DBPort,
		Debug:    !cfg.IsProduction(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// 3. Seed default store and admin user
	userRepo := repository.NewUserRepo(db)
	if cfg.AdminPassword != "" {
		res, err := service.EnsureAdmin(userRepo, repository.NewStoreRepo(db), cfg.AdminEmail, cfg.AdminPassword, false)
		if err != nil {
			log.Error().Err(err).Msg("admin seed failed")
		} else if res.AdminCreated {
			log.Info().Str("email", cfg.AdminEmail).Msg("admin user created, password change required on first login")
		}
	}

	// 4. Redis (optional)
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	if rdb == nil {
		log.Warn().Msg("REDIS_URL not set, using in-process rate limiting and inline email delivery")
	}

	// 5. Setup WebSocket Hub
	hubDone := make(chan struct{})
	wsHub := ws.NewHub()
	go wsHub.Run(hubDone)

	// 6. Background work
	mail := emailSender(ctx, cfg, rdb)
	sched, err := worker.NewScheduler(userRepo)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	sched.Start()

	files, uploadsDir := fileStorage(ctx, cfg)

	var limiter middleware.Limiter
	if rdb != nil {
		limiter = middleware.NewRedisLimiter(rdb)
	} else {
		memLimiter := middleware.NewMemoryLimiter()
		go memLimiter.RunPurge(ctx, 5*time.Minute)
		limiter = memLimiter
	}

	// 7. Dependency Injection (Wiring Layers)
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.PasswordChangeTokenTTL())
	handlers, authService := router.NewHandlers(router.Deps{
		DB:            db,
		Redis:         rdb,
		Hub:           wsHub,
		Tokens:        tokens,
		Files:         files,
		Mail:          mail,
		AppBaseURL:    cfg.AppBaseURL,
		ResetTokenTTL: cfg.ResetTokenTTL(),
	})

	// 8. Setup Fiber
	app := router.New("Rental Store API")
	router.Setup(app, handlers, router.Options{
		Auth:            authService,
		Limiter:         limiter,
		CORSOrigins:     cfg.CORSOrigins,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
		APIRateLimit:    cfg.APIRateLimit,
		APIRateWindow:   cfg.APIRateWindow,
		UploadsDir:      uploadsDir,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// 9. Graceful Shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	close(hubDone)
	<-sched.Stop().Done()
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}

// emailSender queues through redis when available, sends inline otherwise,
// and only logs when SMTP is not configured.
func emailSender(ctx context.Context, cfg *config.Config, rdb *redis.Client) service.EmailSender {
	if !cfg.SMTPEnabled() {
		log.Warn().Msg("SMTP_HOST not set, emails will only be logged")
		return worker.LogSender{}
	}
	m := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom)
	if rdb == nil {
		return worker.InlineSender{Mailer: m}
	}
	worker.NewPool(rdb, m).Start(ctx, cfg.WorkerPoolSize)
	return worker.NewDispatcher(rdb)
}

// fileStorage builds the configured driver. The second value is the directory
// to serve under /uploads, empty for remote storage.
func fileStorage(ctx context.Context, cfg *config.Config) (storage.Storage, string) {
	if cfg.StorageDriver == "s3" {
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Options{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			PublicURL:       cfg.StoragePublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("s3 storage setup failed")
		}
		return s3Store, ""
	}

	local, err := storage.NewLocalStorage(cfg.StorageLocalPath, cfg.StoragePublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("local storage setup failed")
	}
	return local, cfg.StorageLocalPath
}
