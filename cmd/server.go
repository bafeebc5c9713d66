package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Triaksa-Space/be-admin-console/config"
	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/health"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/middleware"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/Triaksa-Space/be-admin-console/pkg/mailer"
	"github.com/Triaksa-Space/be-admin-console/pkg/storage"
	"github.com/Triaksa-Space/be-admin-console/routes"
	"github.com/Triaksa-Space/be-admin-console/utils"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the admin console HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), config.Load())
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if err := config.InitDB(cfg); err != nil {
		return err
	}
	defer config.CloseDB()

	config.InitRedis(cfg)
	defer func() {
		if config.RedisClient != nil {
			_ = config.RedisClient.Close()
		}
	}()

	mail, err := newMailer(ctx, cfg, log)
	if err != nil {
		return err
	}
	archiver, err := newArchiver(ctx, cfg)
	if err != nil {
		return err
	}

	lastActive := config.NewLastActiveStore(config.RedisClient)
	users := user.NewService(
		user.NewRepository(config.DB),
		lastActive,
		user.NewCache(cfg.UserCacheSize, cfg.UserCacheTTL),
		log,
	)
	bulkSvc := bulk.NewService(
		bulk.NewRepository(config.DB),
		bulk.NewProgressTracker(config.RedisClient),
		users,
		log,
	)
	importSvc := importer.NewService(importer.Deps{
		Repo:     importer.NewRepository(config.DB),
		Hasher:   utils.NewPasswordHasher(cfg.JWTSecret, 0),
		Mailer:   mail,
		Archiver: archiver,
		Cache:    users,
		Log:      log,
	}, importer.Config{
		MaxFileSize: cfg.ImportMaxFileSize,
		PreviewRows: cfg.ImportPreviewRows,
	})

	checks := health.NewHandler(cfg.Version).Register("database", config.DB, "Database connection failed")
	if config.RedisClient != nil {
		checks.Register("redis", health.RedisPinger(config.RedisClient), "Redis connection failed")
	}

	e := routes.NewServer(
		routes.Deps{
			Config:      cfg,
			Log:         log,
			Redis:       config.RedisClient,
			Permissions: middleware.NewPermissionStore(config.DB),
		},
		routes.Handlers{
			Health:   checks,
			Users:    user.NewHandler(users, lastActive),
			Bulk:     bulk.NewHandler(bulkSvc),
			Importer: importer.NewHandler(importSvc),
		},
	)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", logger.String("port", cfg.Port), logger.String("env", cfg.Environment))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newMailer(ctx context.Context, cfg *config.Config, log logger.Logger) (importer.WelcomeMailer, error) {
	switch cfg.MailerProvider {
	case "resend":
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("RESEND_API_KEY is required for MAILER_PROVIDER=resend")
		}
		return mailer.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom, log), nil
	case "ses":
		awsCfg, err := config.LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		return mailer.NewSESMailer(awsCfg, cfg.EmailFrom, log), nil
	default:
		return mailer.Nop{}, nil
	}
}

// newArchiver returns nil when no bucket is configured.
func newArchiver(ctx context.Context, cfg *config.Config) (importer.Archiver, error) {
	if cfg.ImportArchiveBkt == "" {
		return nil, nil
	}
	awsCfg, err := config.LoadAWS(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, err
	}
	return storage.NewS3Archiver(awsCfg, cfg.ImportArchiveBkt), nil
}
