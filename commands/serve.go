package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pithakchhorn/portfolio-api/config"
	"github.com/pithakchhorn/portfolio-api/routes"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/storage"
	"github.com/pithakchhorn/portfolio-api/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = utils.Logger.Sync() }()
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tokens := utils.NewTokenService(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := services.NewAuthService(db, tokens).EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
		if created {
			utils.Sugar.Infow("admin account created", "username", cfg.AdminUsername)
		}
	}

	if cfg.SeedSkills {
		n, err := services.NewSkillQueries(db).SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seed skills: %w", err)
		}
		if n > 0 {
			utils.Sugar.Infow("starter skills seeded", "count", n)
		}
	}

	backend, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}

	rdb := utils.NewRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	guard := utils.NewLoginGuard(rdb, cfg.LoginMaxFailures, time.Duration(cfg.LoginFailureWindowMin)*time.Minute)

	utils.StartUploadCleaner(ctx, db, backend,
		time.Duration(cfg.UploadCleanupIntervalMin)*time.Minute,
		time.Duration(cfg.UploadOrphanGraceHours)*time.Hour)

	r := routes.SetupRouter(cfg, routes.Deps{DB: db, Tokens: tokens, Storage: backend, Guard: guard})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	return utils.GraceServer(ctx, ":"+cfg.AppPort, r)
}

func openStorage(ctx context.Context, cfg config.AppConfig) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return storage.NewLocal(cfg.UploadDir, "/static")
	}
}
