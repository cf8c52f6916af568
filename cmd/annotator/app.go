package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/heimdex/heimdex-annotator/internal/annotation"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
	"github.com/heimdex/heimdex-annotator/internal/db"
	"github.com/heimdex/heimdex-annotator/internal/logging"
	"github.com/heimdex/heimdex-annotator/internal/playback"
)

// app holds the services every command works with.
type app struct {
	cfg         *config.EnvConfig
	logger      *slog.Logger
	database    *db.DB
	repo        *catalog.SQLiteRepository
	catalog     *catalog.Service
	annotations *annotation.Service
	playback    *playback.Server
}

func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLoggerTo(logOut, cfg.LogLevel())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if version, err := database.SchemaVersion(); err == nil {
		logger.Debug("database ready", "path", logging.SanitizePath(cfg.DBPath()), "schema_version", version)
	}

	repo := catalog.NewRepository(database.Conn())
	catalogSvc := catalog.NewService(repo, logging.WithComponent(logger, "catalog"))
	if err := catalogSvc.Load(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	annotations := annotation.NewService(
		annotation.NewStore(database.Conn()),
		catalogSvc,
		logging.WithComponent(logger, "annotation"),
	)
	catalogSvc.SetPurger(annotations)

	return &app{
		cfg:         cfg,
		logger:      logger,
		database:    database,
		repo:        repo,
		catalog:     catalogSvc,
		annotations: annotations,
		playback:    playback.NewServer(cfg.VideosDir(), logging.WithComponent(logger, "playback")),
	}, nil
}

func (a *app) Close() error {
	return a.database.Close()
}
