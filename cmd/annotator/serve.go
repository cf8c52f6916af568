package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-annotator/internal/api"
	"github.com/heimdex/heimdex-annotator/internal/catalog"
	"github.com/heimdex/heimdex-annotator/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local annotation API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	startTime := time.Now()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("starting heimdex annotator", "version", config.Version, "data_dir", a.cfg.DataDir())

	authToken, err := ensureAuthToken(ctx, a.repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║                          HEIMDEX ANNOTATOR v%-33s ║\n", config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    %-64s ║\n", fmt.Sprintf("http://%s:%d", a.cfg.Host(), a.cfg.Port()))
	fmt.Printf("║  Auth Token: %-64s ║\n", authToken)
	fmt.Printf("║  Videos:     %-64s ║\n", a.cfg.VideosDir())
	fmt.Println("╚═══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	apiServer := api.NewServer(api.ServerConfig{
		Host:           a.cfg.Host(),
		Port:           a.cfg.Port(),
		CatalogService: a.catalog,
		Annotations:    a.annotations,
		PlaybackServer: a.playback,
		Tokens:         a.repo,
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(ctx context.Context, repo catalog.Repository) (string, error) {
	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
