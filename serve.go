package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jkarvonen/driveback/internal/backup"
	"github.com/jkarvonen/driveback/internal/drive"
	"github.com/jkarvonen/driveback/internal/web"
)

// shutdownGrace bounds how long in-flight requests get on shutdown.
// Runners notice the context cancellation between files and finalize
// their open archive on the way out.
const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backup web service",
		Long:  "Starts the HTTP server: OAuth login, backup control endpoints, and archive downloads.",
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := resolvedCfg

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("serve: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be configured")
	}

	logger := buildLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return fmt.Errorf("serve: creating backup root: %w", err)
	}

	registry := backup.NewRegistry(cfg.RootDir, cfg.SessionTTL, logger)
	oauthCfg := drive.NewOAuthConfig(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL)

	server := web.NewServer(ctx, registry, oauthCfg, web.Options{
		DriveBaseURL:  drive.DefaultBaseURL,
		PageSize:      cfg.PageSize,
		ArchiveBudget: cfg.ArchiveBudget,
		CookieMaxAge:  cfg.CookieMaxAge,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("server listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("base_url", cfg.BaseURL),
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		registry.RunCleanup(groupCtx, cfg.CleanupInterval)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped")

	return nil
}
