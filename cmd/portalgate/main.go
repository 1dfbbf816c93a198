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

	"github.com/portalgate/portalgate/internal/api"
	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/authz"
	"github.com/portalgate/portalgate/internal/config"
	"github.com/portalgate/portalgate/internal/gate"
	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

var version = "dev" // set via -ldflags at build time

func main() {
	cfg := config.Parse()

	// Configure logging format.
	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stdout, nil)
	} else {
		logHandler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(logHandler))

	if !cfg.AuditLogs {
		audit.Enabled = false
	}

	appSettings := config.DefaultAppSettings()
	if cfg.AppSettingsPath != "" {
		loaded, err := config.LoadAppSettings(cfg.AppSettingsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load app settings: %v\n", err)
			os.Exit(1)
		}
		appSettings = loaded
	}

	// Open the settings store.
	sqlStore, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer sqlStore.Close()
	docs := store.NewCachedStore(sqlStore)

	// Portal directory client with department caching.
	client := portal.NewClient(slog.Default(), portal.WithTimeout(cfg.PortalTimeout))
	directory := portal.NewCachingDirectory(client, cfg.DeptCacheSize, cfg.DeptCacheTTL)

	// Authorization engine.
	mode := authz.ResolveMode(cfg.ExternalAccess, cfg.BlockHostEmbedding)
	adminResolver := authz.NewAdminResolver(directory, slog.Default())
	evaluator := gate.NewEvaluator(directory, docs, adminResolver, slog.Default())
	credResolver := authz.NewCredentialResolver(docs)
	orchestrator := authz.NewOrchestrator(mode, credResolver, directory, adminResolver, evaluator, slog.Default())

	sessions, err := authz.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize sessions: %v\n", err)
		os.Exit(1)
	}

	server := api.NewServer(orchestrator, sessions, evaluator, directory, adminResolver, docs,
		api.WithAppSettings(appSettings),
		api.WithVersion(version),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Refresh the installer credential on startup if it is close to expiry.
	if cfg.OAuthClientID != "" {
		refreshInstallerCredential(cfg, docs)
	}

	go func() {
		slog.Info("starting server",
			slog.String("addr", cfg.Addr),
			slog.String("mode", mode.String()),
			slog.String("version", version),
		)
		var err error
		if cfg.TLS {
			err = httpServer.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", slog.String("error", err.Error()))
	}
}

// refreshInstallerCredential renews the persisted installer credential when
// it carries a passed expiry. Failure is non-fatal: the portal will also
// reject the stale token at call time and surface a credential_invalid.
func refreshInstallerCredential(cfg *config.Config, docs store.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := docs.ReadInstallerSettings(ctx)
	if err != nil || !settings.Installed() || !settings.Credential.Expired() {
		return
	}

	refresher := portal.NewRefresher(cfg.OAuthClientID, cfg.OAuthClientSecret)
	renewed, err := refresher.Refresh(ctx, *settings.Credential)
	if err != nil {
		slog.Warn("installer credential refresh failed", slog.String("error", err.Error()))
		return
	}
	settings.Credential = &renewed
	if err := docs.WriteInstallerSettings(ctx, settings); err != nil {
		slog.Warn("failed to persist refreshed credential", slog.String("error", err.Error()))
		return
	}
	slog.Info("installer credential refreshed", slog.String("domain", renewed.Domain))
}
