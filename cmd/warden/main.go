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

	"github.com/amcommunity/warden/internal/auditlog"
	"github.com/amcommunity/warden/internal/config"
	"github.com/amcommunity/warden/internal/history"
	"github.com/amcommunity/warden/internal/httpapi"
	"github.com/amcommunity/warden/internal/moderation"
	"github.com/amcommunity/warden/internal/observability"
	"github.com/amcommunity/warden/internal/platform/discord"
	"github.com/amcommunity/warden/internal/spam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.DiscordToken == "" {
		log.Fatalf("DISCORD_TOKEN is required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	auditStore, err := auditlog.NewStore(ctx, cfg.AuditDatabaseURL)
	if err != nil {
		log.Fatalf("audit store init failed: %v", err)
	}
	audit := auditlog.NewLog(auditStore, logger)
	defer audit.Close()

	store := history.NewStore()
	sweeper := history.NewSweeper(store, cfg.HistoryRetention, cfg.SweepInterval, cfg.SweepInitialDelay, logger)
	sweeper.SetSweepHook(func(evicted int) {
		metrics.SweepRuns.Inc()
		metrics.SweepEvicted.Add(float64(evicted))
		metrics.TrackedUsers.Set(float64(store.TrackedUsers()))
	})

	adapter, err := discord.New(cfg.DiscordToken, logger)
	if err != nil {
		log.Fatalf("discord adapter init failed: %v", err)
	}

	enforcer := moderation.NewEnforcer(adapter, store, audit, metrics, logger, cfg.QuarantineRoleID, cfg.PurgeWindow)
	controller := moderation.NewController(store, enforcer, moderation.ControllerConfig{
		HoneypotChannelID: cfg.HoneypotChannelID,
		StaffRoleID:       cfg.StaffRoleID,
		Spam: spam.Config{
			SimilarityThreshold: cfg.SimilarityThreshold,
			ChannelThreshold:    cfg.ChannelThreshold,
			MinMessageLength:    cfg.MinMessageLength,
		},
	}, metrics, logger)
	adapter.Bind(controller)

	if err := adapter.Open(); err != nil {
		log.Fatalf("discord gateway open failed: %v", err)
	}
	defer adapter.Close()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sweeper.Start(runCtx)

	api := httpapi.New(cfg, audit, adapter.Ready, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info("ops server listening", "addr", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
