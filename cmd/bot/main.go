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

	"github.com/jonboulle/clockwork"

	"github.com/KevinIssaDev/AppMonitor/internal/appstore"
	"github.com/KevinIssaDev/AppMonitor/internal/discord"
	"github.com/KevinIssaDev/AppMonitor/internal/ops"
	"github.com/KevinIssaDev/AppMonitor/internal/platform/config"
	"github.com/KevinIssaDev/AppMonitor/internal/platform/logging"
	"github.com/KevinIssaDev/AppMonitor/internal/sheets"
	"github.com/KevinIssaDev/AppMonitor/internal/watchlist"
)

func setupStore(cfg *config.Config) (*sheets.Client, *sheets.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := sheets.NewClient(ctx, cfg.CredentialsFile, cfg.SpreadsheetID)
	if err != nil {
		slog.Error("Failed to create sheets client", "error", err)
		os.Exit(1)
	}
	return client, sheets.NewStore(client)
}

func runGracefulShutdown(
	bot *discord.Bot,
	opsSrv *ops.Server,
	notifier *watchlist.Notifier,
	refresher *sheets.Refresher,
	cancel context.CancelFunc,
) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		notifier.Stop()
		refresher.Stop()
		cancel()

		if err := bot.Stop(); err != nil {
			slog.Error("Discord shutdown error", "error", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := opsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Ops server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "ops_port", cfg.OpsPort)

	client, store := setupStore(cfg)
	catalog := appstore.NewClient(nil, cfg.CatalogBaseURL)
	manager := watchlist.NewManager(store, catalog)

	bot, err := discord.NewBot(cfg.DiscordToken, manager, catalog, discord.Options{
		CommandPrefix:  cfg.CommandPrefix,
		SessionTimeout: cfg.SessionTimeout,
		SearchTimeout:  cfg.SearchTimeout,
	}, clock)
	if err != nil {
		slog.Error("Failed to create discord bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := bot.Start(ctx); err != nil {
		slog.Error("Failed to open discord session", "error", err)
		os.Exit(1)
	}

	notifier := watchlist.NewNotifier(store, catalog, bot, cfg.ScanStartupDelay, cfg.ScanInterval, clock)
	go notifier.Run(ctx)

	refresher := sheets.NewRefresher(client, cfg.RefreshInterval, clock)
	go refresher.Run(ctx)

	opsSrv := ops.NewServer(cfg.OpsPort, store)
	done := runGracefulShutdown(bot, opsSrv, notifier, refresher, cancel)

	slog.Info("Ops server starting", "port", cfg.OpsPort)
	if err := opsSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Ops server error", "error", err)
		os.Exit(1)
	}

	<-done
}
