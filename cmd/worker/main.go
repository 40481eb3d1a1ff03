// Command worker runs one fetch/alert/cleanup cycle and exits. It shares
// the bot's components, so an external cron can drive the pipeline
// without keeping the bot process online.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jobalert_bot/internal/bot"
	"jobalert_bot/internal/config"
	"jobalert_bot/internal/scheduler"
	"jobalert_bot/internal/source"
	"jobalert_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	adapters := []source.Adapter{
		source.NewRemoteOK(http.DefaultClient, cfg.RequestTimeout, cfg.RemoteOKLimit),
		source.NewHackerNews(http.DefaultClient, cfg.RequestTimeout, cfg.HackerNewsLimit),
		source.NewGitHub(http.DefaultClient, cfg.RequestTimeout, cfg.GitHubLimit),
		source.NewWeWorkRemotely(http.DefaultClient, cfg.RequestTimeout, cfg.WWRLimit),
	}
	sched := scheduler.New(store, adapters, b.Driver(), cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("worker started")

	sched.RunFetchCycle(ctx)
	b.Driver().BroadcastAlerts(ctx, cfg.AlertInterval)
	sched.RunMaintenance(ctx)

	log.Info("worker completed")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
