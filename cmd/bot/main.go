package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
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

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

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

	sched := scheduler.New(store, newAdapters(cfg), b.Driver(), cfg, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot")

	if err := sched.Start(ctx); err != nil {
		log.Error("start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	b.Run(ctx)

	log.Info("bot stopped")
}

func newAdapters(cfg *config.Config) []source.Adapter {
	return []source.Adapter{
		source.NewRemoteOK(http.DefaultClient, cfg.RequestTimeout, cfg.RemoteOKLimit),
		source.NewHackerNews(http.DefaultClient, cfg.RequestTimeout, cfg.HackerNewsLimit),
		source.NewGitHub(http.DefaultClient, cfg.RequestTimeout, cfg.GitHubLimit),
		source.NewWeWorkRemotely(http.DefaultClient, cfg.RequestTimeout, cfg.WWRLimit),
	}
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
