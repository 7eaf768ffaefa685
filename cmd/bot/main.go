package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"city_bot/internal/bot"
	"city_bot/internal/catalog"
	"city_bot/internal/config"
	"city_bot/internal/pipeline"
	"city_bot/internal/scheduler"
	"city_bot/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error("load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	news, events, err := pipeline.Build(pipeline.Options{
		URL:            cfg.SourceURL,
		Format:         cfg.SourceFormat,
		Location:       cfg.Location,
		Client:         http.DefaultClient,
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
		ChromePath:     cfg.ChromePath,
		NewsCycles:     cfg.NewsCycles,
		EventsCycles:   cfg.EventsCycles,
	}, cat, log)
	if err != nil {
		log.Error("build pipelines", "error", err)
		os.Exit(1)
	}

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

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, news, events, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(store, b, cfg.NotifyAt, cfg.Location, log)
	if err != nil {
		log.Error("create scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "source", cfg.SourceURL, "format", cfg.SourceFormat, "timezone", cfg.Timezone)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
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
