package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"love-piece/internal/catalog"
	"love-piece/internal/composer"
	"love-piece/internal/config"
	"love-piece/internal/gemini"
	"love-piece/internal/handlers"
	"love-piece/internal/httpclient"
	"love-piece/internal/logging"
	"love-piece/internal/mediagroup"
	"love-piece/internal/prompt"
	"love-piece/internal/session"
	"love-piece/internal/telegram"
	"love-piece/internal/tracer"
	"love-piece/internal/wizard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracer.Setup(ctx, tracer.Options{
		Enabled:  cfg.TraceEnabled,
		Exporter: cfg.TraceExporter,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.TelegramDebug,
	})
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}

	gen, err := gemini.NewGenerator(ctx, cfg.GeminiBackend, gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if !gen.Configured() {
		logger.Warn("GEMINI_API_KEY is not set; generation requests will fail")
	}

	cat := catalog.Default()
	comp := composer.New(composer.Options{
		Generator: gen,
		Prompt: prompt.NewBuilder(prompt.Options{
			Guidance:        loadGuidance(cfg.GuidancePath, logger),
			Catalog:         cat,
			CompletionGuard: cfg.CompletionGuard,
		}),
		Model:               cfg.GeminiModel,
		RequireRelationship: cfg.RequireRelationship,
		Timeout:             cfg.RequestTimeout,
		Logger:              logger,
	})

	kv := session.NewMemoryKV()
	sessions := session.NewManager(kv, logger)

	handler := handlers.New(handlers.Options{
		Messenger: tg,
		Flow:      wizard.New(comp, logger),
		Sessions:  sessions,
		Catalog:   cat,
		BGMDir:    cfg.BGMDir,
		Logger:    logger,
	})

	go pruneSessions(ctx, kv, sessions, cfg.SessionTTL, logger)

	// Downloads and generation share one deadline per update.
	updateTimeout := cfg.RequestTimeout + 30*time.Second

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, updateTimeout)
			defer cancel()
			reqCtx = logging.WithRequestID(reqCtx, logger, logging.NewRequestID())

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "backend", cfg.GeminiBackend, "model", cfg.GeminiModel)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return nil
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, updateTimeout)
				defer cancel()
				reqCtx = logging.WithRequestID(reqCtx, logger, logging.NewRequestID())

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logging.FromContext(reqCtx, logger).Error("handle update failed", "update_id", update.UpdateID, "err", err)
				}
			}(update)
		}
	}
}

// pruneSessions drops chat sessions idle for longer than ttl.
func pruneSessions(ctx context.Context, kv *session.MemoryKV, sessions *session.Manager, ttl time.Duration, logger *slog.Logger) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := kv.Prune(now.Add(-ttl))
			for _, key := range removed {
				sessions.Forget(key)
			}
			if len(removed) > 0 {
				logger.Info("sessions pruned", "count", len(removed), "remaining", kv.Len())
			}
		}
	}
}

func loadGuidance(path string, logger *slog.Logger) prompt.Guidance {
	g, err := prompt.LoadGuidance(path)
	if err != nil {
		logger.Warn("relationship guidance unavailable", "path", path, "err", err)
		return prompt.ParseGuidance("")
	}
	logger.Info("relationship guidance loaded", "path", path, "sections", g.Len())
	return g
}
