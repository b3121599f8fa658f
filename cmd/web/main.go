package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"love-piece/internal/catalog"
	"love-piece/internal/composer"
	"love-piece/internal/config"
	"love-piece/internal/gemini"
	"love-piece/internal/httpclient"
	"love-piece/internal/logging"
	"love-piece/internal/prompt"
	"love-piece/internal/tracer"
	"love-piece/internal/web"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "web:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
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

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}

	srv := web.New(web.Options{
		Generator:      comp,
		Catalog:        cat,
		BGM:            os.DirFS(cfg.BGMDir),
		Static:         staticSub,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web started", "addr", cfg.WebAddr, "backend", cfg.GeminiBackend, "model", cfg.GeminiModel)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loadGuidance never fails: without the document the prompt simply has no
// common or relationship blocks.
func loadGuidance(path string, logger *slog.Logger) prompt.Guidance {
	g, err := prompt.LoadGuidance(path)
	if err != nil {
		logger.Warn("relationship guidance unavailable", "path", path, "err", err)
		return prompt.ParseGuidance("")
	}
	logger.Info("relationship guidance loaded", "path", path, "sections", g.Len())
	return g
}
