package main

import (
	"context"
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

	"github.com/rezkam/tasklens/internal/application/insight"
	"github.com/rezkam/tasklens/internal/application/suggestion"
	"github.com/rezkam/tasklens/internal/application/todo"
	"github.com/rezkam/tasklens/internal/config"
	httpserver "github.com/rezkam/tasklens/internal/infrastructure/http"
	"github.com/rezkam/tasklens/internal/infrastructure/http/handler"
	"github.com/rezkam/tasklens/internal/infrastructure/llm/openai"
	"github.com/rezkam/tasklens/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		// slog may not be initialized if config fails
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Root context for all normal operations; cancelled on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Setup(ctx, cfg.Observability.ServiceName, cfg.Observability.OTelEnabled)
	if err != nil {
		return err
	}
	defer func() {
		// Bounded so an unreachable collector cannot hang the exit.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shutdown telemetry: %v\n", err)
		}
	}()
	slog.SetDefault(providers.Logger)

	slog.InfoContext(ctx, "Starting tasklens",
		"storage", cfg.Storage.Driver,
		"generator", cfg.LLM.Enabled(),
		"otel", cfg.Observability.OTelEnabled)

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		_ = store.Close()
		return err
	}

	tasks := todo.NewService(store, todo.Config{})
	insights := insight.NewEngine(gen, insight.Config{RefineTimeout: cfg.Insight.RefineTimeout})
	suggestions := suggestion.NewEngine(gen, tasks, tasks)
	refresher := suggestion.NewRefresher(suggestions, cfg.Suggestion.RefreshInterval)

	// Every task mutation schedules a suggestion refresh.
	tasks.OnChange(refresher.Trigger)

	cleanup := newCleanup(refresher, insights, store)
	defer cleanup()

	api := handler.NewHandler(tasks, insights, suggestions)
	server := httpserver.NewAPIServer(api.Routes(), httpserver.ServerConfig{
		Host:               cfg.HTTP.Host,
		Port:               cfg.HTTP.Port,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout:  cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:     cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:       cfg.HTTP.MaxBodyBytes,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := refresher.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("suggestion refresher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")

		// The root context is already cancelled; shutdown gets its own window.
		shutdownCtx, cancel := newShutdownContext(cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newGenerator returns nil, and the engines run on fallbacks, when no API key
// is configured. The return type keeps a nil client from becoming a non-nil
// interface.
func newGenerator(cfg config.LLMConfig) (suggestion.Generator, error) {
	if !cfg.Enabled() {
		slog.Warn("No LLM API key configured, serving basic analysis and fallback suggestions")
		return nil, nil
	}

	client, err := openai.New(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		MaxRetries:  cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return client, nil
}

// newShutdownContext creates a fresh context with timeout for graceful shutdown operations.
func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
