// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

const (
	vaultChangedThrottle = 2 * time.Second
	shutdownTimeout      = 10 * time.Second
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication()

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Logs go to stderr: stdout carries the MCP protocol in mcp mode.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("mode", string(app.mode)),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	guard, err := vault.New(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	store, err := storage.NewFS(guard,
		storage.WithIgnore(cfg.Vault.Ignore...),
		storage.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svcOpts := []noteservice.Option{
		noteservice.WithIndex(db),
		noteservice.WithLogger(logger),
		noteservice.WithSearchWorkers(cfg.Search.Workers),
	}

	switch app.mode {
	case ModeMCP:
		svc := noteservice.New(store, svcOpts...)
		return app.runMCP(ctx, logger, db, store, svc)
	case ModeServe:
		broker := sse.NewBroker(vaultChangedThrottle)
		defer broker.Close()
		svc := noteservice.New(store, append(svcOpts, noteservice.WithNotifier(broker))...)
		return app.runServe(ctx, logger, db, store, svc, broker)
	default:
		return fmt.Errorf("unknown mode %q", app.mode)
	}
}

// runServe serves the REST API and SSE stream until a signal arrives or ctx ends.
func (a *application) runServe(
	ctx context.Context,
	logger *slog.Logger,
	db *index.DB,
	store storage.Provider,
	svc *noteservice.Service,
	broker *sse.Broker,
) error {
	cfg := a.config
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := os.Stat(store.Root()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Keep the index in step with edits made outside the service.
	g.Go(func() error {
		return index.Watch(gCtx, db, store, logger, broker.PublishNoteEvent)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Unblock the watcher once the server is down.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// runMCP speaks MCP over the configured stdio streams. The session ends when the
// client closes stdin, a signal arrives, or ctx ends.
func (a *application) runMCP(
	ctx context.Context,
	logger *slog.Logger,
	db *index.DB,
	store storage.Provider,
	svc *noteservice.Service,
) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(svc, a.version, logger)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, store, logger, nil)
	})

	g.Go(func() error {
		logger.Info("MCP stdio session started")
		if err := srv.ServeStdio(gCtx, a.stdin, a.stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio: %w", err)
		}
		logger.Info("MCP stdio session ended")
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// errShutdown cancels the sibling goroutines of an errgroup on a clean exit.
var errShutdown = errors.New("shutdown")
