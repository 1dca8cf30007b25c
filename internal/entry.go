// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/wordmaster/internal/api"
	"github.com/starford/wordmaster/internal/kv"
	"github.com/starford/wordmaster/internal/mcpserver"
	"github.com/starford/wordmaster/internal/session"
	"github.com/starford/wordmaster/internal/sse"
	"github.com/starford/wordmaster/internal/store"
	"github.com/starford/wordmaster/internal/tui"
	"github.com/starford/wordmaster/internal/watch"
)

// Session is an opened word store with its study session.
type Session struct {
	*session.Controller
	Logger *slog.Logger
	close  func() error
}

// Close releases the storage backend.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// openPort opens the configured storage backend.
func openPort(cfg StorageConfig) (kv.Port, func() error, error) {
	switch cfg.Backend {
	case BackendMemory:
		return kv.NewMemory(), nil, nil
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		db, err := kv.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case BackendFile, "":
		fs, err := kv.NewFS(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func (a *application) open(logger *slog.Logger) (*Session, error) {
	cfg := a.config

	port, closer := a.port, func() error { return nil }
	if port == nil {
		p, c, err := openPort(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		port = p
		if c != nil {
			closer = c
		}
	}

	st := store.New(port, store.WithKey(cfg.Storage.Key), store.WithLogger(logger))
	if err := st.Load(); err != nil {
		_ = closer()
		return nil, fmt.Errorf("load words: %w", err)
	}

	ctrl := session.New(st,
		session.WithDelimiter(cfg.Import.Delimiter),
		session.WithMode(session.Mode(cfg.Study.Mode)),
		session.WithDirection(session.Direction(cfg.Study.Direction)),
		session.WithLogger(logger),
	)

	logger.Debug("Words loaded",
		slog.String("backend", cfg.Storage.Backend),
		slog.Int("count", st.Len()))

	return &Session{Controller: ctrl, Logger: logger, close: closer}, nil
}

// Open loads the word store for one-shot commands. Logs go to stderr unless
// overridden with WithLogOutput.
func Open(opts ...Option) (*Session, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	return app.open(newLogger(app.config, out))
}

// Study runs the terminal UI. Logs go to app.log_file, or nowhere, so the
// screen stays clean.
func Study(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	out := app.logOutput
	if out == nil {
		out = io.Discard
		if path := app.config.App.LogFile; path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer f.Close()
			out = f
		}
	}
	logger := newLogger(app.config, out)
	slog.SetDefault(logger)

	sess, err := app.open(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	return tui.Run(sess.Controller, tui.WithLogger(logger))
}

// ServeMCP runs the MCP server on stdin/stdout. Logs go to stderr.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger := newLogger(app.config, out)
	slog.SetDefault(logger)

	sess, err := app.open(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(sess.Controller).ServeStdio()
}

func newHTTPHandler(cfg *Config, ctrl *session.Controller, broker *sse.Broker) http.Handler {
	apiRouter := api.NewRouter(ctrl, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Serve starts the HTTP API, the event stream and the optional source
// watcher, and blocks until a shutdown signal or ctx is cancelled.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	out := app.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := newLogger(cfg, out)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("watch_path", cfg.Import.WatchPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	sess, err := app.open(logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	broker := sse.NewBroker(cfg.Events.StatsThrottle)
	defer broker.Close()
	broker.Attach(sess.Controller)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: newHTTPHandler(cfg, sess.Controller, broker),
	}
	// Event streams never go idle on their own.
	httpServer.RegisterOnShutdown(broker.Close)

	g, gCtx := errgroup.WithContext(ctx)

	if path := cfg.Import.WatchPath; path != "" {
		w := watch.New(path, sess.Controller, watch.WithLogger(logger),
			watch.WithCallback(func(path string, n int) {
				logger.Info("Source re-imported", slog.String("path", path), slog.Int("count", n))
			}))
		g.Go(func() error {
			return w.Run(gCtx)
		})
	}

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

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
