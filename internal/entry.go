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

	"github.com/starford/notehub/internal/api"
	"github.com/starford/notehub/internal/auth"
	"github.com/starford/notehub/internal/directory"
	"github.com/starford/notehub/internal/mcpserver"
	"github.com/starford/notehub/internal/metrics"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/noteservice"
	"github.com/starford/notehub/internal/sse"
	"github.com/starford/notehub/internal/store"
)

func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return app, logger, nil
}

// openStore opens the database and mirrors the users file into it.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*store.DB, error) {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	res, err := directory.Sync(ctx, db, cfg.Directory.Path, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sync user directory: %w", err)
	}
	logger.Info("User directory synced",
		slog.String("path", cfg.Directory.Path),
		slog.Int("added", res.Added),
		slog.Int("removed", res.Removed))

	return db, nil
}

func newResolver(cfg *Config, db *store.DB) auth.Resolver {
	if cfg.Auth.Mode == AuthModeJWT {
		return &auth.JWTResolver{Users: db, Tokens: newTokenManager(cfg)}
	}
	return &auth.HeaderResolver{Users: db}
}

func newTokenManager(cfg *Config) *auth.TokenManager {
	return auth.NewTokenManager(auth.TokenConfig{
		Secret: cfg.Auth.JWT.Secret,
		Issuer: cfg.Auth.JWT.Issuer,
		TTL:    cfg.Auth.JWT.TTL,
	})
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("directory_path", cfg.Directory.Path),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("search_scope", cfg.Search.Scope),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	m := metrics.New()

	svc := noteservice.New(db, db,
		noteservice.WithSearchScope(store.Scope(cfg.Search.Scope)),
		noteservice.WithDefaultLimit(cfg.Search.DefaultLimit),
		noteservice.WithNotifier(broker),
		noteservice.WithMetrics(m),
	)
	apiRouter := api.NewRouter(svc, newResolver(cfg, db), broker)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", m.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-sync the user directory when the file changes.
	if cfg.Directory.Watch {
		g.Go(func() error {
			err := directory.Watch(gCtx, db, cfg.Directory.Path, logger, nil)
			if err != nil {
				logger.Warn("directory watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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
		// Close SSE streams first; Shutdown waits for active handlers.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ServeMCP runs the MCP stdio server acting as the user with the given email.
func ServeMCP(ctx context.Context, email string, opts ...Option) error {
	app, logger, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	u, err := db.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", email, err)
	}

	svc := noteservice.New(db, db,
		noteservice.WithSearchScope(store.Scope(cfg.Search.Scope)),
		noteservice.WithDefaultLimit(cfg.Search.DefaultLimit),
	)
	logger.Info("MCP server starting", slog.String("as", u.Email))
	return mcpserver.New(svc, models.Principal{ID: u.ID, Email: u.Email}).ServeStdio()
}

// IssueToken signs a bearer token for email with the configured JWT settings.
func IssueToken(cfg *Config, email string) (string, error) {
	if cfg.Auth.JWT.Secret == "" {
		return "", errors.New("auth.jwt.secret is not configured")
	}
	return newTokenManager(cfg).Issue(email)
}
