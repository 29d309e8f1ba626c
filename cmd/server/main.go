package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/DukeRupert/authportal/internal"
	"github.com/DukeRupert/authportal/internal/authapi"
	"github.com/DukeRupert/authportal/internal/handler"
	"github.com/DukeRupert/authportal/internal/metrics"
	"github.com/DukeRupert/authportal/internal/middleware"
	"github.com/DukeRupert/authportal/internal/portal"
	"github.com/DukeRupert/authportal/internal/session"
	"github.com/DukeRupert/authportal/internal/validate"
	"github.com/DukeRupert/authportal/web"
)

// janitorInterval is how often expired sessions are purged from stores
// that do not expire keys themselves.
const janitorInterval = 5 * time.Minute

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	isSecure := !cfg.IsDevelopment()

	// =========================================================================
	// Session store
	// =========================================================================

	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	codec, err := session.NewCodec(cfg.SessionSecret)
	if err != nil {
		return fmt.Errorf("session codec initialization failed: %w", err)
	}

	store, janitor, closeStore, err := openSessionStore(ctx, cfg, codec, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// =========================================================================
	// Portal
	// =========================================================================

	validator, err := validate.New(cfg.PasswordPolicy())
	if err != nil {
		return fmt.Errorf("validator initialization failed: %w", err)
	}

	apiCfg := cfg.AuthAPIConfig()
	apiCfg.Logger = logger
	client, err := authapi.New(apiCfg)
	if err != nil {
		return fmt.Errorf("auth API client initialization failed: %w", err)
	}
	logger.Info("Auth API configured", "url", cfg.AuthAPIURL, "session_mode", client.SessionMode())

	form := portal.NewForm(validator, client, logger)
	shell := portal.NewShell(form, client, logger)

	// =========================================================================
	// Templates and static assets
	// =========================================================================

	templatesFS, staticFS, err := assetFS(cfg.IsDevelopment())
	if err != nil {
		return err
	}

	renderer, err := handler.NewRenderer(handler.RendererConfig{
		FS:     templatesFS,
		Logger: logger,
		IsDev:  cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// =========================================================================
	// Middleware
	// =========================================================================

	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	sessionMw := middleware.NewSessionMiddleware(store, logger, isSecure, cfg.SessionTTL)
	csrfMw := middleware.NewCSRFMiddleware(logger, isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword, logger)

	submitLimiter := middleware.NewRateLimiter(cfg.RateLimitSubmits, cfg.RateLimitWindow)
	rateLimitMw := middleware.NewRateLimitMiddleware(submitLimiter, logger)

	// =========================================================================
	// Routes
	// =========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("GET /health", handler.Health)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	portalHandler := handler.NewPortalHandler(shell, store, renderer, logger)
	portalHandler.RegisterRoutes(mux,
		middleware.Stack(sessionMw.Handler, csrfMw.Handler),
		rateLimitMw.Limit,
	)

	root := middleware.Stack(
		loggingMw.Handler,
		metrics.Middleware,
		securityMw.Handler,
	)(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// =========================================================================
	// Run
	// =========================================================================

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "session_store", cfg.SessionStore)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, initiating graceful shutdown...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return submitLimiter.Run(gctx)
	})

	if janitor != nil {
		g.Go(func() error {
			return session.RunJanitor(gctx, janitor, janitorInterval, logger.Info)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

// openSessionStore builds the configured session store. The returned
// janitor is nil for stores that expire sessions themselves.
func openSessionStore(ctx context.Context, cfg *internal.Config, codec *session.Codec, logger *slog.Logger) (session.Store, session.Janitor, func(), error) {
	switch cfg.SessionStore {
	case internal.SessionStoreRedis:
		store, err := session.NewRedisStore(ctx, cfg.RedisURL, codec, cfg.SessionTTL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis session store initialization failed: %w", err)
		}
		logger.Info("Session store ready", "backend", "redis")
		return store, nil, func() { store.Close() }, nil

	case internal.SessionStorePostgres:
		db, err := internal.OpenDatabase(ctx, cfg.DatabaseUrl)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := internal.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Session store ready", "backend", "postgres")
		store := session.NewPostgresStore(db, codec, cfg.SessionTTL)
		return store, store, closeDB(db, logger), nil

	default:
		store := session.NewMemoryStore(codec, cfg.SessionTTL)
		logger.Info("Session store ready", "backend", "memory")
		return store, store, func() {}, nil
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Error("database close failed", "error", err)
		}
	}
}

// assetFS returns the template and static filesystems. In development the
// files are read from disk so edits show up without a rebuild.
func assetFS(isDev bool) (fs.FS, fs.FS, error) {
	if isDev {
		if info, err := os.Stat("web/templates"); err == nil && info.IsDir() {
			return os.DirFS("web/templates"), os.DirFS("web/static"), nil
		}
	}

	templatesFS, err := fs.Sub(web.FS, "templates")
	if err != nil {
		return nil, nil, fmt.Errorf("embedded templates: %w", err)
	}
	staticFS, err := fs.Sub(web.FS, "static")
	if err != nil {
		return nil, nil, fmt.Errorf("embedded static assets: %w", err)
	}
	return templatesFS, staticFS, nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
