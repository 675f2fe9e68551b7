// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/outager/outager/internal/catalog"
	catalogpostgres "github.com/outager/outager/internal/catalog/postgres"
	"github.com/outager/outager/internal/config"
	"github.com/outager/outager/internal/identity"
	"github.com/outager/outager/internal/identity/jwt"
	identitypostgres "github.com/outager/outager/internal/identity/postgres"
	"github.com/outager/outager/internal/incidents"
	incidentspostgres "github.com/outager/outager/internal/incidents/postgres"
	"github.com/outager/outager/internal/organizations"
	organizationspostgres "github.com/outager/outager/internal/organizations/postgres"
	"github.com/outager/outager/internal/pkg/ctxlog"
	"github.com/outager/outager/internal/pkg/httputil"
	"github.com/outager/outager/internal/pkg/metrics"
	"github.com/outager/outager/internal/pkg/postgres"
	"github.com/outager/outager/internal/realtime"
	"github.com/outager/outager/internal/realtime/redisrelay"
	"github.com/outager/outager/internal/statuspage"
	"github.com/outager/outager/internal/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	hub           *realtime.Hub
	relay         *redisrelay.Relay
	relayDone     chan struct{}
	server        *http.Server
	metricsServer *http.Server
	backgroundCtx context.Context
	cancel        context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	backgroundCtx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		backgroundCtx: backgroundCtx,
		cancel:        cancel,
		hub: realtime.NewHub(realtime.HubConfig{
			BufferSize:       cfg.Realtime.BufferSize,
			MaxOrganizations: cfg.Realtime.MaxOrganizations,
		}, logger),
	}

	go metrics.CollectDBPool(backgroundCtx, db, 15*time.Second)

	var broadcaster catalog.Broadcaster = app.hub
	if cfg.Redis.Enabled {
		relay, err := redisrelay.New(connectCtx, app.hub, redisrelay.Config{
			URL:            cfg.Redis.URL,
			Channel:        cfg.Redis.Channel,
			PublishTimeout: cfg.Redis.PublishTimeout,
		}, logger)
		if err != nil {
			db.Close()
			cancel()
			return nil, fmt.Errorf("connect realtime relay: %w", err)
		}
		app.relay = relay
		app.relayDone = make(chan struct{})
		go app.runRelay(backgroundCtx)
		broadcaster = relay
	}

	router := app.setupRouter(broadcaster)

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"version", version.Version,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.cancel()

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.relay != nil {
		select {
		case <-a.relayDone:
		case <-ctx.Done():
		}
		if err := a.relay.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close realtime relay: %w", err))
		}
	}

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) runRelay(ctx context.Context) {
	defer close(a.relayDone)

	for {
		err := a.relay.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		a.logger.Error("realtime relay stopped, resubscribing", "error", err)

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// Hub returns the in-process broadcast hub.
func (a *App) Hub() *realtime.Hub {
	return a.hub
}

func (a *App) setupRouter(broadcaster catalog.Broadcaster) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	identityRepo := identitypostgres.NewRepository(a.db)
	verifier := jwt.NewVerifier(jwt.Config{
		SecretKey: a.config.JWT.SecretKey,
		Issuer:    a.config.JWT.Issuer,
		Audience:  a.config.JWT.Audience,
		Leeway:    a.config.JWT.Leeway,
	})
	identityService := identity.NewService(identityRepo, verifier)
	identityHandler := identity.NewHandler(identityService)

	organizationsRepo := organizationspostgres.NewRepository(a.db)
	organizationsService := organizations.NewService(organizationsRepo, identityService, organizations.Config{
		SlugAttempts: a.config.Organizations.SlugAttempts,
	})
	organizationsHandler := organizations.NewHandler(organizationsService)

	catalogRepo := catalogpostgres.NewRepository(a.db)
	catalogService := catalog.NewService(catalogRepo, organizationsService, broadcaster)
	catalogHandler := catalog.NewHandler(catalogService)

	incidentsRepo := incidentspostgres.NewRepository(a.db)
	incidentsService := incidents.NewService(incidentsRepo, organizationsService, broadcaster)
	incidentsHandler := incidents.NewHandler(incidentsService)

	statusService := statuspage.NewService(organizationsService, catalogService, incidentsService,
		a.config.StatusPage.RecentIncidents)
	statusHandler := statuspage.NewHandler(statusService)

	realtimeHandler := realtime.NewHandler(a.hub, realtime.HandlerConfig{
		PingInterval:    a.config.Realtime.PingInterval,
		WriteTimeout:    a.config.Realtime.WriteTimeout,
		InboundRate:     a.config.Realtime.InboundRate,
		InboundBurst:    a.config.Realtime.InboundBurst,
		MaxMessageBytes: a.config.Realtime.MaxMessageBytes,
		OriginPatterns:  a.config.Realtime.AllowedOrigins,
	})

	// Long-lived connections stay outside the request timeout.
	realtimeHandler.RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(a.config.Server.RequestTimeout))

		r.Get("/healthz", a.healthzHandler)
		r.Get("/readyz", a.readyzHandler)
		r.Get("/version", a.versionHandler)

		r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-yaml")
			http.ServeFile(w, r, "api/openapi/openapi.yaml")
		})
		r.Get("/docs", docsHandler)

		r.Route("/api/v1", func(r chi.Router) {
			organizationsHandler.RegisterPublicRoutes(r)
			catalogHandler.RegisterPublicRoutes(r)
			incidentsHandler.RegisterPublicRoutes(r)
			statusHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.AuthMiddleware(identityService, identity.AuthErrorMappings))

				identityHandler.RegisterProtectedRoutes(r)
				organizationsHandler.RegisterProtectedRoutes(r)
				catalogHandler.RegisterProtectedRoutes(r)
				incidentsHandler.RegisterProtectedRoutes(r)
			})
		})
	})

	return r
}

func docsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Outager API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
