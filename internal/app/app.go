package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"districtpulse/internal/analytics"
	"districtpulse/internal/closing"
	"districtpulse/internal/config"
	apierrors "districtpulse/internal/errors"
	"districtpulse/internal/infrastructure"
	custommw "districtpulse/internal/middleware"
	"districtpulse/internal/operations"
	"districtpulse/internal/ranking"
	"districtpulse/internal/services"
	"districtpulse/internal/snapshot"
	"districtpulse/internal/timeseries"
	transport "districtpulse/internal/transport/http"
	ws "districtpulse/internal/websocket"
)

// Application is the composed districtpulse server.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	Router *chi.Mux
	Server *http.Server

	Store   *snapshot.Store
	Index   *timeseries.Service
	Service *services.DistrictService
	Manager *operations.Manager
	Hub     *ws.Hub
}

// NewApplication loads configuration and wires every component the
// server needs. It does not start listening; call Run or Start.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion))

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

func (a *Application) initializeServices() error {
	a.Hub = ws.NewHub(a.Logger)

	a.Store = snapshot.NewStore(a.Paths, a.Logger)
	a.Index = timeseries.NewService(a.Paths, a.Logger)
	a.Service = services.NewDistrictService(a.Store, a.Index, a.Paths, a.Logger)

	tracer, err := operations.NewRunTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("create run tracer: %w", err)
	}

	manager, err := operations.NewManager(operations.ManagerDeps{
		Store:          a.Store,
		Index:          a.Index,
		Detector:       closing.NewDetector(a.Logger),
		Ranker:         ranking.NewCalculator(a.Logger),
		Computer:       analytics.NewComputer(a.Logger),
		Paths:          a.Paths,
		Tracer:         tracer,
		Sink:           a.Hub,
		Logger:         a.Logger,
		MaxConcurrency: a.Config.Pipeline.MaxConcurrency,
	})
	if err != nil {
		return fmt.Errorf("create pipeline manager: %w", err)
	}
	a.Manager = manager
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// The websocket route stays outside the main middleware group so
	// nothing wraps the ResponseWriter before the protocol upgrade.
	r.Use(custommw.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(a.Hub, w, req)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(custommw.Recoverer(a.Logger))
		if a.Config.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst, a.Logger).Handler)
		}

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			errorHandler := apierrors.NewHandler(a.Logger)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(a.Config.Server.ReadTimeout))

				r.Mount("/districts", transport.NewDistrictHandler(a.Service, a.Logger, errorHandler).Routes())
				r.Mount("/snapshots", transport.NewSnapshotHandler(a.Service, a.Logger, errorHandler).Routes())
				r.Mount("/health", transport.NewHealthHandler(a.Service).Routes())
			})

			// Pipeline runs get the longer pipeline timeout instead of
			// the request read timeout.
			r.Mount("/runs", transport.NewRunHandler(a.Manager, a.Config.Pipeline.RunTimeout, a.Logger, errorHandler).Routes())
		})
	})

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start launches the hub and the HTTP listener. A listener error
// cancels the supplied context so the caller can unwind.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.Int("port", a.Config.Server.Port),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("level", a.Config.Logging.Level))

	a.Hub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.Hub.Shutdown()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}

// Run starts the application and blocks until an interrupt arrives or
// the listener fails.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.Info("received signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
	}

	// Give in-flight requests a moment before forcing the deadline.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+time.Second)
	defer stopCancel()
	return a.Stop(stopCtx)
}
