package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/soe/internal/adapters/ai"
	"github.com/okian/soe/internal/adapters/http/api"
	"github.com/okian/soe/internal/adapters/http/site"
	"github.com/okian/soe/internal/adapters/http/swagger"
	"github.com/okian/soe/internal/adapters/http/ws"
	"github.com/okian/soe/internal/adapters/repository"
	service "github.com/okian/soe/internal/app"
	"github.com/okian/soe/internal/config"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "soe exited with error", logger.Error(err))
		os.Exit(1)
	}
}

// application is the wired process: service, live hub and HTTP handler.
type application struct {
	cfg     *config.Config
	svc     *service.Service
	hub     *ws.Hub
	tracer  *tracing.Provider
	handler http.Handler
}

// openStore is replaced in tests to observe the store lifecycle.
var openStore = repository.Open

// newApplication builds every component from cfg. Nothing is started.
// Components opened before a failure are released again.
func newApplication(ctx context.Context, cfg *config.Config) (_ *application, err error) {
	log := logger.Get().Named("main")

	tracer, err := tracing.New(ctx, cfg.Tracing.Provider())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tracer.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	store, err := openStore(ctx, cfg.Storage.Repository())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if cerr := store.Close(); cerr != nil {
			log.Warn(ctx, "failed to close store", logger.Error(cerr))
		}
	}()

	gen, err := ai.New(cfg.AI.Client())
	if err != nil {
		return nil, err
	}

	rules, hooks := cfg.Alerts.Engine()
	engine, err := alerts.New(rules, hooks)
	if err != nil {
		return nil, err
	}

	weights := cfg.Weights.Scoring()
	if cfg.WeightsFile != "" {
		w, err := config.LoadWeightsFile(cfg.WeightsFile)
		if err != nil {
			return nil, err
		}
		weights = w
	}

	var svc *service.Service
	hub := ws.New(ws.WithOverview(func(ctx context.Context) (any, error) {
		return svc.Overview(ctx)
	}))

	svc = service.New(
		service.WithLogger(logger.Get().Named("service")),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithHistoryPoints(cfg.HistoryPoints),
		service.WithStore(store),
		service.WithGenerator(gen),
		service.WithAlerts(engine),
		service.WithPublisher(hub),
		service.WithWeights(weights),
	)

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithAIRateLimit(cfg.AI.ClientRequestsPerMinute, cfg.AI.ClientBurst),
		api.WithLiveUpdates(hub),
	)
	apiServer.Register(ctx, mux)

	log.Info(ctx, "components ready",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("aiProvider", cfg.AI.Provider),
		logger.Bool("aiConfigured", svc.AIConfigured()),
		logger.Int("alertRules", len(rules)),
		logger.Bool("tracing", cfg.Tracing.Enabled))

	return &application{cfg: cfg, svc: svc, hub: hub, tracer: tracer, handler: mux}, nil
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get().Named("main")

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	if err := app.svc.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		app.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		startServiceMetricsUpdater(gctx, app.svc)
		return nil
	})

	if cfg.WeightsFile != "" {
		g.Go(func() error {
			return config.WatchWeights(gctx, cfg.WeightsFile, func(w scoring.Weights) {
				app.svc.SetWeights(gctx, w)
			})
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
		}
		app.svc.Stop()
		if err := app.tracer.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "tracer shutdown failed", logger.Error(err))
		}
		return nil
	})

	err = g.Wait()
	log.Info(context.Background(), "server stopped")
	return err
}

// startServiceMetricsUpdater refreshes queue and worker gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
