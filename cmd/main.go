package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/pulse/internal/adapters/http/api"
	"github.com/okian/pulse/internal/adapters/http/site"
	"github.com/okian/pulse/internal/adapters/http/swagger"
	"github.com/okian/pulse/internal/adapters/mq"
	"github.com/okian/pulse/internal/adapters/mq/publisher"
	"github.com/okian/pulse/internal/adapters/ratelimit"
	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/adapters/repository/postgres"
	service "github.com/okian/pulse/internal/app"
	"github.com/okian/pulse/internal/config"
	"github.com/okian/pulse/internal/domain/themes"
	"github.com/okian/pulse/internal/seed"
	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
	"github.com/okian/pulse/pkg/token"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: logger has nothing buffered
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info(ctx, "server stopped")
	return err
}

// app holds the wired process components.
type app struct {
	handler    http.Handler
	store      repository.Store
	limiter    ratelimit.Limiter
	publisher  publisher.Publisher
	dispatcher *mq.Dispatcher
	log        logger.Logger
}

// newApp builds the store, limiter, event pipeline, service and routes from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.Get()
	a := &app{log: log}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	a.store = store

	dict := themes.Default()
	if cfg.ThemesFile != "" {
		if dict, err = themes.LoadFile(cfg.ThemesFile); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("load themes: %w", err)
		}
		log.Info(ctx, "loaded theme dictionary", logger.String("path", cfg.ThemesFile), logger.Int("themes", dict.Len()))
	}
	strategy, _ := themes.ParseStrategy(cfg.ThemeStrategy)

	if cfg.RedisAddr != "" {
		if a.limiter, err = ratelimit.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, log.Named("ratelimit")); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	} else {
		a.limiter = ratelimit.NewMemory()
	}

	if cfg.NATSURL != "" {
		if a.publisher, err = publisher.NewNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, log.Named("nats")); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("connect nats: %w", err)
		}
	} else {
		a.publisher = publisher.NewLog(cfg.NATSSubjectPrefix, log.Named("events"))
	}
	a.dispatcher = mq.NewDispatcher(a.publisher,
		mq.WithCapacity(cfg.EventQueueSize),
		mq.WithWorkers(cfg.WorkerCount),
		mq.WithLogger(log.Named("events")),
	)
	// Workers drain the queue on shutdown, so they outlive the request context.
	a.dispatcher.Start(context.WithoutCancel(ctx))

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.JWTTTL())
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	svc := service.New(store,
		service.WithClusterer(themes.NewClusterer(dict, themes.WithStrategy(strategy))),
		service.WithEmitter(a.dispatcher),
		service.WithTokenIssuer(issuer),
		service.WithDefaultPerRater(cfg.DefaultPerRater),
		service.WithLogger(log.Named("service")),
	)

	if cfg.SeedTeamCode != "" {
		if _, err := seed.Apply(ctx, svc, seed.Plan{
			TeamName:   cfg.SeedTeamName,
			TeamCode:   cfg.SeedTeamCode,
			Credential: cfg.SeedTeamCredential,
			Players:    cfg.SeedPlayerNames(),
		}); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("seed team: %w", err)
		}
	}

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithLimiter(a.limiter),
		api.WithRateLimits(cfg.LoginRateLimit, cfg.FeedbackRateLimit, cfg.RateWindow()),
		api.WithLogger(log.Named("http")),
	).Register(ctx, mux)
	a.handler = mux

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	if cfg.Store != config.StorePostgres {
		return repository.NewMemoryStore(), nil
	}
	if cfg.MigrationsAuto {
		m, err := postgres.NewMigrator(cfg.DatabaseURL, log.Named("migrate"))
		if err != nil {
			return nil, err
		}
		if err := m.Up(ctx); err != nil {
			return nil, err
		}
	}
	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return store, nil
}

// close drains the event pipeline and releases connections. Safe on a partly built app.
func (a *app) close(ctx context.Context) {
	if a.dispatcher != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		if err := a.dispatcher.Shutdown(shutdownCtx); err != nil {
			a.log.Warn(ctx, "event dispatcher shutdown", logger.Error(err))
		}
		cancel()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn(ctx, "publisher close", logger.Error(err))
		}
	}
	if a.limiter != nil {
		if err := a.limiter.Close(); err != nil {
			a.log.Warn(ctx, "limiter close", logger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn(ctx, "store close", logger.Error(err))
		}
	}
}

// startSystemMetricsUpdater samples runtime metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
