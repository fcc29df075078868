package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eugenenazirov/box-estimator/internal/api"
	"github.com/eugenenazirov/box-estimator/internal/cache"
	"github.com/eugenenazirov/box-estimator/internal/config"
	"github.com/eugenenazirov/box-estimator/internal/estimator"
	"github.com/eugenenazirov/box-estimator/internal/packer"
	"github.com/eugenenazirov/box-estimator/internal/storage"
)

const backendStartupTimeout = 2 * time.Second

// App encapsulates the application dependencies and HTTP server.
type App struct {
	catalog storage.Catalog
	cache   cache.Cache
	packer  *packer.Client
	service *estimator.Service
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server

	closers []io.Closer
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), backendStartupTimeout)
	defer cancel()

	app := &App{logger: logger}

	catalog, err := app.openCatalog(ctx, cfg.Catalog)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open box catalog: %w", err), app.Close())
	}
	app.catalog = catalog

	resultCache, err := app.openCache(ctx, cfg.Cache)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to open result cache: %w", err), app.Close())
	}
	app.cache = resultCache

	if cfg.Packer.Username == "" || cfg.Packer.APIKey.Reveal() == "" {
		logger.Warn("packing service credentials not configured; every request will use the local fallback")
	}
	app.packer = packer.NewClient(
		packer.StaticCredentials{User: cfg.Packer.Username, Key: cfg.Packer.APIKey},
		packer.WithEndpoint(cfg.Packer.URL),
		packer.WithTimeout(cfg.Packer.Timeout),
		packer.WithRateLimit(cfg.Packer.RPS, cfg.Packer.Burst),
	)

	app.service = estimator.New(app.catalog, app.cache, app.packer, logger)
	app.handler = api.NewHandler(app.service, api.WithHandlerLogger(logger))
	app.router = api.NewRouter(app.handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	app.server = NewServer(cfg, BuildRootHandler(app.router))

	return app, nil
}

func (a *App) openCatalog(ctx context.Context, cfg config.CatalogConfig) (storage.Catalog, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		catalog, err := storage.NewSQLiteCatalog(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, catalog)

		seeded, err := catalog.Seed(ctx, cfg.Boxes)
		if err != nil {
			return nil, fmt.Errorf("seeding catalog: %w", err)
		}
		a.logger.Info("box catalog opened",
			zap.String("driver", cfg.Driver),
			zap.String("path", catalog.Path()),
			zap.Bool("seeded", seeded),
		)
		return catalog, nil
	case config.DriverMemory, "":
		catalog, err := storage.NewMemoryCatalog(cfg.Boxes)
		if err != nil {
			return nil, err
		}
		a.logger.Info("box catalog opened",
			zap.String("driver", config.DriverMemory),
			zap.Int("boxes", len(cfg.Boxes)),
		)
		return catalog, nil
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

func (a *App) openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		rc := cache.NewRedis(
			redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}),
			cache.WithPrefix(cfg.RedisPrefix),
			cache.WithRedisTTL(cfg.TTL),
		)
		a.closers = append(a.closers, rc)

		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("pinging redis at %s: %w", cfg.RedisAddr, err)
		}
		a.logger.Info("result cache opened",
			zap.String("driver", cfg.Driver),
			zap.String("addr", cfg.RedisAddr),
			zap.Duration("ttl", cfg.TTL),
		)
		return rc, nil
	case config.DriverMemory, "":
		a.logger.Info("result cache opened",
			zap.String("driver", config.DriverMemory),
			zap.Duration("ttl", cfg.TTL),
		)
		return cache.NewMemory(cache.WithTTL(cfg.TTL)), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

// BuildRootHandler constructs the root HTTP handler that routes API requests
// and answers everything else with 404.
func BuildRootHandler(apiHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/", http.NotFoundHandler())
	return mux
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Close releases the catalog and cache backends in reverse opening order.
// It is safe to call more than once.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
