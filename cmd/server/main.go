package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/box-estimator/internal/application"
	"github.com/eugenenazirov/box-estimator/internal/config"
	"github.com/eugenenazirov/box-estimator/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "parsing flags")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)

	if err := app.Close(); err != nil {
		logger.Warn("closing backends failed", zap.Error(err))
	}
}

// parseFlags turns command-line arguments into configuration overrides. Flags
// left unset do not override lower-precedence sources.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	kingpinApp := kingpin.New("box-estimator", "Shipping Box Estimator - picks the smallest catalog box that holds a cart")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	packerURL := kingpinApp.Flag("packer-url", "Endpoint of the external packing service").String()
	packerTimeout := kingpinApp.Flag("packer-timeout", "Deadline for one call to the packing service").Duration()
	catalogDriver := kingpinApp.Flag("catalog-driver", "Box catalog backend").Enum("", config.DriverMemory, config.DriverSQLite)
	catalogPath := kingpinApp.Flag("catalog-path", "SQLite database holding the box catalog").String()
	cacheDriver := kingpinApp.Flag("cache-driver", "Result cache backend").Enum("", config.DriverMemory, config.DriverRedis)
	redisAddr := kingpinApp.Flag("redis-addr", "Redis address for the redis cache driver").String()

	if _, err := kingpinApp.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile:    *configFile,
		Port:          port,
		LogLevel:      logLevel,
		PackerURL:     packerURL,
		CatalogDriver: catalogDriver,
		CatalogPath:   catalogPath,
		CacheDriver:   cacheDriver,
		RedisAddr:     redisAddr,
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	if *packerTimeout > 0 {
		overrides.PackerTimeout = packerTimeout
	}

	return overrides, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
