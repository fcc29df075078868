package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/box-estimator/internal/packer"
	"github.com/eugenenazirov/box-estimator/internal/packing"
	"github.com/eugenenazirov/box-estimator/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	// DriverMemory keeps the catalog or the cache in process memory.
	DriverMemory = "memory"
	// DriverSQLite reads the catalog from a SQLite database.
	DriverSQLite = "sqlite"
	// DriverRedis stores decisions in Redis.
	DriverRedis = "redis"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int

	Packer  PackerConfig
	Catalog CatalogConfig
	Cache   CacheConfig
}

// PackerConfig configures the external packing service client. Credentials
// come from the environment only.
type PackerConfig struct {
	URL      string
	Timeout  time.Duration
	RPS      float64
	Burst    int
	Username string
	APIKey   packer.Secret
}

// CatalogConfig selects the box catalog backend.
type CatalogConfig struct {
	Driver string
	Path   string
	Boxes  []packing.Box
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Driver        string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	LogLevel             string        `yaml:"log_level"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	Packer               yamlPacker    `yaml:"packer"`
	Catalog              yamlCatalog   `yaml:"catalog"`
	Cache                yamlCache     `yaml:"cache"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

type yamlPacker struct {
	URL     string   `yaml:"url"`
	Timeout string   `yaml:"timeout"`
	RPS     *float64 `yaml:"rps"`
	Burst   *int     `yaml:"burst"`
}

type yamlCatalog struct {
	Driver string    `yaml:"driver"`
	Path   string    `yaml:"path"`
	Boxes  []yamlBox `yaml:"boxes"`
}

type yamlBox struct {
	ID        int64   `yaml:"id"`
	Width     float64 `yaml:"width"`
	Height    float64 `yaml:"height"`
	Length    float64 `yaml:"length"`
	MaxWeight float64 `yaml:"max_weight"`
}

type yamlCache struct {
	Driver string    `yaml:"driver"`
	TTL    string    `yaml:"ttl"`
	Redis  yamlRedis `yaml:"redis"`
}

type yamlRedis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       *int   `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogLevel       *string
	PackerURL      *string
	PackerTimeout  *time.Duration
	CatalogDriver  *string
	CatalogPath    *string
	CacheDriver    *string
	RedisAddr      *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified (overrides environment)
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             "info",
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Packer: PackerConfig{
			URL:     packer.DefaultEndpoint,
			Timeout: packer.DefaultTimeout,
			Burst:   1,
		},
		Catalog: CatalogConfig{
			Driver: DriverMemory,
			Path:   "boxes.db",
			Boxes:  storage.DefaultBoxes(),
		},
		Cache: CacheConfig{
			Driver:      DriverMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "boxpack",
		},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		name  string
		raw   string
		field *time.Duration
	}{
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
		{"packer.timeout", yamlCfg.Packer.Timeout, &cfg.Packer.Timeout},
		{"cache.ttl", yamlCfg.Cache.TTL, &cfg.Cache.TTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.field = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if yamlCfg.Packer.URL != "" {
		cfg.Packer.URL = yamlCfg.Packer.URL
	}
	if yamlCfg.Packer.RPS != nil {
		cfg.Packer.RPS = *yamlCfg.Packer.RPS
	}
	if yamlCfg.Packer.Burst != nil {
		cfg.Packer.Burst = *yamlCfg.Packer.Burst
	}

	if yamlCfg.Catalog.Driver != "" {
		cfg.Catalog.Driver = strings.ToLower(yamlCfg.Catalog.Driver)
	}
	if yamlCfg.Catalog.Path != "" {
		cfg.Catalog.Path = yamlCfg.Catalog.Path
	}
	if len(yamlCfg.Catalog.Boxes) > 0 {
		boxes := make([]packing.Box, len(yamlCfg.Catalog.Boxes))
		for i, b := range yamlCfg.Catalog.Boxes {
			boxes[i] = packing.Box{ID: b.ID, Width: b.Width, Height: b.Height, Length: b.Length, MaxWeight: b.MaxWeight}
		}
		cfg.Catalog.Boxes = boxes
	}

	if yamlCfg.Cache.Driver != "" {
		cfg.Cache.Driver = strings.ToLower(yamlCfg.Cache.Driver)
	}
	if yamlCfg.Cache.Redis.Addr != "" {
		cfg.Cache.RedisAddr = yamlCfg.Cache.Redis.Addr
	}
	if yamlCfg.Cache.Redis.Password != "" {
		cfg.Cache.RedisPassword = yamlCfg.Cache.Redis.Password
	}
	if yamlCfg.Cache.Redis.DB != nil {
		cfg.Cache.RedisDB = *yamlCfg.Cache.Redis.DB
	}
	if yamlCfg.Cache.Redis.Prefix != "" {
		cfg.Cache.RedisPrefix = yamlCfg.Cache.Redis.Prefix
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := env("PORT"); port != "" {
		cfg.Port = port
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if url := env("PACKER_URL"); url != "" {
		cfg.Packer.URL = url
	}

	if raw := env("PACKER_TIMEOUT"); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("PACKER_TIMEOUT: %w", err)
		}
		cfg.Packer.Timeout = value
	}

	if rps := env("PACKER_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.Packer.RPS = value
		}
	}

	if burst := env("PACKER_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.Packer.Burst = value
		}
	}

	cfg.Packer.Username = env("CREDENTIALS_USERNAME")
	cfg.Packer.APIKey = packer.Secret(env("CREDENTIALS_API_KEY"))

	if driver := env("CATALOG_DRIVER"); driver != "" {
		cfg.Catalog.Driver = strings.ToLower(driver)
	}
	if path := env("CATALOG_PATH"); path != "" {
		cfg.Catalog.Path = path
	}

	if driver := env("CACHE_DRIVER"); driver != "" {
		cfg.Cache.Driver = strings.ToLower(driver)
	}
	if raw := env("CACHE_TTL"); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.Cache.TTL = value
	}
	if addr := env("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := env("REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if db := env("REDIS_DB"); db != "" {
		value, err := strconv.Atoi(db)
		if err != nil {
			return fmt.Errorf("REDIS_DB: invalid integer %q", db)
		}
		cfg.Cache.RedisDB = value
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.PackerURL != nil && *overrides.PackerURL != "" {
		cfg.Packer.URL = *overrides.PackerURL
	}

	if overrides.PackerTimeout != nil && *overrides.PackerTimeout > 0 {
		cfg.Packer.Timeout = *overrides.PackerTimeout
	}

	if overrides.CatalogDriver != nil && *overrides.CatalogDriver != "" {
		cfg.Catalog.Driver = strings.ToLower(*overrides.CatalogDriver)
	}

	if overrides.CatalogPath != nil && *overrides.CatalogPath != "" {
		cfg.Catalog.Path = *overrides.CatalogPath
	}

	if overrides.CacheDriver != nil && *overrides.CacheDriver != "" {
		cfg.Cache.Driver = strings.ToLower(*overrides.CacheDriver)
	}

	if overrides.RedisAddr != nil && *overrides.RedisAddr != "" {
		cfg.Cache.RedisAddr = *overrides.RedisAddr
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.Packer.Timeout <= 0 {
		return fmt.Errorf("packer timeout must be > 0")
	}
	if cfg.Packer.RPS < 0 || cfg.Packer.Burst < 0 {
		return fmt.Errorf("packer rate limit must be >= 0")
	}
	if cfg.Packer.URL == "" {
		return fmt.Errorf("packer URL cannot be empty")
	}
	switch cfg.Catalog.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("unknown catalog driver %q", cfg.Catalog.Driver)
	}
	if cfg.Catalog.Driver == DriverSQLite && cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog path cannot be empty for the sqlite driver")
	}
	for i, b := range cfg.Catalog.Boxes {
		if err := storage.ValidateBox(b); err != nil {
			return fmt.Errorf("catalog box %d: %w", i, err)
		}
	}
	switch cfg.Cache.Driver {
	case DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must be >= 0")
	}
	return nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
