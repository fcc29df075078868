package main

import (
	"testing"
	"time"

	"github.com/eugenenazirov/box-estimator/internal/config"
)

func TestParseFlagsLeavesUnsetValuesAlone(t *testing.T) {
	overrides, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.RateLimitRPS != nil || overrides.RateLimitBurst != nil {
		t.Fatalf("expected rate limit overrides to be unset")
	}
	if overrides.PackerTimeout != nil {
		t.Fatalf("expected packer timeout override to be unset")
	}
	if *overrides.Port != "" || *overrides.CatalogDriver != "" || *overrides.CacheDriver != "" {
		t.Fatalf("expected string overrides to be empty")
	}
}

func TestParseFlagsCollectsOverrides(t *testing.T) {
	overrides, err := parseFlags([]string{
		"--config", "service.yaml",
		"--port", "9000",
		"--log-level", "debug",
		"--rate-limit-rps", "0",
		"--rate-limit-burst", "7",
		"--packer-url", "http://packer.local/pack",
		"--packer-timeout", "750ms",
		"--catalog-driver", "sqlite",
		"--catalog-path", "/var/lib/boxes.db",
		"--cache-driver", "redis",
		"--redis-addr", "cache:6379",
	})
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.ConfigFile != "service.yaml" {
		t.Fatalf("unexpected config file %q", overrides.ConfigFile)
	}
	if *overrides.Port != "9000" || *overrides.LogLevel != "debug" {
		t.Fatalf("unexpected port or log level")
	}
	if overrides.RateLimitRPS == nil || *overrides.RateLimitRPS != 0 {
		t.Fatalf("expected explicit zero rps to be kept")
	}
	if overrides.RateLimitBurst == nil || *overrides.RateLimitBurst != 7 {
		t.Fatalf("expected burst 7")
	}
	if overrides.PackerTimeout == nil || *overrides.PackerTimeout != 750*time.Millisecond {
		t.Fatalf("expected packer timeout 750ms")
	}
	if *overrides.CatalogDriver != config.DriverSQLite || *overrides.CacheDriver != config.DriverRedis {
		t.Fatalf("unexpected drivers %q %q", *overrides.CatalogDriver, *overrides.CacheDriver)
	}
	if *overrides.PackerURL != "http://packer.local/pack" || *overrides.CatalogPath != "/var/lib/boxes.db" || *overrides.RedisAddr != "cache:6379" {
		t.Fatalf("unexpected string overrides")
	}
}

func TestParseFlagsRejectsUnknownDriver(t *testing.T) {
	if _, err := parseFlags([]string{"--cache-driver", "memcached"}); err == nil {
		t.Fatalf("expected error for unknown cache driver")
	}
}
