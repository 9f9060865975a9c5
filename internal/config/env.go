// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/vpspool/internal/log"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "VPSPOOL_"

// envBinding ties one VPSPOOL_* key to the config field it overrides.
type envBinding struct {
	key   string
	apply func(cfg *AppConfig, raw string) error
}

func strVar(key string, field func(*AppConfig) *string) envBinding {
	return envBinding{key: key, apply: func(cfg *AppConfig, raw string) error {
		*field(cfg) = raw
		return nil
	}}
}

func intVar(key string, field func(*AppConfig) *int) envBinding {
	return envBinding{key: key, apply: func(cfg *AppConfig, raw string) error {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid integer %q", raw)
		}
		*field(cfg) = v
		return nil
	}}
}

func floatVar(key string, field func(*AppConfig) *float64) envBinding {
	return envBinding{key: key, apply: func(cfg *AppConfig, raw string) error {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", raw)
		}
		*field(cfg) = v
		return nil
	}}
}

func durVar(key string, field func(*AppConfig) *time.Duration) envBinding {
	return envBinding{key: key, apply: func(cfg *AppConfig, raw string) error {
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q", raw)
		}
		*field(cfg) = v
		return nil
	}}
}

// boolVar accepts true/false, 1/0 and yes/no in any case.
func boolVar(key string, field func(*AppConfig) *bool) envBinding {
	return envBinding{key: key, apply: func(cfg *AppConfig, raw string) error {
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			*field(cfg) = true
		case "false", "0", "no":
			*field(cfg) = false
		default:
			return fmt.Errorf("invalid boolean %q", raw)
		}
		return nil
	}}
}

var envBindings = []envBinding{
	strVar("LOG_LEVEL", func(c *AppConfig) *string { return &c.LogLevel }),
	strVar("LOG_SERVICE", func(c *AppConfig) *string { return &c.LogService }),
	strVar("ADMIN_TOKEN", func(c *AppConfig) *string { return &c.AdminToken }),

	strVar("LISTEN_ADDR", func(c *AppConfig) *string { return &c.Server.ListenAddr }),
	strVar("METRICS_LISTEN_ADDR", func(c *AppConfig) *string { return &c.Server.MetricsListenAddr }),
	durVar("READ_TIMEOUT", func(c *AppConfig) *time.Duration { return &c.Server.ReadTimeout }),
	durVar("WRITE_TIMEOUT", func(c *AppConfig) *time.Duration { return &c.Server.WriteTimeout }),
	durVar("IDLE_TIMEOUT", func(c *AppConfig) *time.Duration { return &c.Server.IdleTimeout }),
	durVar("SHUTDOWN_TIMEOUT", func(c *AppConfig) *time.Duration { return &c.Server.ShutdownTimeout }),
	intVar("REQUESTS_PER_MINUTE", func(c *AppConfig) *int { return &c.Server.RequestsPerMinute }),

	strVar("STORE_BACKEND", func(c *AppConfig) *string { return &c.Store.Backend }),
	strVar("STORE_PATH", func(c *AppConfig) *string { return &c.Store.Path }),

	durVar("HEARTBEAT_INTERVAL", func(c *AppConfig) *time.Duration { return &c.Detector.HeartbeatInterval }),
	intVar("OFFLINE_MULTIPLIER", func(c *AppConfig) *int { return &c.Detector.OfflineMultiplier }),
	durVar("SWEEP_INTERVAL", func(c *AppConfig) *time.Duration { return &c.Detector.SweepInterval }),

	durVar("REMOTE_TIMEOUT", func(c *AppConfig) *time.Duration { return &c.Failover.RemoteTimeout }),
	strVar("BACKUP_URL", func(c *AppConfig) *string { return &c.Failover.BackupURL }),
	strVar("BACKUP_TOKEN", func(c *AppConfig) *string { return &c.Failover.BackupToken }),
	intVar("BREAKER_THRESHOLD", func(c *AppConfig) *int { return &c.Failover.BreakerThreshold }),
	durVar("BREAKER_RESET", func(c *AppConfig) *time.Duration { return &c.Failover.BreakerReset }),

	floatVar("HEARTBEAT_RATE", func(c *AppConfig) *float64 { return &c.Heartbeat.Rate }),
	intVar("HEARTBEAT_BURST", func(c *AppConfig) *int { return &c.Heartbeat.Burst }),

	strVar("REDIS_ADDR", func(c *AppConfig) *string { return &c.Notify.RedisAddr }),
	strVar("REDIS_PASSWORD", func(c *AppConfig) *string { return &c.Notify.RedisPassword }),
	intVar("REDIS_DB", func(c *AppConfig) *int { return &c.Notify.RedisDB }),
	strVar("NOTIFY_CHANNEL", func(c *AppConfig) *string { return &c.Notify.Channel }),

	boolVar("TRACING_ENABLED", func(c *AppConfig) *bool { return &c.Telemetry.Enabled }),
	strVar("TRACING_ENVIRONMENT", func(c *AppConfig) *string { return &c.Telemetry.Environment }),
	strVar("TRACING_EXPORTER", func(c *AppConfig) *string { return &c.Telemetry.Exporter }),
	strVar("TRACING_ENDPOINT", func(c *AppConfig) *string { return &c.Telemetry.Endpoint }),
	boolVar("TRACING_INSECURE", func(c *AppConfig) *bool { return &c.Telemetry.Insecure }),
	floatVar("TRACING_SAMPLE_RATE", func(c *AppConfig) *float64 { return &c.Telemetry.SamplingRate }),
}

// applyEnv overlays set, non-empty VPSPOOL_* variables onto cfg and returns
// the full names of the keys it applied. Malformed values are collected into
// one error; the remaining keys are still applied.
func applyEnv(cfg *AppConfig, lookup func(string) (string, bool)) ([]string, error) {
	logger := log.WithComponent("config")
	var (
		applied []string
		errs    []error
	)
	for _, b := range envBindings {
		key := EnvPrefix + b.key
		raw, ok := lookup(key)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if err := b.apply(cfg, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		applied = append(applied, key)

		evt := logger.Debug().Str("key", key).Str("source", "environment")
		if isSensitiveKey(b.key) {
			evt = evt.Bool("sensitive", true)
		} else {
			evt = evt.Str("value", raw)
		}
		evt.Msg("config override from environment")
	}
	return applied, errors.Join(errs...)
}

// ConfigPathFromEnv returns VPSPOOL_CONFIG, trimmed.
func ConfigPathFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG"))
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range []string{"token", "password", "secret"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
