// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon configuration: defaults, then an optional
// YAML file, then VPSPOOL_* environment variables.
package config

import (
	"time"

	"github.com/ManuGH/vpspool/internal/validate"
)

// AppConfig is the complete daemon configuration.
type AppConfig struct {
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`
	AdminToken string `yaml:"adminToken"`

	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Detector  DetectorConfig  `yaml:"detector"`
	Failover  FailoverConfig  `yaml:"failover"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Notify    NotifyConfig    `yaml:"notify"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig covers the API and metrics listeners.
type ServerConfig struct {
	ListenAddr        string        `yaml:"listenAddr"`
	MetricsListenAddr string        `yaml:"metricsListenAddr"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`
	// RequestsPerMinute limits each client IP across the API. 0 disables it.
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// DetectorConfig drives the offline sweep.
type DetectorConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	OfflineMultiplier int           `yaml:"offlineMultiplier"`
	SweepInterval     time.Duration `yaml:"sweepInterval"`
}

// OfflineThreshold is how long a node may stay silent.
func (d DetectorConfig) OfflineThreshold() time.Duration {
	return d.HeartbeatInterval * time.Duration(d.OfflineMultiplier)
}

// FailoverConfig configures the remote calls made while migrating a session.
type FailoverConfig struct {
	RemoteTimeout    time.Duration `yaml:"remoteTimeout"`
	BackupURL        string        `yaml:"backupURL"`
	BackupToken      string        `yaml:"backupToken"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// HeartbeatConfig throttles heartbeats per node.
type HeartbeatConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// NotifyConfig selects where operator events go. An empty RedisAddr logs them.
type NotifyConfig struct {
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	Channel       string `yaml:"channel"`
}

// TelemetryConfig mirrors telemetry.Config.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "vpspoold",
		Server: ServerConfig{
			ListenAddr:        ":8080",
			MetricsListenAddr: ":9090",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			ShutdownTimeout:   15 * time.Second,
			RequestsPerMinute: 600,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			Path:    "vpspool.db",
		},
		Detector: DetectorConfig{
			HeartbeatInterval: 30 * time.Second,
			OfflineMultiplier: 3,
			SweepInterval:     30 * time.Second,
		},
		Failover: FailoverConfig{
			RemoteTimeout:    10 * time.Second,
			BreakerThreshold: 3,
			BreakerReset:     30 * time.Second,
		},
		Heartbeat: HeartbeatConfig{
			Rate:  1,
			Burst: 5,
		},
		Notify: NotifyConfig{
			Channel: "vpspool:events",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			Insecure:     true,
			SamplingRate: 1.0,
		},
	}
}

// Validate checks the configuration for internal consistency.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)
	v.NotEmpty("adminToken", cfg.AdminToken)

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	if cfg.Server.MetricsListenAddr != "" {
		v.ListenAddr("server.metricsListenAddr", cfg.Server.MetricsListenAddr)
	}
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)
	if cfg.Server.RequestsPerMinute < 0 {
		v.AddError("server.requestsPerMinute", "must not be negative", cfg.Server.RequestsPerMinute)
	}

	v.OneOf("store.backend", cfg.Store.Backend, []string{"sqlite", "badger", "memory"})
	if cfg.Store.Backend == "sqlite" {
		v.NotEmpty("store.path", cfg.Store.Path)
	}

	v.PositiveDuration("detector.heartbeatInterval", cfg.Detector.HeartbeatInterval)
	v.PositiveDuration("detector.sweepInterval", cfg.Detector.SweepInterval)
	v.Range("detector.offlineMultiplier", cfg.Detector.OfflineMultiplier, 1, 100)

	v.PositiveDuration("failover.remoteTimeout", cfg.Failover.RemoteTimeout)
	v.URL("failover.backupURL", cfg.Failover.BackupURL, []string{"http", "https"})
	v.Range("failover.breakerThreshold", cfg.Failover.BreakerThreshold, 1, 1000)
	v.PositiveDuration("failover.breakerReset", cfg.Failover.BreakerReset)

	if cfg.Heartbeat.Rate <= 0 {
		v.AddError("heartbeat.rate", "must be positive", cfg.Heartbeat.Rate)
	}
	v.Range("heartbeat.burst", cfg.Heartbeat.Burst, 1, 10000)

	v.Range("notify.redisDB", cfg.Notify.RedisDB, 0, 15)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
