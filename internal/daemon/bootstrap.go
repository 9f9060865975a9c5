// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon assembles the pool daemon and owns its lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/vpspool/internal/api"
	"github.com/ManuGH/vpspool/internal/api/middleware"
	"github.com/ManuGH/vpspool/internal/backup"
	"github.com/ManuGH/vpspool/internal/config"
	poolmgr "github.com/ManuGH/vpspool/internal/domain/pool/manager"
	"github.com/ManuGH/vpspool/internal/domain/pool/store"
	"github.com/ManuGH/vpspool/internal/health"
	"github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/nodeclient"
	"github.com/ManuGH/vpspool/internal/notify"
	"github.com/ManuGH/vpspool/internal/ratelimit"
	"github.com/ManuGH/vpspool/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Runtime is a fully wired daemon.
type Runtime struct {
	App      *App
	Handler  http.Handler
	Pool     *poolmgr.Manager
	Detector *poolmgr.Detector
	Health   *health.Manager

	closeOnce sync.Once
	closeErr  error
	closers   []namedHook
}

// Bootstrap builds every component from cfg. The caller runs rt.App and,
// when Run is never called, releases resources with rt.Close.
func Bootstrap(ctx context.Context, cfg config.AppConfig, holder *config.ConfigHolder, version string) (_ *Runtime, err error) {
	logger := log.WithComponent("daemon")
	rt := &Runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.addCloser("telemetry", provider.Shutdown)

	st, err := store.OpenStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	rt.addCloser("store", func(context.Context) error { return st.Close() })

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewPingChecker("store", st))

	var (
		publisher notify.Publisher = notify.NewLogPublisher(log.WithComponent("notify"))
		events    api.EventSource
	)
	if cfg.Notify.RedisAddr != "" {
		rp, err := notify.NewRedisPublisher(notify.RedisConfig{
			Addr:     cfg.Notify.RedisAddr,
			Password: cfg.Notify.RedisPassword,
			DB:       cfg.Notify.RedisDB,
			Channel:  cfg.Notify.Channel,
		}, log.WithComponent("notify"))
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		rt.addCloser("redis", func(context.Context) error { return rp.Close() })
		hm.RegisterChecker(health.NewPingChecker("redis", rp))
		publisher, events = rp, rp
	}

	pool, err := poolmgr.New(poolmgr.Deps{
		Store:    st,
		Backup:   backup.NewHTTPService(cfg.Failover.BackupURL, cfg.Failover.BackupToken, cfg.Failover.RemoteTimeout),
		Restorer: nodeclient.New(nodeclient.Config{Timeout: cfg.Failover.RemoteTimeout, BreakerThreshold: cfg.Failover.BreakerThreshold, BreakerReset: cfg.Failover.BreakerReset}),
		Notifier: publisher,

		RemoteTimeout: cfg.Failover.RemoteTimeout,
	})
	if err != nil {
		return nil, err
	}

	detector := poolmgr.NewDetector(pool, poolmgr.DetectorConfig{
		HeartbeatInterval: cfg.Detector.HeartbeatInterval,
		OfflineMultiplier: cfg.Detector.OfflineMultiplier,
		SweepInterval:     cfg.Detector.SweepInterval,
	})
	// Three missed sweeps before readiness degrades.
	hm.RegisterChecker(health.NewLastRunChecker("offline_sweep", 3*cfg.Detector.SweepInterval, time.Now, detector.LastRun))

	limits := ratelimit.DefaultConfig()
	limits.PerKeyRate = rate.Limit(cfg.Heartbeat.Rate)
	limits.PerKeyBurst = cfg.Heartbeat.Burst

	stack := middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RequestsPerMinute:     cfg.Server.RequestsPerMinute,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = cfg.LogService
	}

	rt.Handler = api.New(api.Deps{
		Manager:          pool,
		Detector:         detector,
		AdminToken:       cfg.AdminToken,
		HeartbeatLimiter: ratelimit.New(limits, nil),
		Health:           hm,
		Events:           events,
		Stack:            stack,
	}).Handler()

	srv, err := NewManager(cfg.Server, Deps{
		Logger:         logger,
		APIHandler:     rt.Handler,
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.Server.MetricsListenAddr,
	})
	if err != nil {
		return nil, err
	}
	srv.RegisterShutdownHook("resources", rt.Close)

	rt.Pool = pool
	rt.Detector = detector
	rt.Health = hm
	rt.App = NewApp(logger, srv, holder, detector)

	logger.Info().
		Str("event", "bootstrap.done").
		Str("store", cfg.Store.Backend).
		Bool("redis", cfg.Notify.RedisAddr != "").
		Bool("tracing", cfg.Telemetry.Enabled).
		Dur("offline_threshold", cfg.Detector.OfflineThreshold()).
		Msg("daemon assembled")
	return rt, nil
}

func (rt *Runtime) addCloser(name string, fn ShutdownHook) {
	rt.closers = append(rt.closers, namedHook{name: name, hook: fn})
}

// Close releases the store, notifier and tracer in reverse order of
// creation. It is safe to call more than once.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.closeOnce.Do(func() {
		var errs []error
		for i := len(rt.closers) - 1; i >= 0; i-- {
			c := rt.closers[i]
			if err := c.hook(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
			}
		}
		rt.closeErr = errors.Join(errs...)
	})
	return rt.closeErr
}
