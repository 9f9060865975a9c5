// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/vpspool/internal/config"
	"github.com/ManuGH/vpspool/internal/daemon"
	vplog "github.com/ManuGH/vpspool/internal/log"
	"github.com/ManuGH/vpspool/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	vplog.Configure(vplog.Config{
		Level:   "info",
		Service: "vpspoold",
		Version: version.Version,
	})
	logger := vplog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Precedence: ENV > File > Defaults
	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	vplog.Configure(vplog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version.Version,
	})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("config_source", source).
		Str("addr", cfg.Server.ListenAddr).
		Str("store", cfg.Store.Backend).
		Msg("starting vpspoold")

	rt, err := daemon.Bootstrap(ctx, cfg, config.NewConfigHolder(cfg, loader), version.Version)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "bootstrap.failed").
			Msg("failed to assemble daemon")
	}

	if err := rt.App.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon app failed")
		_ = rt.Close(context.Background())
		os.Exit(1)
	}

	logger.Info().Msg("server exiting")
}
