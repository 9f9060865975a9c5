// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
// defaults < file < environment.
type Loader struct {
	configPath string
	lookupEnv  func(string) (string, bool)

	// AppliedEnvKeys lists the VPSPOOL_* variables the last Load applied.
	AppliedEnvKeys []string
}

// NewLoader creates a loader. configPath may be empty for env-only setups.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		lookupEnv:  os.LookupEnv,
	}
}

// Path returns the config file path, if any.
func (l *Loader) Path() string { return l.configPath }

// Load builds and validates the configuration.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
	}

	applied, err := applyEnv(&cfg, l.lookupEnv)
	l.AppliedEnvKeys = applied
	if err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with strict parsing. Unknown fields
// are an error.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}
