// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taskboard

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/telemetry"
	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeJWT  = "jwt"
	AuthModeNone = "none"
)

const (
	defaultPort       = 12220
	defaultCORSMaxAge = 10 * time.Minute
	defaultGCInterval = 5 * time.Minute
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// =============================================================================
// Configuration
// =============================================================================

// Config is the taskboard service configuration, normally read from
// ~/.taskboard/taskboard.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Comments  CommentsConfig  `yaml:"comments"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`

	// Logger is used by every component. Nil uses slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

type ServerConfig struct {
	Port int `yaml:"port"`

	// GinMode is "debug", "release" or "test". Default: release.
	GinMode string `yaml:"gin_mode"`

	// CORSMaxAge is sent as Access-Control-Max-Age on preflight
	// responses. Default: 10m.
	CORSMaxAge time.Duration `yaml:"cors_max_age"`
}

type StorageConfig struct {
	// Path is the BadgerDB directory. Supports ~ expansion.
	Path string `yaml:"path"`

	// InMemory keeps all data in memory and ignores Path.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every commit. Default: true.
	SyncWrites *bool `yaml:"sync_writes,omitempty"`

	// GCInterval is the value log GC period. Default: 5m.
	GCInterval time.Duration `yaml:"gc_interval"`
}

type AuthConfig struct {
	// Mode is "jwt" or "none". With "none" every request acts as a local
	// admin, which is only suitable for a single user on localhost.
	Mode string `yaml:"mode"`

	// JWTSecret verifies HS256 bearer tokens. At least
	// extensions.MinSecretLength bytes.
	JWTSecret string `yaml:"jwt_secret"`

	Issuer   string `yaml:"issuer,omitempty"`
	Audience string `yaml:"audience,omitempty"`

	// HookSecret guards the provisioning hook. Required with auth mode
	// jwt; empty disables the check under auth mode none.
	HookSecret string `yaml:"hook_secret"`
}

type CommentsConfig struct {
	// ClampCountAtZero keeps a task's commentCount from going negative
	// when comments are deleted. Default: true.
	ClampCountAtZero *bool `yaml:"clamp_count_at_zero,omitempty"`
}

type TelemetryConfig struct {
	// TraceExporter is "otlp", "stdout" or "none". Default: none.
	TraceExporter string `yaml:"trace_exporter"`

	// MetricExporter is "prometheus", "stdout" or "none". Default:
	// prometheus, which adds OpenTelemetry metrics to /metrics.
	MetricExporter string `yaml:"metric_exporter"`

	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Environment  string `yaml:"environment"`
}

type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is auto, text or json. Default: auto.
	Format string `yaml:"format"`

	// Dir enables the daily JSON log file.
	Dir string `yaml:"dir,omitempty"`
}

// DefaultConfig returns the configuration written on first run, minus the
// generated secrets.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:       defaultPort,
			GinMode:    "release",
			CORSMaxAge: defaultCORSMaxAge,
		},
		Storage: StorageConfig{
			Path:       filepath.Join(baseDir(), "data"),
			SyncWrites: boolPtr(true),
			GCInterval: defaultGCInterval,
		},
		Auth: AuthConfig{
			Mode: AuthModeJWT,
		},
		Comments: CommentsConfig{
			ClampCountAtZero: boolPtr(true),
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  telemetry.ExporterNone,
			MetricExporter: telemetry.ExporterPrometheus,
			OTLPEndpoint:   "localhost:4317",
			Environment:    "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// DefaultConfigPath is ~/.taskboard/taskboard.yaml.
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "taskboard.yaml")
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskboard"
	}
	return filepath.Join(home, ".taskboard")
}

// =============================================================================
// Loading
// =============================================================================

// LoadConfig reads the YAML config at path, creating it with defaults and
// freshly generated secrets if it does not exist.
//
// # Outputs
//
//   - Config: The file's values with defaults applied to unset fields.
//   - bool: True when the file was created by this call.
//   - error: Read, parse or create failures.
func LoadConfig(path string) (Config, bool, error) {
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return Config{}, false, err
		}
		created = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, false, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, false, fmt.Errorf("parse config %s: %w", path, err)
	}
	return applyConfigDefaults(cfg), created, nil
}

// createDefault writes DefaultConfig with random JWT and hook secrets.
func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg := DefaultConfig()
	var err error
	if cfg.Auth.JWTSecret, err = randomSecret(); err != nil {
		return err
	}
	if cfg.Auth.HookSecret, err = randomSecret(); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	// Secrets inside: owner-only.
	return os.WriteFile(path, data, 0600)
}

func randomSecret() (string, error) {
	b := make([]byte, extensions.MinSecretLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// applyConfigDefaults fills zero-valued fields from DefaultConfig.
func applyConfigDefaults(cfg Config) Config {
	def := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = def.Server.GinMode
	}
	if cfg.Server.CORSMaxAge == 0 {
		cfg.Server.CORSMaxAge = def.Server.CORSMaxAge
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Storage.SyncWrites == nil {
		cfg.Storage.SyncWrites = def.Storage.SyncWrites
	}
	if cfg.Storage.GCInterval == 0 {
		cfg.Storage.GCInterval = def.Storage.GCInterval
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = def.Auth.Mode
	}
	if cfg.Comments.ClampCountAtZero == nil {
		cfg.Comments.ClampCountAtZero = def.Comments.ClampCountAtZero
	}
	if cfg.Telemetry.TraceExporter == "" {
		cfg.Telemetry.TraceExporter = def.Telemetry.TraceExporter
	}
	if cfg.Telemetry.MetricExporter == "" {
		cfg.Telemetry.MetricExporter = def.Telemetry.MetricExporter
	}
	if cfg.Telemetry.OTLPEndpoint == "" {
		cfg.Telemetry.OTLPEndpoint = def.Telemetry.OTLPEndpoint
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = def.Telemetry.Environment
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	return cfg
}

// ApplyEnvOverrides overlays environment variables on cfg.
//
// # Inputs
//
//   - lookup: Usually os.LookupEnv.
//
// Recognized: TASKBOARD_PORT, TASKBOARD_DATA_DIR, TASKBOARD_JWT_SECRET,
// TASKBOARD_HOOK_SECRET, TASKBOARD_AUTH_MODE, OTEL_TRACES_EXPORTER,
// OTEL_EXPORTER_OTLP_ENDPOINT and GIN_MODE.
func ApplyEnvOverrides(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup("TASKBOARD_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: TASKBOARD_PORT %q", ErrInvalidConfig, v)
		}
		cfg.Server.Port = port
	}
	overrides := []struct {
		key string
		dst *string
	}{
		{"TASKBOARD_DATA_DIR", &cfg.Storage.Path},
		{"TASKBOARD_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"TASKBOARD_HOOK_SECRET", &cfg.Auth.HookSecret},
		{"TASKBOARD_AUTH_MODE", &cfg.Auth.Mode},
		{"OTEL_TRACES_EXPORTER", &cfg.Telemetry.TraceExporter},
		{"OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint},
		{"GIN_MODE", &cfg.Server.GinMode},
	}
	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Auth.Mode {
	case AuthModeNone:
	case AuthModeJWT:
		if len(c.Auth.JWTSecret) < extensions.MinSecretLength {
			return fmt.Errorf("%w: auth.jwt_secret must be at least %d bytes",
				ErrInvalidConfig, extensions.MinSecretLength)
		}
		if c.Auth.HookSecret == "" {
			return fmt.Errorf("%w: auth.hook_secret required with auth.mode jwt", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: auth.mode %q (want %s or %s)",
			ErrInvalidConfig, c.Auth.Mode, AuthModeJWT, AuthModeNone)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage.path required", ErrInvalidConfig)
	}
	return nil
}

// ClampCommentCount reports the effective comments.clamp_count_at_zero.
func (c Config) ClampCommentCount() bool {
	return c.Comments.ClampCountAtZero == nil || *c.Comments.ClampCountAtZero
}

func boolPtr(b bool) *bool { return &b }
