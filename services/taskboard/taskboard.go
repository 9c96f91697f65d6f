// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package taskboard provides the taskboard collaboration service.
//
// This package wires the components of the service together: the BadgerDB
// record store, the identity directory and resolver, the mention engine,
// the audit recorder, the board, Prometheus metrics, OpenTelemetry and the
// gin router.
//
// # Usage
//
//	cfg, _, err := taskboard.LoadConfig(taskboard.DefaultConfigPath())
//	if err != nil {
//	    return err
//	}
//	svc, err := taskboard.New(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	return svc.Run(ctx)
//
// A deployment with its own identity provider passes a custom
// extensions.AuthProvider through ServiceOptions:
//
//	opts := extensions.DefaultOptions().WithAuth(myProvider)
//	svc, err := taskboard.New(cfg, &opts)
package taskboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/audit"
	"github.com/AleutianAI/Taskboard/services/taskboard/board"
	"github.com/AleutianAI/Taskboard/services/taskboard/identity"
	"github.com/AleutianAI/Taskboard/services/taskboard/mentions"
	"github.com/AleutianAI/Taskboard/services/taskboard/middleware"
	"github.com/AleutianAI/Taskboard/services/taskboard/observability"
	"github.com/AleutianAI/Taskboard/services/taskboard/routes"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
	"github.com/AleutianAI/Taskboard/services/taskboard/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName     = "taskboard"
	shutdownTimeout = 10 * time.Second
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service is a configured taskboard server.
//
// # Thread Safety
//
// Run is called at most once. Router may be used concurrently once New
// returns.
type Service interface {
	// Run serves HTTP on the configured port until ctx is cancelled or the
	// listener fails, then shuts down gracefully and releases resources.
	Run(ctx context.Context) error

	// Router returns the gin engine with every route registered.
	Router() *gin.Engine

	// Close releases the store and telemetry without serving. Safe to
	// call more than once and after Run.
	Close() error
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config   Config
	opts     extensions.ServiceOptions
	logger   *slog.Logger
	router   *gin.Engine
	registry *prometheus.Registry
	db       *storage.DB

	telemetryShutdown func(context.Context) error
	closeOnce         sync.Once
	closeErr          error
}

// New builds the service from cfg.
//
// # Description
//
// Applies config defaults, validates, then initializes in order:
//  1. Prometheus registry with Go and process collectors
//  2. OpenTelemetry tracing and metrics
//  3. BadgerDB record store
//  4. Identity directory, resolver, mention engine, audit recorder, board
//  5. gin router with recovery, tracing, CORS, metrics and auth
//
// If opts is nil, or carries no AuthProvider, the provider is built from
// cfg.Auth.
//
// # Outputs
//
//   - Service: Ready to Run.
//   - error: Wraps ErrInvalidConfig, or the failing component's error.
//     Anything already opened is released.
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	cfg = applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &service{
		config:   cfg,
		logger:   cfg.Logger,
		registry: prometheus.NewRegistry(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	if opts != nil {
		s.opts = *opts
	}
	if s.opts.AuthProvider == nil {
		provider, err := authProviderFor(cfg.Auth)
		if err != nil {
			return nil, err
		}
		s.opts.AuthProvider = provider
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Telemetry.Environment,
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Registerer:     s.registry,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	s.db, err = storage.Open(storageConfig(cfg.Storage, s.logger))
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open record store: %w", err)
	}

	s.initRouter()

	s.logger.Info("taskboard initialized",
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("in_memory", s.db.InMemory()),
		slog.String("data_dir", s.db.Path()),
	)
	return s, nil
}

// authProviderFor builds the provider selected by cfg.Mode.
func authProviderFor(cfg AuthConfig) (extensions.AuthProvider, error) {
	switch cfg.Mode {
	case AuthModeNone:
		return &extensions.NopAuthProvider{}, nil
	case AuthModeJWT:
		provider, err := extensions.NewJWTAuthProvider(extensions.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.Issuer,
			Audience: cfg.Audience,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("%w: auth.mode %q", ErrInvalidConfig, cfg.Mode)
	}
}

// storageConfig maps the YAML storage section onto storage.Config.
func storageConfig(cfg StorageConfig, logger *slog.Logger) storage.Config {
	if cfg.InMemory {
		sc := storage.InMemoryConfig()
		sc.Logger = logger
		return sc
	}
	sc := storage.DefaultConfig()
	sc.Path = expandHome(cfg.Path)
	sc.SyncWrites = cfg.SyncWrites == nil || *cfg.SyncWrites
	sc.GCInterval = cfg.GCInterval
	sc.Logger = logger
	return sc
}

// OpenStore opens the record store described by cfg.Storage without
// starting a server. BadgerDB holds a directory lock, so this fails while
// a server is running on the same path.
func OpenStore(cfg Config) (*storage.Store, func() error, error) {
	cfg = applyConfigDefaults(cfg)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	db, err := storage.Open(storageConfig(cfg.Storage, logger))
	if err != nil {
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}
	return storage.NewStore(db), db.Close, nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// initRouter builds the domain components on the open store and registers
// every route.
func (s *service) initRouter() {
	store := storage.NewStore(s.db)
	metrics := observability.NewMetrics(s.registry)

	directory := identity.NewStoreDirectory(store)
	resolver := identity.NewResolver(directory)
	recorder := audit.NewRecorder(store, metrics)
	engine := mentions.NewEngine(mentions.Config{
		Resolver: resolver,
		Store:    store,
		Metrics:  metrics,
		Logger:   s.logger,
	})
	tb := board.New(board.Deps{
		Store:             store,
		Mentions:          engine,
		Audit:             recorder,
		Logger:            s.logger,
		ClampCommentCount: s.config.ClampCommentCount(),
	})

	gin.SetMode(s.config.Server.GinMode)
	s.router = gin.New()
	s.router.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.CORSMiddleware(s.config.Server.CORSMaxAge),
		middleware.MetricsMiddleware(metrics),
	)

	routes.SetupRoutes(s.router, routes.Deps{
		Tasks:      tb,
		Comments:   tb,
		Mentions:   engine,
		Audit:      recorder,
		Directory:  directory,
		Gatherer:   s.registry,
		HookSecret: s.config.Auth.HookSecret,
		Logger:     s.logger,
	}, s.opts)
}

// =============================================================================
// Service Interface Methods
// =============================================================================

func (s *service) Run(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting taskboard server", slog.Int("port", s.config.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down taskboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *service) Router() *gin.Engine {
	return s.router
}

func (s *service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.db != nil {
			if err := s.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close record store: %w", err))
			}
		}
		if s.telemetryShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.telemetryShutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
