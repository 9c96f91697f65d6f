// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage is the record store for the taskboard service.
//
// Records live in a single embedded BadgerDB instance, partitioned into
// typed collections by key prefix:
//
//	task/<taskId>
//	comment/<taskId>/<commentId>
//	mention/<recipient>/<key>
//	audit/<entryId>
//	user/<username>
//
// Identifiers are UUIDv7, so lexical key order is creation order and a
// reverse prefix scan yields newest first.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for the record store database.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Ignored when InMemory is true.
	Path string

	// InMemory keeps every record in RAM. Used by tests and the
	// storage.in_memory config flag.
	InMemory bool

	// SyncWrites fsyncs each commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil silences them.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64

	// TxnRetryTimeout bounds how long a conflicting read-write
	// transaction is replayed, with jittered exponential backoff, before
	// the conflict is returned. The caller's context can end it sooner.
	TxnRetryTimeout time.Duration
}

const defaultTxnRetryTimeout = 30 * time.Second

// DefaultConfig returns the production configuration.
//
// Description:
//
//	Durable writes, 5-minute value log GC at a 0.5 discard ratio and up
//	to 30 seconds of backoff for conflicting transactions. Path must still
//	be set.
func DefaultConfig() Config {
	return Config{
		SyncWrites:      true,
		GCInterval:      5 * time.Minute,
		GCDiscardRatio:  0.5,
		TxnRetryTimeout: defaultTxnRetryTimeout,
	}
}

// InMemoryConfig returns the configuration used by tests.
func InMemoryConfig() Config {
	return Config{
		InMemory:        true,
		TxnRetryTimeout: defaultTxnRetryTimeout,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

// =============================================================================
// DB
// =============================================================================

// DB owns the BadgerDB handle and its background GC.
//
// # Thread Safety
//
// Safe for concurrent use. Each request runs its own transactions.
type DB struct {
	bdb          *badger.DB
	gc           *gcRunner
	path         string
	inMemory     bool
	retryTimeout time.Duration
}

// Open opens the record store database.
//
// # Description
//
// Opens BadgerDB at cfg.Path (created if missing) or in memory, and starts
// value log GC when cfg.GCInterval is positive on a persistent database.
//
// # Inputs
//
//   - cfg: Database configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *DB: The opened database. Caller must Close it.
//   - error: Non-nil if the path is missing or BadgerDB fails to open.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("storage path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create storage directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	retryTimeout := cfg.TxnRetryTimeout
	if retryTimeout <= 0 {
		retryTimeout = defaultTxnRetryTimeout
	}
	db := &DB{
		bdb:          bdb,
		path:         cfg.Path,
		inMemory:     cfg.InMemory,
		retryTimeout: retryTimeout,
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		db.gc = newGCRunner(bdb, cfg.GCInterval, ratio, cfg.Logger)
		db.gc.start()
	}
	return db, nil
}

// OpenInMemory opens an empty in-memory database. Data is lost on Close.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

// Close stops GC and closes BadgerDB.
func (d *DB) Close() error {
	if d.gc != nil {
		d.gc.stop()
	}
	return d.bdb.Close()
}

// Path returns the database directory, or "" for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// InMemory reports whether the database keeps records in RAM only.
func (d *DB) InMemory() bool {
	return d.inMemory
}

// Update runs fn in a read-write transaction and commits it.
//
// # Description
//
// When the commit fails with badger.ErrConflict the whole transaction,
// including fn, is replayed after a jittered exponential backoff until it
// commits, ctx ends, or Config.TxnRetryTimeout elapses. fn must therefore
// be free of side effects outside the transaction.
//
// # Inputs
//
//   - ctx: Ends the retry loop when done.
//   - fn: Transaction body. A non-nil return discards the transaction and
//     is returned unchanged without a retry.
//
// # Outputs
//
//   - error: fn's error, the commit error, or the context's error.
func (d *DB) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := d.bdb.Update(fn)
		if err != nil && !errors.Is(err, badger.ErrConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(newTxnBackOff()),
		backoff.WithMaxElapsedTime(d.retryTimeout),
	)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("transaction retries exhausted: %w", err)
	}
	return err
}

// newTxnBackOff returns the schedule for one Update call. Conflicts clear
// within a few commits, so intervals start at a millisecond.
func newTxnBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = 50 * time.Millisecond
	return b
}

// View runs fn in a read-only transaction.
func (d *DB) View(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return d.bdb.View(fn)
}

// =============================================================================
// Value log GC
// =============================================================================

type gcRunner struct {
	bdb      *badger.DB
	interval time.Duration
	ratio    float64
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newGCRunner(bdb *badger.DB, interval time.Duration, ratio float64, logger *slog.Logger) *gcRunner {
	return &gcRunner{
		bdb:      bdb,
		interval: interval,
		ratio:    ratio,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.collect()
		}
	}
}

func (r *gcRunner) collect() {
	// ErrNoRewrite means there was nothing worth rewriting.
	err := r.bdb.RunValueLogGC(r.ratio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && r.logger != nil {
		r.logger.Warn("value log GC failed", slog.String("error", err.Error()))
	}
}
