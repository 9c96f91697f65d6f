// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package audit appends and lists the immutable audit trail of task and
// comment mutations.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/observability"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
)

// Recorder writes audit entries to the record store.
//
// # Thread Safety
//
// Safe for concurrent use.
type Recorder struct {
	log     *storage.AuditLog
	metrics *observability.Metrics
	now     func() time.Time
}

// NewRecorder builds a recorder on the store's audit collection.
// metrics may be nil.
func NewRecorder(store *storage.Store, metrics *observability.Metrics) *Recorder {
	return &Recorder{
		log:     store.Audit(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Record appends one entry.
//
// # Description
//
// Assigns a fresh UUIDv7 id and the current time when the entry carries
// none, then writes it. Entries are never modified afterwards.
//
// # Outputs
//
//   - *datatypes.AuditEntry: The stored entry with id and timestamp set.
//   - error: Non-nil if id generation or the write fails.
func (r *Recorder) Record(ctx context.Context, entry datatypes.AuditEntry) (*datatypes.AuditEntry, error) {
	if entry.ID == "" {
		id, err := datatypes.NewID()
		if err != nil {
			return nil, err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	if err := r.log.Append(ctx, &entry); err != nil {
		return nil, fmt.Errorf("record %s audit entry: %w", entry.Action, err)
	}
	r.metrics.RecordAuditEntry(string(entry.Action))
	return &entry, nil
}

// ListLatestFirst returns the whole audit trail newest first.
func (r *Recorder) ListLatestFirst(ctx context.Context) ([]datatypes.AuditEntry, error) {
	return r.log.ListLatestFirst(ctx)
}
