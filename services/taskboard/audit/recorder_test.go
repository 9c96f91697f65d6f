// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/observability"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) (*Recorder, *observability.Metrics) {
	t.Helper()
	db, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewRecorder(storage.NewStore(db), metrics), metrics
}

func TestRecorder_RecordAssignsIDAndTime(t *testing.T) {
	rec, metrics := newTestRecorder(t)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	entry, err := rec.Record(context.Background(), datatypes.AuditEntry{
		Action:    datatypes.ActionCreate,
		TaskID:    "t1",
		TaskTitle: "Ship release",
		ActorName: "alice",
		ActorID:   "sub-alice",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, fixed, entry.CreatedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuditEntriesTotal.WithLabelValues("CREATE")))
}

func TestRecorder_ListLatestFirst(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	for _, action := range []datatypes.AuditAction{
		datatypes.ActionCreate,
		datatypes.ActionUpdateStatus,
		datatypes.ActionUpdatePriority,
	} {
		_, err := rec.Record(ctx, datatypes.AuditEntry{Action: action, TaskID: "t1"})
		require.NoError(t, err)
	}

	entries, err := rec.ListLatestFirst(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, datatypes.ActionUpdatePriority, entries[0].Action)
	assert.Equal(t, datatypes.ActionCreate, entries[2].Action)
}

func TestRecorder_ListEmpty(t *testing.T) {
	rec, _ := newTestRecorder(t)

	entries, err := rec.ListLatestFirst(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
