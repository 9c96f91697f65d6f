// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package board implements the task and comment lifecycle.
//
// # Description
//
// Every operation takes the acting user explicitly and returns sentinel
// errors from datatypes (ErrValidation, ErrForbidden, ErrNotFound) wrapped
// with context. Mutations append audit entries through the Recorder, and
// text bodies are passed to the mention engine after the primary write.
//
// # Thread Safety
//
// Board is safe for concurrent use. Counter and participant updates run in
// store transactions.
package board

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/audit"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/mentions"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
)

// MentionPropagator is the part of the mention engine the board uses.
type MentionPropagator interface {
	Propagate(ctx context.Context, src mentions.Source) []mentions.Recipient
}

// Deps holds the board's collaborators.
type Deps struct {
	Store    *storage.Store
	Mentions MentionPropagator
	Audit    *audit.Recorder
	Logger   *slog.Logger

	// ClampCommentCount keeps commentCount from going below zero on
	// comment deletion.
	ClampCommentCount bool
}

// Board runs task and comment operations.
type Board struct {
	store    *storage.Store
	mentions MentionPropagator
	audit    *audit.Recorder
	logger   *slog.Logger
	clamp    bool
	now      func() time.Time
}

// New builds a Board. A nil Logger uses slog.Default().
func New(deps Deps) *Board {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		store:    deps.Store,
		mentions: deps.Mentions,
		audit:    deps.Audit,
		logger:   logger.With(slog.String("component", "board")),
		clamp:    deps.ClampCommentCount,
		now:      time.Now,
	}
}

// errNoChanges aborts an update transaction that would write nothing.
var errNoChanges = errors.New("no changes")

// canModify reports whether actor may change a record owned by ownerID.
func canModify(actor datatypes.Actor, ownerID string) bool {
	return actor.ID == ownerID || actor.IsAdmin()
}

// recordAudit appends entry and logs a failure. The primary write has
// already succeeded by the time audit runs, so failures are not returned.
func (b *Board) recordAudit(ctx context.Context, entry datatypes.AuditEntry) {
	if _, err := b.audit.Record(ctx, entry); err != nil {
		b.logger.Error("audit write failed",
			slog.String("action", string(entry.Action)),
			slog.String("task_id", entry.TaskID),
			slog.String("error", err.Error()),
		)
	}
}
