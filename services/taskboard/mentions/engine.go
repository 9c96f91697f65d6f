// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mentions extracts @name references from task and comment text,
// notifies the referenced users and adds them to the task's participants.
//
// # Description
//
// Propagation is best-effort per name. A name that does not resolve is
// skipped silently; a name whose writes fail is logged and counted. In
// both cases the remaining names are still processed and the caller's
// primary write is unaffected.
package mentions

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/observability"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
)

// mentionPattern matches @name tokens. The name may contain letters,
// digits, underscore, dot and hyphen.
var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_.-]+)`)

// Extract returns the distinct names mentioned in text in first-seen order.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// IdentifierResolver maps a display name to a stable user identifier.
// Unknown names return an error wrapping datatypes.ErrNotFound.
type IdentifierResolver interface {
	ResolveIdentifier(ctx context.Context, displayName string) (string, error)
}

// Source is the text being scanned and where it was written.
type Source struct {
	Text      string
	Author    datatypes.Actor
	Task      *datatypes.Task
	CommentID string
}

// Recipient is a resolved mention.
type Recipient struct {
	Name             string
	ID               string
	MentionKey       string
	ParticipantAdded bool
}

// Config wires the engine's collaborators.
type Config struct {
	Resolver IdentifierResolver
	Store    *storage.Store
	Metrics  *observability.Metrics
	Logger   *slog.Logger

	// Now overrides the clock. Default: time.Now.
	Now func() time.Time
}

// Engine propagates mentions and serves the mention read state.
//
// # Thread Safety
//
// Safe for concurrent use. Participant appends are atomic per task.
type Engine struct {
	resolver IdentifierResolver
	tasks    *storage.Tasks
	mentions *storage.Mentions
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine builds an engine. Metrics may be nil; a nil Logger uses
// slog.Default().
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		resolver: cfg.Resolver,
		tasks:    cfg.Store.Tasks(),
		mentions: cfg.Store.Mentions(),
		metrics:  cfg.Metrics,
		logger:   logger.With(slog.String("component", "mentions")),
		now:      now,
	}
}

// errAlreadyParticipant aborts the participant transaction without a write.
var errAlreadyParticipant = errors.New("already a participant")

// Propagate notifies every user mentioned in src.Text.
//
// # Description
//
// For each distinct name other than the author's display name:
//
//  1. Resolve it. Unresolved names are skipped.
//  2. Skip it when it resolves to the author's own identifier.
//  3. Write an UNREAD mention addressed to the name.
//  4. Append the user to the task's participants unless already present.
//
// # Inputs
//
//   - ctx: Request context.
//   - src: The text, its author and the owning task. src.Task must be
//     non-nil.
//
// # Outputs
//
//   - []Recipient: The mentions that were written, in text order.
//
// # Limitations
//
//   - Never returns an error. Per-name failures are logged and counted
//     as MentionFailed.
func (e *Engine) Propagate(ctx context.Context, src Source) []Recipient {
	names := Extract(src.Text)
	if len(names) == 0 {
		return nil
	}

	var out []Recipient
	for _, name := range names {
		if name == src.Author.DisplayName {
			continue
		}
		rcpt, ok := e.propagateOne(ctx, src, name)
		if ok {
			out = append(out, rcpt)
		}
	}
	return out
}

func (e *Engine) propagateOne(ctx context.Context, src Source, name string) (Recipient, bool) {
	log := e.logger.With(
		slog.String("task_id", src.Task.ID),
		slog.String("mentioned", name),
	)

	id, err := e.resolver.ResolveIdentifier(ctx, name)
	if errors.Is(err, datatypes.ErrNotFound) {
		log.Debug("mentioned name did not resolve")
		e.metrics.RecordMention(observability.MentionUnresolved)
		return Recipient{}, false
	}
	if err != nil {
		log.Warn("mention resolution failed", slog.String("error", err.Error()))
		e.metrics.RecordMention(observability.MentionFailed)
		return Recipient{}, false
	}
	if id == src.Author.ID {
		return Recipient{}, false
	}

	key, err := datatypes.NewID()
	if err != nil {
		log.Warn("mention key generation failed", slog.String("error", err.Error()))
		e.metrics.RecordMention(observability.MentionFailed)
		return Recipient{}, false
	}
	mention := &datatypes.Mention{
		Recipient:     name,
		Key:           key,
		TaskID:        src.Task.ID,
		TaskTitle:     src.Task.Title,
		CommentID:     src.CommentID,
		Text:          src.Text,
		MentionedBy:   src.Author.DisplayName,
		MentionedByID: src.Author.ID,
		Status:        datatypes.MentionUnread,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.mentions.Put(ctx, mention); err != nil {
		log.Warn("mention write failed", slog.String("error", err.Error()))
		e.metrics.RecordMention(observability.MentionFailed)
		return Recipient{}, false
	}
	e.metrics.RecordMention(observability.MentionDelivered)

	rcpt := Recipient{Name: name, ID: id, MentionKey: key}
	added, err := e.addParticipant(ctx, src, datatypes.Participant{UserID: id, UserName: name})
	if err != nil {
		log.Warn("participant append failed", slog.String("error", err.Error()))
		e.metrics.RecordMention(observability.MentionFailed)
		return rcpt, true
	}
	if added {
		e.metrics.RecordParticipantAdded()
		log.Info("participant added via mention", slog.String("user_id", id))
	}
	rcpt.ParticipantAdded = added
	return rcpt, true
}

// addParticipant appends p to the task inside one transaction, so two
// concurrent mentions of the same user cannot both append.
func (e *Engine) addParticipant(ctx context.Context, src Source, p datatypes.Participant) (bool, error) {
	_, err := e.tasks.Update(ctx, src.Task.ID, func(t *datatypes.Task) error {
		if !t.AddParticipant(p) {
			return errAlreadyParticipant
		}
		t.UpdatedAt = e.now().UTC()
		t.UpdatedBy = src.Author.DisplayName
		return nil
	})
	if errors.Is(err, errAlreadyParticipant) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !src.Task.HasParticipant(p.UserID) {
		src.Task.AddParticipant(p)
	}
	return true, nil
}
