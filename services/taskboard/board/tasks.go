// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/mentions"
)

// CreateTask validates req, stores a new task owned by actor and
// propagates mentions found in the description.
//
// # Description
//
// The owner is the sole initial participant. Category, status and
// priority default to general, todo and medium; status is lower-cased.
// A CREATE audit entry is appended after the task is stored.
//
// # Outputs
//
//   - *datatypes.Task: The task as stored, with any participants added
//     by mentions in the description.
//   - error: ErrValidation for an empty title; storage errors otherwise.
func (b *Board) CreateTask(ctx context.Context, actor datatypes.Actor, req datatypes.CreateTaskRequest) (*datatypes.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.EnsureDefaults()

	id, err := datatypes.NewID()
	if err != nil {
		return nil, err
	}
	now := b.now().UTC()
	owner := datatypes.Participant{UserID: actor.ID, UserName: actor.DisplayName}
	task := &datatypes.Task{
		ID:             id,
		TaskID:         id,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Status:         req.Status,
		Priority:       req.Priority,
		OwnerID:        actor.ID,
		OwnerName:      actor.DisplayName,
		Participants:   []datatypes.Participant{owner},
		ParticipantIDs: []string{owner.UserID},
		CreatedAt:      now,
		CreatedBy:      actor.DisplayName,
		UpdatedAt:      now,
		UpdatedBy:      actor.DisplayName,
	}
	if err := b.store.Tasks().Put(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	b.mentions.Propagate(ctx, mentions.Source{
		Text:   task.Description,
		Author: actor,
		Task:   task,
	})

	b.recordAudit(ctx, datatypes.AuditEntry{
		Action:    datatypes.ActionCreate,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		ActorName: actor.DisplayName,
		ActorID:   actor.ID,
	})

	b.logger.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("actor", actor.DisplayName),
	)
	return task, nil
}

// UpdateResult lists the audit actions an update produced. Empty means
// the request carried no effective change.
type UpdateResult struct {
	Changed []datatypes.AuditAction
}

type fieldChange struct {
	action   datatypes.AuditAction
	before, after string
}

// UpdateTask changes status and/or priority.
//
// # Description
//
// Only fields present in req and different from the stored value count
// as changes. With no changes nothing is written. Otherwise every changed
// field, UpdatedAt and UpdatedBy are written in one transaction, followed
// by one audit entry per changed field.
//
// # Outputs
//
//   - UpdateResult: The changed fields as audit actions.
//   - error: ErrNotFound, ErrForbidden, ErrValidation, or storage errors.
func (b *Board) UpdateTask(ctx context.Context, actor datatypes.Actor, taskID string, req datatypes.UpdateTaskRequest) (UpdateResult, error) {
	if err := req.Validate(); err != nil {
		return UpdateResult{}, err
	}

	var changes []fieldChange
	var title string
	_, err := b.store.Tasks().Update(ctx, taskID, func(t *datatypes.Task) error {
		if !canModify(actor, t.OwnerID) {
			return fmt.Errorf("update task %s: %w", taskID, datatypes.ErrForbidden)
		}
		changes = changes[:0]
		if req.Status != nil && *req.Status != t.Status {
			changes = append(changes, fieldChange{datatypes.ActionUpdateStatus, t.Status, *req.Status})
			t.Status = *req.Status
		}
		if req.Priority != nil && *req.Priority != t.Priority {
			changes = append(changes, fieldChange{datatypes.ActionUpdatePriority, t.Priority, *req.Priority})
			t.Priority = *req.Priority
		}
		if len(changes) == 0 {
			return errNoChanges
		}
		t.UpdatedAt = b.now().UTC()
		t.UpdatedBy = actor.DisplayName
		title = t.Title
		return nil
	})
	if errors.Is(err, errNoChanges) {
		return UpdateResult{}, nil
	}
	if err != nil {
		return UpdateResult{}, err
	}

	result := UpdateResult{Changed: make([]datatypes.AuditAction, 0, len(changes))}
	for _, c := range changes {
		b.recordAudit(ctx, datatypes.AuditEntry{
			Action:    c.action,
			TaskID:    taskID,
			TaskTitle: title,
			OldValue:  c.before,
			NewValue:  c.after,
			ActorName: actor.DisplayName,
			ActorID:   actor.ID,
		})
		result.Changed = append(result.Changed, c.action)
	}

	b.logger.Info("task updated",
		slog.String("task_id", taskID),
		slog.String("actor", actor.DisplayName),
		slog.Int("changes", len(changes)),
	)
	return result, nil
}

// DeleteTask removes a task owned by actor, or any task for an admin.
//
// Comments and mentions that reference the task are kept.
func (b *Board) DeleteTask(ctx context.Context, actor datatypes.Actor, taskID string) error {
	task, err := b.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return err
	}
	if !canModify(actor, task.OwnerID) {
		return fmt.Errorf("delete task %s: %w", taskID, datatypes.ErrForbidden)
	}
	if err := b.store.Tasks().Delete(ctx, taskID); err != nil {
		return err
	}

	b.recordAudit(ctx, datatypes.AuditEntry{
		Action:    datatypes.ActionDelete,
		TaskID:    taskID,
		TaskTitle: task.Title,
		ActorName: actor.DisplayName,
		ActorID:   actor.ID,
	})

	b.logger.Info("task deleted",
		slog.String("task_id", taskID),
		slog.String("actor", actor.DisplayName),
	)
	return nil
}

// ListTasks returns the tasks visible to actor, most recently active first.
//
// Admins see every task. Everyone else sees the tasks they participate in.
func (b *Board) ListTasks(ctx context.Context, actor datatypes.Actor) ([]datatypes.Task, error) {
	all, err := b.store.Tasks().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	visible := all
	if !actor.IsAdmin() {
		visible = make([]datatypes.Task, 0, len(all))
		for i := range all {
			if all[i].HasParticipant(actor.ID) {
				visible = append(visible, all[i])
			}
		}
	}

	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].LastActivity().After(visible[j].LastActivity())
	})
	return visible, nil
}
