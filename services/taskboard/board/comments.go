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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/mentions"
)

// AddComment stores a comment on an existing task and increments the
// task's comment count in the same transaction, then propagates mentions in
// the body.
//
// # Outputs
//
//   - *datatypes.Comment: The stored comment.
//   - error: ErrValidation for an empty body, ErrNotFound for an unknown
//     task, storage errors otherwise.
func (b *Board) AddComment(ctx context.Context, actor datatypes.Actor, taskID string, req datatypes.CommentRequest) (*datatypes.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := datatypes.NewID()
	if err != nil {
		return nil, err
	}
	comment := &datatypes.Comment{
		CommentID: id,
		TaskID:    taskID,
		Body:      req.Body,
		UserID:    actor.ID,
		UserName:  actor.DisplayName,
		CreatedAt: b.now().UTC(),
	}
	task, err := b.store.AddComment(ctx, comment, b.countDelta(+1))
	if err != nil {
		return nil, err
	}

	b.mentions.Propagate(ctx, mentions.Source{
		Text:      comment.Body,
		Author:    actor,
		Task:      task,
		CommentID: comment.CommentID,
	})

	b.logger.Info("comment added",
		slog.String("task_id", taskID),
		slog.String("comment_id", id),
		slog.String("actor", actor.DisplayName),
	)
	return comment, nil
}

// EditComment replaces the body of a comment authored by actor, or of any
// comment for an admin, and appends an EDIT_COMMENT audit entry carrying
// the old and new bodies.
func (b *Board) EditComment(ctx context.Context, actor datatypes.Actor, taskID, commentID string, req datatypes.CommentRequest) (*datatypes.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var oldBody string
	updated, err := b.store.Comments().Update(ctx, taskID, commentID, func(c *datatypes.Comment) error {
		if !canModify(actor, c.UserID) {
			return fmt.Errorf("edit comment %s: %w", commentID, datatypes.ErrForbidden)
		}
		oldBody = c.Body
		c.Body = req.Body
		c.UpdatedAt = b.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.recordAudit(ctx, datatypes.AuditEntry{
		Action:    datatypes.ActionEditComment,
		TaskID:    taskID,
		TaskTitle: b.taskTitle(ctx, taskID),
		CommentID: commentID,
		OldValue:  oldBody,
		NewValue:  updated.Body,
		ActorName: actor.DisplayName,
		ActorID:   actor.ID,
	})

	b.logger.Info("comment edited",
		slog.String("task_id", taskID),
		slog.String("comment_id", commentID),
		slog.String("actor", actor.DisplayName),
	)
	return updated, nil
}

// DeleteComment removes a comment authored by actor, or any comment for an
// admin, together with the task's comment count decrement, then appends a
// DELETE_COMMENT audit entry carrying the deleted body.
func (b *Board) DeleteComment(ctx context.Context, actor datatypes.Actor, taskID, commentID string) error {
	comment, task, err := b.store.RemoveComment(ctx, taskID, commentID,
		func(c *datatypes.Comment) error {
			if !canModify(actor, c.UserID) {
				return fmt.Errorf("delete comment %s: %w", commentID, datatypes.ErrForbidden)
			}
			return nil
		},
		b.countDelta(-1),
	)
	if err != nil {
		return err
	}

	// A nil task was deleted before its comments.
	title := ""
	if task != nil {
		title = task.Title
	}

	b.recordAudit(ctx, datatypes.AuditEntry{
		Action:    datatypes.ActionDeleteComment,
		TaskID:    taskID,
		TaskTitle: title,
		CommentID: commentID,
		OldValue:  comment.Body,
		ActorName: actor.DisplayName,
		ActorID:   actor.ID,
	})

	b.logger.Info("comment deleted",
		slog.String("task_id", taskID),
		slog.String("comment_id", commentID),
		slog.String("actor", actor.DisplayName),
	)
	return nil
}

// ListComments returns the task's comments oldest first. An unknown task
// has no comments.
func (b *Board) ListComments(ctx context.Context, taskID string) ([]datatypes.Comment, error) {
	list, err := b.store.Comments().ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return list, nil
}

// countDelta returns the comment count change applied inside a comment
// transaction. With clamping enabled the count never drops below zero.
func (b *Board) countDelta(delta int) func(*datatypes.Task) {
	return func(t *datatypes.Task) {
		t.CommentCount += delta
		if b.clamp && t.CommentCount < 0 {
			t.CommentCount = 0
		}
	}
}

// taskTitle returns the current title, or "" when the task is gone.
func (b *Board) taskTitle(ctx context.Context, taskID string) string {
	task, err := b.store.Tasks().Get(ctx, taskID)
	if err != nil {
		return ""
	}
	return task.Title
}
