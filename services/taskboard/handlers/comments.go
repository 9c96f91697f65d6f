// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"net/http"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// CommentService is the comment half of the board.
type CommentService interface {
	AddComment(ctx context.Context, actor datatypes.Actor, taskID string, req datatypes.CommentRequest) (*datatypes.Comment, error)
	EditComment(ctx context.Context, actor datatypes.Actor, taskID, commentID string, req datatypes.CommentRequest) (*datatypes.Comment, error)
	DeleteComment(ctx context.Context, actor datatypes.Actor, taskID, commentID string) error
	ListComments(ctx context.Context, taskID string) ([]datatypes.Comment, error)
}

// AddComment handles POST /v1/tasks/:taskId/comments.
func AddComment(svc CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "AddComment.handler")
		defer span.End()

		taskID := c.Param("taskId")
		span.SetAttributes(attribute.String("task.id", taskID))

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		var req datatypes.CommentRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		comment, err := svc.AddComment(ctx, actor, taskID, req)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		span.SetAttributes(attribute.String("comment.id", comment.CommentID))

		c.JSON(http.StatusCreated, gin.H{"message": "Comment added", "commentId": comment.CommentID})
	}
}

// ListComments handles GET /v1/tasks/:taskId/comments.
func ListComments(svc CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ListComments.handler")
		defer span.End()

		taskID := c.Param("taskId")
		span.SetAttributes(attribute.String("task.id", taskID))

		if _, err := currentActor(c); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		comments, err := svc.ListComments(ctx, taskID)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		c.JSON(http.StatusOK, comments)
	}
}

// EditComment handles PUT and PATCH /v1/tasks/:taskId/comments/:commentId.
func EditComment(svc CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "EditComment.handler")
		defer span.End()

		taskID, commentID := c.Param("taskId"), c.Param("commentId")
		span.SetAttributes(
			attribute.String("task.id", taskID),
			attribute.String("comment.id", commentID),
		)

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgCommentMissing)
			return
		}

		var req datatypes.CommentRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, span, err, msgCommentMissing)
			return
		}

		if _, err := svc.EditComment(ctx, actor, taskID, commentID, req); err != nil {
			respondError(c, span, err, msgCommentMissing)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment updated successfully"})
	}
}

// DeleteComment handles DELETE /v1/tasks/:taskId/comments/:commentId.
func DeleteComment(svc CommentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "DeleteComment.handler")
		defer span.End()

		taskID, commentID := c.Param("taskId"), c.Param("commentId")
		span.SetAttributes(
			attribute.String("task.id", taskID),
			attribute.String("comment.id", commentID),
		)

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgCommentMissing)
			return
		}

		if err := svc.DeleteComment(ctx, actor, taskID, commentID); err != nil {
			respondError(c, span, err, msgCommentMissing)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
	}
}
