// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers exposes the board over HTTP.
//
// Every handler is a gin.HandlerFunc closure over a small interface, runs
// inside its own span and answers errors with {"message": ...} using the
// status table in statusFor.
package handlers

import (
	"context"
	"net/http"

	"github.com/AleutianAI/Taskboard/services/taskboard/board"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TaskService is the task half of the board.
type TaskService interface {
	CreateTask(ctx context.Context, actor datatypes.Actor, req datatypes.CreateTaskRequest) (*datatypes.Task, error)
	UpdateTask(ctx context.Context, actor datatypes.Actor, taskID string, req datatypes.UpdateTaskRequest) (board.UpdateResult, error)
	DeleteTask(ctx context.Context, actor datatypes.Actor, taskID string) error
	ListTasks(ctx context.Context, actor datatypes.Actor) ([]datatypes.Task, error)
}

// CreateTask handles POST /v1/tasks.
func CreateTask(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "CreateTask.handler")
		defer span.End()

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		var req datatypes.CreateTaskRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		task, err := svc.CreateTask(ctx, actor, req)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		span.SetAttributes(attribute.String("task.id", task.ID))

		c.JSON(http.StatusCreated, gin.H{"message": "Task created", "taskId": task.ID})
	}
}

// ListTasks handles GET /v1/tasks.
func ListTasks(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ListTasks.handler")
		defer span.End()

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		tasks, err := svc.ListTasks(ctx, actor)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		span.SetAttributes(attribute.Int("task.count", len(tasks)))

		c.JSON(http.StatusOK, tasks)
	}
}

// UpdateTask handles PATCH and PUT /v1/tasks/:taskId.
func UpdateTask(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "UpdateTask.handler")
		defer span.End()

		taskID := c.Param("taskId")
		span.SetAttributes(attribute.String("task.id", taskID))

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		var req datatypes.UpdateTaskRequest
		if err := bindJSON(c, &req); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		result, err := svc.UpdateTask(ctx, actor, taskID, req)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		if len(result.Changed) == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "No changes"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task updated"})
	}
}

// DeleteTask handles DELETE /v1/tasks/:taskId.
func DeleteTask(svc TaskService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "DeleteTask.handler")
		defer span.End()

		taskID := c.Param("taskId")
		span.SetAttributes(attribute.String("task.id", taskID))

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		if err := svc.DeleteTask(ctx, actor, taskID); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
	}
}
