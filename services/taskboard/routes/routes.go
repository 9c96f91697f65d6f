// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/handlers"
	"github.com/AleutianAI/Taskboard/services/taskboard/identity"
	"github.com/AleutianAI/Taskboard/services/taskboard/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the route table hands to handlers.
type Deps struct {
	Tasks     handlers.TaskService
	Comments  handlers.CommentService
	Mentions  handlers.MentionInbox
	Audit     handlers.AuditLister
	Directory identity.Directory

	// Gatherer backs GET /metrics. Nil leaves the route unregistered.
	Gatherer prometheus.Gatherer

	// HookSecret guards the provisioning hook. Empty disables the check.
	HookSecret string

	Logger *slog.Logger
}

// SetupRoutes registers the health, metrics and /v1 routes on router.
//
// Everything under /v1 requires a bearer token validated by
// opts.AuthProvider, except the provisioning hook which is called by the
// identity provider and authenticates with the hook secret header.
func SetupRoutes(router *gin.Engine, deps Deps, opts extensions.ServiceOptions) {
	router.GET("/health", handlers.HealthCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.POST("/v1/hooks/user-confirmed",
		middleware.HookSecretMiddleware(deps.HookSecret),
		handlers.UserConfirmed(deps.Directory, deps.Logger))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.AuthProvider, deps.Logger))
	{
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", handlers.CreateTask(deps.Tasks))
			tasks.GET("", handlers.ListTasks(deps.Tasks))
			tasks.PATCH("/:taskId", handlers.UpdateTask(deps.Tasks))
			tasks.PUT("/:taskId", handlers.UpdateTask(deps.Tasks))
			tasks.DELETE("/:taskId", handlers.DeleteTask(deps.Tasks))

			tasks.POST("/:taskId/comments", handlers.AddComment(deps.Comments))
			tasks.GET("/:taskId/comments", handlers.ListComments(deps.Comments))
			tasks.PUT("/:taskId/comments/:commentId", handlers.EditComment(deps.Comments))
			tasks.PATCH("/:taskId/comments/:commentId", handlers.EditComment(deps.Comments))
			tasks.DELETE("/:taskId/comments/:commentId", handlers.DeleteComment(deps.Comments))
		}

		v1.GET("/mentions", handlers.ListMentions(deps.Mentions))
		v1.POST("/mentions/:key/read", handlers.MarkMentionRead(deps.Mentions))
		v1.GET("/audit", handlers.ListAudit(deps.Audit))
		v1.GET("/users", handlers.ListUsers(deps.Directory))
	}
}
