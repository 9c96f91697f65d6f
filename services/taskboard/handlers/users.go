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
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/identity"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// UserSummary is the public view of a directory user.
type UserSummary struct {
	Username string `json:"username"`
	Sub      string `json:"sub"`
}

// ListUsers handles GET /v1/users.
func ListUsers(dir identity.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ListUsers.handler")
		defer span.End()

		if _, err := currentActor(c); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		users, err := dir.ListUsers(ctx)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		out := make([]UserSummary, 0, len(users))
		for _, u := range users {
			out = append(out, UserSummary{Username: u.Username, Sub: u.Sub})
		}
		c.JSON(http.StatusOK, out)
	}
}

// UserConfirmed handles POST /v1/hooks/user-confirmed.
//
// # Description
//
// Registers the confirmed identity in the directory if absent and adds it
// to datatypes.DefaultUserGroup. Provisioning failures are logged and
// never change the response: the raw event is always echoed back with 200
// so the identity provider completes the sign-up.
func UserConfirmed(dir identity.Directory, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "UserConfirmed.handler")
		defer span.End()

		raw, err := c.GetRawData()
		if err != nil {
			logger.Error("read provisioning event", slog.String("error", err.Error()))
			c.Status(http.StatusOK)
			return
		}

		var event datatypes.UserConfirmedEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Error("decode provisioning event", slog.String("error", err.Error()))
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
		span.SetAttributes(attribute.String("user.name", event.UserName))

		user := datatypes.User{
			Username: event.UserName,
			Sub:      event.Subject(),
			Email:    event.Email(),
		}
		if _, err := dir.RegisterUser(ctx, user); err != nil {
			span.RecordError(err)
			logger.Error("register confirmed user",
				slog.String("user", event.UserName),
				slog.String("error", err.Error()),
			)
		} else if err := dir.AddUserToGroup(ctx, user.Username, datatypes.DefaultUserGroup); err != nil {
			span.RecordError(err)
			logger.Error("add confirmed user to group",
				slog.String("user", event.UserName),
				slog.String("group", datatypes.DefaultUserGroup),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("user provisioned",
				slog.String("user", user.Username),
				slog.String("group", datatypes.DefaultUserGroup),
			)
		}

		c.Data(http.StatusOK, "application/json", raw)
	}
}
