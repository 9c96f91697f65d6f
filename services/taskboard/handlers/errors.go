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
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/identity"
	"github.com/AleutianAI/Taskboard/services/taskboard/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("taskboard.handlers")

const (
	msgUnauthorized   = "Unauthorized"
	msgForbidden      = "Not allowed"
	msgInternal       = "Internal server error"
	msgInvalidBody    = "Invalid request body"
	msgTaskNotFound   = "Task not found"
	msgCommentMissing = "Comment not found"
	msgMentionMissing = "Mention not found"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, datatypes.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, datatypes.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, datatypes.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, datatypes.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the JSON error response for err.
//
// # Description
//
// Validation errors echo their message. Not-found errors use notFoundMsg.
// Anything unmapped is a 500 whose cause is logged and recorded on span
// but never sent to the client.
func respondError(c *gin.Context, span trace.Span, err error, notFoundMsg string) {
	status := statusFor(err)

	var message string
	switch status {
	case http.StatusBadRequest:
		message = msgInvalidBody
		var verr *datatypes.ValidationError
		if errors.As(err, &verr) {
			message = verr.Message
		}
	case http.StatusUnauthorized:
		message = msgUnauthorized
	case http.StatusForbidden:
		message = msgForbidden
	case http.StatusNotFound:
		message = notFoundMsg
	default:
		message = msgInternal
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("request failed",
			slog.String("route", c.FullPath()),
			slog.String("method", c.Request.Method),
			slog.String("error", err.Error()),
		)
	}

	if status != http.StatusInternalServerError {
		span.SetStatus(codes.Error, message)
	}
	c.JSON(status, gin.H{"message": message})
}

// currentActor reads the actor placed on the request by the auth
// middleware.
func currentActor(c *gin.Context) (datatypes.Actor, error) {
	return identity.CurrentActor(middleware.GetAuthInfo(c))
}

// bindJSON decodes the request body into v. An empty body leaves v at its
// zero value so that field validation reports what is missing; malformed
// JSON is a validation error.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		slog.Debug("request body rejected", slog.String("error", err.Error()))
		return datatypes.Invalid(msgInvalidBody)
	}
	return nil
}
