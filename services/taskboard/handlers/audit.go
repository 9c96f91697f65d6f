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

// AuditLister lists the audit log.
type AuditLister interface {
	ListLatestFirst(ctx context.Context) ([]datatypes.AuditEntry, error)
}

// ListAudit handles GET /v1/audit.
func ListAudit(log AuditLister) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ListAudit.handler")
		defer span.End()

		if _, err := currentActor(c); err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}

		entries, err := log.ListLatestFirst(ctx)
		if err != nil {
			respondError(c, span, err, msgTaskNotFound)
			return
		}
		span.SetAttributes(attribute.Int("audit.count", len(entries)))

		c.JSON(http.StatusOK, entries)
	}
}
