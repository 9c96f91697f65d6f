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

// MentionInbox reads and acknowledges a user's mentions.
type MentionInbox interface {
	List(ctx context.Context, recipient string) ([]datatypes.Mention, error)
	MarkRead(ctx context.Context, recipient, key string) (*datatypes.Mention, error)
}

// ListMentions handles GET /v1/mentions. Mentions are addressed by display
// name, so the caller sees the ones sent to their own name.
func ListMentions(inbox MentionInbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "ListMentions.handler")
		defer span.End()

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgMentionMissing)
			return
		}

		list, err := inbox.List(ctx, actor.DisplayName)
		if err != nil {
			respondError(c, span, err, msgMentionMissing)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// MarkMentionRead handles POST /v1/mentions/:key/read.
func MarkMentionRead(inbox MentionInbox) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "MarkMentionRead.handler")
		defer span.End()

		key := c.Param("key")
		span.SetAttributes(attribute.String("mention.key", key))

		actor, err := currentActor(c)
		if err != nil {
			respondError(c, span, err, msgMentionMissing)
			return
		}

		if _, err := inbox.MarkRead(ctx, actor.DisplayName, key); err != nil {
			respondError(c, span, err, msgMentionMissing)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
	}
}
