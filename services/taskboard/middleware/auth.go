// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides gin middleware for the taskboard HTTP API:
// bearer authentication, the provisioning hook secret, CORS and request
// metrics.
package middleware

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

// authInfoKey is the gin context key under which AuthInfo is stored.
const authInfoKey = "taskboard_auth_info"

// HookSecretHeader carries the shared secret on provisioning hook calls.
const HookSecretHeader = "X-Hook-Secret"

// =============================================================================
// Context Helpers
// =============================================================================

// SetAuthInfo stores the authenticated identity in the gin context.
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the authenticated identity from the gin context.
//
// Returns nil on routes that did not pass through AuthMiddleware.
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

// AuthMiddleware validates the bearer token with provider.
//
// # Description
//
// Extracts the token from "Authorization: Bearer <token>", validates it and
// stores the resulting AuthInfo for handlers. Rejected tokens abort with
// 401 {"message": "Unauthorized"}. Provider failures also abort with 401
// and are logged.
//
// # Inputs
//
//   - provider: The AuthProvider that validates tokens. Must not be nil.
//   - logger: Receives provider failures. Nil uses slog.Default().
//
// # Examples
//
//	v1 := router.Group("/v1")
//	v1.Use(middleware.AuthMiddleware(opts.AuthProvider, logger))
func AuthMiddleware(provider extensions.AuthProvider, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		authInfo, err := provider.Validate(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, extensions.ErrUnauthorized) {
				logger.Error("auth provider failed",
					slog.String("path", c.FullPath()),
					slog.String("error", err.Error()),
				)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Unauthorized",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// HookSecretMiddleware guards provisioning hooks with a shared secret.
//
// # Description
//
// Compares the X-Hook-Secret header against secret in constant time. An
// empty secret disables the check, which is only appropriate for local
// runs with auth mode none.
func HookSecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Unauthorized",
			})
			return
		}
		c.Next()
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// extractBearerToken extracts the token from the Authorization header.
//
// Returns "" when the header is missing or not a Bearer credential. The
// scheme is matched case-insensitively per RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
