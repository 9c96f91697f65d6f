// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowHeaders = "Authorization,Content-Type"
	corsAllowMethods = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
)

// CORSMiddleware allows any origin on every response and answers
// preflight requests.
//
// # Description
//
// Every response carries Access-Control-Allow-Origin: *. OPTIONS requests
// are answered immediately with 204 plus the allowed headers, methods and
// an Access-Control-Max-Age of maxAge, without reaching auth or handlers.
func CORSMiddleware(maxAge time.Duration) gin.HandlerFunc {
	maxAgeSeconds := strconv.Itoa(int(maxAge / time.Second))
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Max-Age", maxAgeSeconds)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
