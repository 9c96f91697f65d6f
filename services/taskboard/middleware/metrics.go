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
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/observability"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request count and latency per route template.
//
// Requests that match no route are labelled "unmatched" so that arbitrary
// paths cannot grow label cardinality.
func MetricsMiddleware(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(route, c.Request.Method, c.Writer.Status(), time.Since(start).Seconds())
	}
}
