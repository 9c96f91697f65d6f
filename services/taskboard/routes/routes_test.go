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
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// rejectAll refuses every token.
type rejectAll struct{}

func (rejectAll) Validate(context.Context, string) (*extensions.AuthInfo, error) {
	return nil, extensions.ErrUnauthorized
}

func newRouter(deps Deps, provider extensions.AuthProvider) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, deps, extensions.DefaultOptions().WithAuth(provider))
	return router
}

// ============================================================================
// Route Table Tests
// ============================================================================

func TestSetupRoutes_RegistersAll(t *testing.T) {
	router := newRouter(Deps{Gatherer: prometheus.NewRegistry()}, rejectAll{})

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/hooks/user-confirmed"},
		{"POST", "/v1/tasks"},
		{"GET", "/v1/tasks"},
		{"PATCH", "/v1/tasks/:taskId"},
		{"PUT", "/v1/tasks/:taskId"},
		{"DELETE", "/v1/tasks/:taskId"},
		{"POST", "/v1/tasks/:taskId/comments"},
		{"GET", "/v1/tasks/:taskId/comments"},
		{"PUT", "/v1/tasks/:taskId/comments/:commentId"},
		{"PATCH", "/v1/tasks/:taskId/comments/:commentId"},
		{"DELETE", "/v1/tasks/:taskId/comments/:commentId"},
		{"GET", "/v1/mentions"},
		{"POST", "/v1/mentions/:key/read"},
		{"GET", "/v1/audit"},
		{"GET", "/v1/users"},
	}

	registered := make(map[string]bool)
	for _, r := range router.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, e := range expected {
		assert.True(t, registered[e.method+" "+e.path], "missing route %s %s", e.method, e.path)
	}
}

func TestSetupRoutes_MetricsOptional(t *testing.T) {
	router := newRouter(Deps{}, rejectAll{})
	for _, r := range router.Routes() {
		assert.NotEqual(t, "/metrics", r.Path)
	}
}

// ============================================================================
// Auth Boundary Tests
// ============================================================================

func TestSetupRoutes_V1RequiresToken(t *testing.T) {
	router := newRouter(Deps{}, rejectAll{})

	for _, path := range []string{"/v1/tasks", "/v1/mentions", "/v1/audit", "/v1/users"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSetupRoutes_PublicRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "taskboard_probe_total", Help: "probe"}))
	router := newRouter(Deps{Gatherer: reg}, rejectAll{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskboard_probe_total")
}

func TestSetupRoutes_HookUsesSecretNotToken(t *testing.T) {
	router := newRouter(Deps{HookSecret: "s3cret"}, rejectAll{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/hooks/user-confirmed", strings.NewReader("not json")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/v1/hooks/user-confirmed", strings.NewReader("not json"))
	req.Header.Set(middleware.HookSecretHeader, "s3cret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not json", w.Body.String())
}
