// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taskboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/middleware"
	"github.com/AleutianAI/Taskboard/services/taskboard/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	testHookSecret = "hook-secret"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Server.GinMode = gin.TestMode
	cfg.Storage.InMemory = true
	cfg.Auth.JWTSecret = testSecret
	cfg.Auth.HookSecret = testHookSecret
	cfg.Telemetry.TraceExporter = telemetry.ExporterNone
	cfg.Telemetry.MetricExporter = telemetry.ExporterNone
	return cfg
}

// client drives the router as one user.
type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newService(t *testing.T, cfg Config) Service {
	t.Helper()
	svc, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func as(t *testing.T, svc Service, sub, username string, groups ...string) *client {
	t.Helper()
	token, err := extensions.IssueToken([]byte(testSecret), extensions.TokenRequest{
		Subject:  sub,
		Username: username,
		Groups:   groups,
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return &client{t: t, router: svc.Router(), token: token}
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func provision(t *testing.T, svc Service, username, sub string) {
	t.Helper()
	body := `{"userName":"` + username + `","request":{"userAttributes":{"sub":"` + sub + `"}}}`
	req := httptest.NewRequest("POST", "/v1/hooks/user-confirmed", strings.NewReader(body))
	req.Header.Set(middleware.HookSecretHeader, testHookSecret)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	_, err := New(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNew_AuthModeNone(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Mode = AuthModeNone
	cfg.Auth.JWTSecret = ""
	svc := newService(t, cfg)

	// Every caller is the local admin.
	w := (&client{t: t, router: svc.Router()}).do("POST", "/v1/tasks", `{"title":"Local"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}

// fixedProvider authenticates every request as one user.
type fixedProvider struct{ info extensions.AuthInfo }

func (p fixedProvider) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	info := p.info
	return &info, nil
}

func TestNew_CustomAuthProvider(t *testing.T) {
	opts := extensions.DefaultOptions().WithAuth(fixedProvider{
		info: extensions.AuthInfo{UserID: "S1", Username: "sso-user"},
	})
	svc, err := New(testConfig(), &opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	anon := &client{t: t, router: svc.Router()}
	require.Equal(t, http.StatusCreated, anon.do("POST", "/v1/tasks", `{"title":"From SSO"}`).Code)

	tasks := decode[[]datatypes.Task](t, anon.do("GET", "/v1/tasks", ""))
	require.Len(t, tasks, 1)
	assert.Equal(t, "sso-user", tasks[0].OwnerName)
}

func TestNew_OnDisk(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.InMemory = false
	cfg.Storage.Path = t.TempDir()

	svc := newService(t, cfg)
	alice := as(t, svc, "U1", "alice")
	w := alice.do("POST", "/v1/tasks", `{"title":"Persisted"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, svc.Close())
	assert.NoError(t, svc.Close())

	reopened := newService(t, cfg)
	tasks := decode[[]datatypes.Task](t, as(t, reopened, "U1", "alice").do("GET", "/v1/tasks", ""))
	require.Len(t, tasks, 1)
	assert.Equal(t, "Persisted", tasks[0].Title)
}

// =============================================================================
// End-to-end Scenario Tests
// =============================================================================

func TestScenario_ShipRelease(t *testing.T) {
	svc := newService(t, testConfig())
	provision(t, svc, "alice", "U1")
	provision(t, svc, "bob", "U2")
	alice := as(t, svc, "U1", "alice")
	bob := as(t, svc, "U2", "bob")

	w := alice.do("POST", "/v1/tasks", `{"title":"Ship release","description":"cc @bob"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]string](t, w)
	assert.Equal(t, "Task created", created["message"])
	taskID := created["taskId"]
	require.NotEmpty(t, taskID)

	// bob became a participant and can see the task.
	tasks := decode[[]datatypes.Task](t, bob.do("GET", "/v1/tasks", ""))
	require.Len(t, tasks, 1)
	assert.Equal(t, taskID, tasks[0].TaskID)
	assert.Equal(t, []string{"U1", "U2"}, tasks[0].ParticipantIDs)
	assert.Equal(t, "alice", tasks[0].Participants[0].UserName)

	// bob has one unread mention.
	inbox := decode[[]datatypes.Mention](t, bob.do("GET", "/v1/mentions", ""))
	require.Len(t, inbox, 1)
	assert.Equal(t, datatypes.MentionUnread, inbox[0].Status)
	assert.Equal(t, "Ship release", inbox[0].TaskTitle)
	assert.Equal(t, "alice", inbox[0].MentionedBy)

	// Marking read twice succeeds both times.
	for i := 0; i < 2; i++ {
		w = bob.do("POST", "/v1/mentions/"+inbox[0].Key+"/read", "")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	inbox = decode[[]datatypes.Mention](t, bob.do("GET", "/v1/mentions", ""))
	assert.Equal(t, datatypes.MentionRead, inbox[0].Status)

	// alice has no mentions of her own.
	assert.Empty(t, decode[[]datatypes.Mention](t, alice.do("GET", "/v1/mentions", "")))

	audit := decode[[]datatypes.AuditEntry](t, alice.do("GET", "/v1/audit", ""))
	require.Len(t, audit, 1)
	assert.Equal(t, datatypes.ActionCreate, audit[0].Action)
	assert.Equal(t, "alice", audit[0].ActorName)
}

func TestScenario_UpdatePermissions(t *testing.T) {
	svc := newService(t, testConfig())
	alice := as(t, svc, "U1", "alice")
	bob := as(t, svc, "U2", "bob")
	root := as(t, svc, "U9", "root", datatypes.AdminGroup)

	taskID := decode[map[string]string](t, alice.do("POST", "/v1/tasks", `{"title":"Ship release"}`))["taskId"]
	path := "/v1/tasks/" + taskID

	w := bob.do("PATCH", path, `{"status":"done"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Not allowed"}`, w.Body.String())

	w = alice.do("PATCH", path, `{"status":"todo"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"No changes"}`, w.Body.String())

	w = alice.do("PUT", path, `{"status":"done","priority":"high"}`)
	assert.JSONEq(t, `{"message":"Task updated"}`, w.Body.String())

	w = root.do("DELETE", path, "")
	assert.JSONEq(t, `{"message":"Task deleted"}`, w.Body.String())

	w = alice.do("DELETE", path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Task not found"}`, w.Body.String())

	actions := []datatypes.AuditAction{}
	for _, e := range decode[[]datatypes.AuditEntry](t, root.do("GET", "/v1/audit", "")) {
		actions = append(actions, e.Action)
	}
	assert.Len(t, actions, 4)
	assert.Equal(t, datatypes.ActionDelete, actions[0])
	assert.Equal(t, datatypes.ActionCreate, actions[3])
}

func TestScenario_CommentCountRoundTrip(t *testing.T) {
	svc := newService(t, testConfig())
	alice := as(t, svc, "U1", "alice")

	taskID := decode[map[string]string](t, alice.do("POST", "/v1/tasks", `{"title":"Ship release"}`))["taskId"]
	base := "/v1/tasks/" + taskID + "/comments"

	w := alice.do("POST", base, `{"comment":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Comment required"}`, w.Body.String())

	w = alice.do("POST", base, `{"comment":"first"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	commentID := decode[map[string]string](t, w)["commentId"]

	tasks := decode[[]datatypes.Task](t, alice.do("GET", "/v1/tasks", ""))
	assert.Equal(t, 1, tasks[0].CommentCount)

	w = alice.do("PATCH", base+"/"+commentID, `{"comment":"edited"}`)
	assert.JSONEq(t, `{"message":"Comment updated successfully"}`, w.Body.String())

	comments := decode[[]datatypes.Comment](t, alice.do("GET", base, ""))
	require.Len(t, comments, 1)
	assert.Equal(t, "edited", comments[0].Body)

	w = alice.do("DELETE", base+"/"+commentID, "")
	assert.JSONEq(t, `{"message":"Comment deleted"}`, w.Body.String())

	tasks = decode[[]datatypes.Task](t, alice.do("GET", "/v1/tasks", ""))
	assert.Equal(t, 0, tasks[0].CommentCount)
}

func TestScenario_EmptyTitleCreatesNothing(t *testing.T) {
	svc := newService(t, testConfig())
	alice := as(t, svc, "U1", "alice")

	w := alice.do("POST", "/v1/tasks", `{"title":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Title required"}`, w.Body.String())

	assert.Empty(t, decode[[]datatypes.Task](t, alice.do("GET", "/v1/tasks", "")))
	assert.Empty(t, decode[[]datatypes.AuditEntry](t, alice.do("GET", "/v1/audit", "")))
}

// =============================================================================
// Transport Tests
// =============================================================================

func TestRouter_Unauthenticated(t *testing.T) {
	svc := newService(t, testConfig())
	anon := &client{t: t, router: svc.Router()}

	w := anon.do("GET", "/v1/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	anon.token = "not-a-jwt"
	w = anon.do("GET", "/v1/tasks", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Preflight(t *testing.T) {
	svc := newService(t, testConfig())
	anon := &client{t: t, router: svc.Router()}

	w := anon.do("OPTIONS", "/v1/tasks/abc/comments", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Authorization,Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	svc := newService(t, cfg)
	alice := as(t, svc, "U1", "alice")

	alice.do("POST", "/v1/tasks", `{"title":"Ship release"}`)

	w := alice.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `taskboard_http_requests_total{method="POST",route="/v1/tasks",status="201"} 1`)
	assert.Contains(t, body, `taskboard_audit_entries_total{action="CREATE"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRouter_UsersListing(t *testing.T) {
	svc := newService(t, testConfig())
	provision(t, svc, "bob", "U2")
	provision(t, svc, "alice", "U1")

	w := as(t, svc, "U1", "alice").do("GET", "/v1/users", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"username":"alice","sub":"U1"},{"username":"bob","sub":"U2"}]`, w.Body.String())
}
