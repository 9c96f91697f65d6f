// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Request Validation Tests
// =============================================================================

func TestCreateTaskRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateTaskRequest
		wantMsg string
	}{
		{"valid", CreateTaskRequest{Title: "Ship release"}, ""},
		{"empty title", CreateTaskRequest{}, "Title required"},
		{"blank title", CreateTaskRequest{Title: " \t\n"}, "Title required"},
		{"title too long", CreateTaskRequest{Title: strings.Repeat("x", 513)}, "Title exceeds 512 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantMsg, verr.Message)
		})
	}
}

func TestCreateTaskRequest_EnsureDefaults(t *testing.T) {
	req := CreateTaskRequest{Title: "  Ship release ", Status: " Blocked "}
	req.EnsureDefaults()

	assert.Equal(t, "Ship release", req.Title)
	assert.Equal(t, "general", req.Category)
	assert.Equal(t, "blocked", req.Status)
	assert.Equal(t, "medium", req.Priority)

	req = CreateTaskRequest{Title: "x", Category: "ops", Priority: "high"}
	req.EnsureDefaults()
	assert.Equal(t, "ops", req.Category)
	assert.Equal(t, "todo", req.Status)
	assert.Equal(t, "high", req.Priority)
}

func TestCommentRequest_Validate(t *testing.T) {
	req := CommentRequest{Body: "  looks good  "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "looks good", req.Body)

	empty := CommentRequest{Body: "   "}
	err := empty.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Comment required", err.Error())
}

func TestUpdateTaskRequest_PresenceFromJSON(t *testing.T) {
	var req UpdateTaskRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"done"}`), &req))

	require.NotNil(t, req.Status)
	assert.Equal(t, "done", *req.Status)
	assert.Nil(t, req.Priority)
	assert.NoError(t, req.Validate())
}

func TestUserConfirmedEvent(t *testing.T) {
	var ev UserConfirmedEvent
	raw := `{"userName":"bob","request":{"userAttributes":{"sub":"U2","email":"bob@example.com"}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, "U2", ev.Subject())
	assert.Equal(t, "bob@example.com", ev.Email())

	bare := UserConfirmedEvent{UserName: "carol"}
	assert.Equal(t, "carol", bare.Subject())
	assert.Empty(t, bare.Email())
}

// =============================================================================
// Model Tests
// =============================================================================

func TestTask_AddParticipant(t *testing.T) {
	task := &Task{
		Participants:   []Participant{{UserID: "U1", UserName: "alice"}},
		ParticipantIDs: []string{"U1"},
	}

	assert.True(t, task.AddParticipant(Participant{UserID: "U2", UserName: "bob"}))
	assert.False(t, task.AddParticipant(Participant{UserID: "U2", UserName: "bobby"}))
	assert.False(t, task.AddParticipant(Participant{UserID: "U1", UserName: "alice"}))

	assert.Equal(t, []string{"U1", "U2"}, task.ParticipantIDs)
	require.Len(t, task.Participants, 2)
	assert.Equal(t, "bob", task.Participants[1].UserName)
}

func TestTask_LastActivity(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{CreatedAt: created}
	assert.Equal(t, created, task.LastActivity())

	task.UpdatedAt = created.Add(time.Hour)
	assert.Equal(t, created.Add(time.Hour), task.LastActivity())
}

func TestTask_JSONNumbers(t *testing.T) {
	data, err := json.Marshal(&Task{ID: "t1", TaskID: "t1", CommentCount: 3})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(3), decoded["commentCount"])
	assert.Equal(t, "t1", decoded["taskId"])
}

func TestUpdatedAt_OmittedUntilSet(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		value   any
		present bool
	}{
		{"unedited comment", &Comment{CommentID: "c1", CreatedAt: created}, false},
		{"edited comment", &Comment{CommentID: "c1", CreatedAt: created, UpdatedAt: created.Add(time.Minute)}, true},
		{"task without update", &Task{ID: "t1", CreatedAt: created}, false},
		{"updated task", &Task{ID: "t1", CreatedAt: created, UpdatedAt: created}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.NotContains(t, string(data), "0001-01-01")

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(data, &decoded))
			_, ok := decoded["updatedAt"]
			assert.Equal(t, tt.present, ok)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin([]string{"user", "admin"}))
	assert.False(t, IsAdmin([]string{"user"}))
	assert.False(t, IsAdmin(nil))
	assert.True(t, Actor{Groups: []string{"admin"}}.IsAdmin())
}

func TestNewID_Ordered(t *testing.T) {
	prev, err := NewID()
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		next, err := NewID()
		require.NoError(t, err)
		assert.Less(t, prev, next)
		prev = next
	}
}
