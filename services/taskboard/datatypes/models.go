// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the records, request payloads and error kinds
// shared by every layer of the taskboard service.
package datatypes

import (
	"slices"
	"time"
)

// =============================================================================
// Defaults and Constants
// =============================================================================

const (
	// DefaultCategory is applied when a create request omits category.
	DefaultCategory = "general"

	// DefaultStatus is applied when a create request omits status.
	DefaultStatus = "todo"

	// DefaultPriority is applied when a create request omits priority.
	DefaultPriority = "medium"

	// AdminGroup is the directory group that bypasses ownership checks.
	AdminGroup = "admin"

	// DefaultUserGroup is assigned to every newly confirmed identity.
	DefaultUserGroup = "user"

	// UnknownActor is the display name used when claims carry no name.
	UnknownActor = "unknown"
)

// MentionStatus is the read state of a mention notification.
type MentionStatus string

const (
	MentionUnread MentionStatus = "UNREAD"
	MentionRead   MentionStatus = "READ"
)

// AuditAction names the mutation an audit entry describes.
type AuditAction string

const (
	ActionCreate         AuditAction = "CREATE"
	ActionUpdateStatus   AuditAction = "UPDATE_STATUS"
	ActionUpdatePriority AuditAction = "UPDATE_PRIORITY"
	ActionDelete         AuditAction = "DELETE"
	ActionEditComment    AuditAction = "EDIT_COMMENT"
	ActionDeleteComment  AuditAction = "DELETE_COMMENT"
)

// =============================================================================
// Task
// =============================================================================

// Participant is a user with visibility into a task.
type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Task is the primary collaboration record.
//
// # Invariants
//
//   - Participants[0] is always the owner.
//   - ParticipantIDs mirrors Participants element for element.
//   - Participants is unique by UserID.
type Task struct {
	ID             string        `json:"id"`
	TaskID         string        `json:"taskId"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Status         string        `json:"status"`
	Priority       string        `json:"priority"`
	OwnerID        string        `json:"ownerId"`
	OwnerName      string        `json:"ownerName"`
	Participants   []Participant `json:"participants"`
	ParticipantIDs []string      `json:"participantIds"`
	CommentCount   int           `json:"commentCount"`
	CreatedAt      time.Time     `json:"createdAt"`
	CreatedBy      string        `json:"createdBy"`
	UpdatedAt      time.Time     `json:"updatedAt,omitzero"`
	UpdatedBy      string        `json:"updatedBy,omitempty"`
}

// HasParticipant reports whether userID is in the participant set.
func (t *Task) HasParticipant(userID string) bool {
	return slices.Contains(t.ParticipantIDs, userID)
}

// AddParticipant appends p unless its UserID is already present.
// Returns true when the participant was added.
func (t *Task) AddParticipant(p Participant) bool {
	if t.HasParticipant(p.UserID) {
		return false
	}
	t.Participants = append(t.Participants, p)
	t.ParticipantIDs = append(t.ParticipantIDs, p.UserID)
	return true
}

// LastActivity is the sort key used by task listings: UpdatedAt, falling
// back to CreatedAt for records that were never updated.
func (t *Task) LastActivity() time.Time {
	if t.UpdatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

// =============================================================================
// Comment
// =============================================================================

// Comment is a message attached to a task.
type Comment struct {
	CommentID string    `json:"commentId"`
	TaskID    string    `json:"taskId"`
	Body      string    `json:"comment"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// =============================================================================
// Mention
// =============================================================================

// Mention is an unread/read notification addressed to a display name.
type Mention struct {
	Recipient     string        `json:"recipient"`
	Key           string        `json:"key"`
	TaskID        string        `json:"taskId"`
	TaskTitle     string        `json:"taskTitle"`
	CommentID     string        `json:"commentId,omitempty"`
	Text          string        `json:"text"`
	MentionedBy   string        `json:"mentionedBy"`
	MentionedByID string        `json:"mentionedById"`
	Status        MentionStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReadAt        *time.Time    `json:"readAt,omitempty"`
}

// =============================================================================
// Audit
// =============================================================================

// AuditEntry is an immutable record of one mutating action.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	TaskID    string      `json:"taskId"`
	TaskTitle string      `json:"taskTitle"`
	CommentID string      `json:"commentId,omitempty"`
	OldValue  string      `json:"oldValue,omitempty"`
	NewValue  string      `json:"newValue,omitempty"`
	ActorName string      `json:"actorName"`
	ActorID   string      `json:"actorId"`
	CreatedAt time.Time   `json:"createdAt"`
}

// =============================================================================
// Identity
// =============================================================================

// User is an identity directory record.
type User struct {
	Username  string    `json:"username"`
	Sub       string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Groups    []string  `json:"groups,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID          string
	DisplayName string
	Groups      []string
}

// IsAdmin reports whether the actor belongs to AdminGroup.
func (a Actor) IsAdmin() bool {
	return IsAdmin(a.Groups)
}

// IsAdmin is the membership test against the fixed admin role name.
func IsAdmin(groups []string) bool {
	return slices.Contains(groups, AdminGroup)
}
