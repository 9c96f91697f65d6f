// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package identity maps display names to stable user identifiers and
// derives the acting user of a request.
package identity

import (
	"context"
	"fmt"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"golang.org/x/sync/singleflight"
)

// Directory is the identity directory.
//
// # Description
//
// Usernames are the display names users mention each other by. Subjects
// (sub) are the stable identifiers stored in participant lists.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Directory interface {
	// LookupUser returns the user or an error wrapping datatypes.ErrNotFound.
	LookupUser(ctx context.Context, username string) (*datatypes.User, error)

	// ListUsers returns every user ordered by username.
	ListUsers(ctx context.Context) ([]datatypes.User, error)

	// AddUserToGroup adds group to the user's groups if not already present.
	AddUserToGroup(ctx context.Context, username, group string) error

	// RegisterUser creates the user, or merges groups into an existing record.
	RegisterUser(ctx context.Context, user datatypes.User) (*datatypes.User, error)
}

// =============================================================================
// Resolver
// =============================================================================

// Resolver resolves display names through a Directory.
//
// Concurrent lookups of the same name share one directory call. Results
// are not cached; a user added to the directory is visible immediately.
type Resolver struct {
	dir    Directory
	flight singleflight.Group
}

// NewResolver wraps dir.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Directory returns the wrapped directory.
func (r *Resolver) Directory() Directory {
	return r.dir
}

// ResolveIdentifier maps a display name to the user's stable identifier.
//
// # Outputs
//
//   - string: The subject identifier.
//   - error: Wraps datatypes.ErrNotFound for unknown names. Callers
//     propagating mentions skip such names.
func (r *Resolver) ResolveIdentifier(ctx context.Context, displayName string) (string, error) {
	// The shared lookup outlives any one caller; each caller waits on its
	// own context.
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(displayName, func() (interface{}, error) {
		user, err := r.dir.LookupUser(lookupCtx, displayName)
		if err != nil {
			return "", err
		}
		if user.Sub == "" {
			return "", fmt.Errorf("user %s has no identifier: %w", displayName, datatypes.ErrNotFound)
		}
		return user.Sub, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("resolve %s: %w", displayName, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// =============================================================================
// Current actor
// =============================================================================

// CurrentActor builds the acting user from validated token claims.
//
// The display name is the token username, else the email, else
// datatypes.UnknownActor. A nil info or empty subject is
// datatypes.ErrUnauthenticated.
func CurrentActor(info *extensions.AuthInfo) (datatypes.Actor, error) {
	if info == nil || info.UserID == "" {
		return datatypes.Actor{}, fmt.Errorf("no subject in claims: %w", datatypes.ErrUnauthenticated)
	}
	name := info.Username
	if name == "" {
		name = info.Email
	}
	if name == "" {
		name = datatypes.UnknownActor
	}
	return datatypes.Actor{
		ID:          info.UserID,
		DisplayName: name,
		Groups:      info.Roles,
	}, nil
}
