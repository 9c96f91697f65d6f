// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"errors"
	"slices"
)

// ErrUnauthorized is returned when a bearer token cannot be accepted.
// Implementations wrap it with the concrete reason.
//
// Example:
//
//	if tok.Expiry == nil {
//	    return nil, fmt.Errorf("token has no expiry: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo is the identity extracted from a validated token.
//
// Required fields (always populated):
//   - UserID: the stable subject identifier
//
// Optional fields (may be empty):
//   - Username: the directory display name
//   - Email: the user's email address
//   - Roles: group memberships, used for the admin check
type AuthInfo struct {
	// UserID is the token subject. Never empty for an accepted token.
	UserID string

	// Username is the display name by which other users mention this one.
	Username string

	// Email is the user's email address.
	Email string

	// Roles contains the user's group memberships.
	Roles []string
}

// HasRole checks if the user has a specific role.
//
// Example:
//
//	if info.HasRole("admin") {
//	    // owner checks are bypassed
//	}
func (a *AuthInfo) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// AuthProvider validates bearer tokens and returns the caller's identity.
//
// # Description
//
// The HTTP layer extracts the token from the Authorization header and
// hands it to Validate. Implementations decide the token format.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Returns ErrUnauthorized (or wrapped) when the token is rejected and
	// any other error for infrastructure failures.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as a local administrator.
//
// Used when auth.mode is "none" for single-user local runs. Never use it
// on a network-reachable deployment.
type NopAuthProvider struct{}

// Validate always succeeds with the local-user identity.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{
		UserID:   "local-user",
		Username: "local-user",
		Roles:    []string{"admin"},
	}, nil
}

var _ AuthProvider = (*NopAuthProvider)(nil)
