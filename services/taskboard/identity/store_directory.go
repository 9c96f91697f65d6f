// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/storage"
)

// StoreDirectory is a Directory kept in the record store's user collection.
type StoreDirectory struct {
	users *storage.Users
	now   func() time.Time
}

// NewStoreDirectory builds a directory on the store's user collection.
func NewStoreDirectory(store *storage.Store) *StoreDirectory {
	return &StoreDirectory{users: store.Users(), now: time.Now}
}

func (d *StoreDirectory) LookupUser(ctx context.Context, username string) (*datatypes.User, error) {
	return d.users.Get(ctx, username)
}

func (d *StoreDirectory) ListUsers(ctx context.Context) ([]datatypes.User, error) {
	return d.users.List(ctx)
}

func (d *StoreDirectory) AddUserToGroup(ctx context.Context, username, group string) error {
	_, err := d.users.Update(ctx, username, func(u *datatypes.User) error {
		if !slices.Contains(u.Groups, group) {
			u.Groups = append(u.Groups, group)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add %s to group %s: %w", username, group, err)
	}
	return nil
}

// RegisterUser creates user if absent. For an existing username the
// groups are merged and a non-empty email replaces the stored one; the
// stored subject is kept.
func (d *StoreDirectory) RegisterUser(ctx context.Context, user datatypes.User) (*datatypes.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" {
		return nil, datatypes.Invalid("username required")
	}
	if user.Sub == "" {
		return nil, datatypes.Invalid("sub required")
	}

	merged, err := d.users.Update(ctx, user.Username, func(u *datatypes.User) error {
		for _, g := range user.Groups {
			if !slices.Contains(u.Groups, g) {
				u.Groups = append(u.Groups, g)
			}
		}
		if user.Email != "" {
			u.Email = user.Email
		}
		return nil
	})
	if err == nil {
		return merged, nil
	}
	if !errors.Is(err, datatypes.ErrNotFound) {
		return nil, fmt.Errorf("register user %s: %w", user.Username, err)
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = d.now().UTC()
	}
	if err := d.users.Put(ctx, &user); err != nil {
		return nil, fmt.Errorf("register user %s: %w", user.Username, err)
	}
	return &user, nil
}

var _ Directory = (*StoreDirectory)(nil)
