// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/AleutianAI/Taskboard/services/taskboard"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/AleutianAI/Taskboard/services/taskboard/identity"
	"github.com/spf13/cobra"
)

type userAddFlags struct {
	sub    string
	email  string
	groups []string
}

// runUsersAdd registers username in the directory with the default user
// group plus any --group values.
func (a *cli) runUsersAdd(cmd *cobra.Command, username string, flags userAddFlags) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return errors.New("username is required")
	}

	store, closeStore, err := taskboard.OpenStore(a.config)
	if err != nil {
		return err
	}
	defer closeStore()

	sub := flags.sub
	if sub == "" {
		sub = username
	}
	groups := append([]string{datatypes.DefaultUserGroup}, flags.groups...)

	dir := identity.NewStoreDirectory(store)
	user, err := dir.RegisterUser(cmd.Context(), datatypes.User{
		Username: username,
		Sub:      sub,
		Email:    flags.email,
		Groups:   groups,
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", username, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (sub %s, groups %s)\n",
		user.Username, user.Sub, strings.Join(user.Groups, ","))
	return nil
}

// runUsersList prints the directory as a table ordered by username.
func (a *cli) runUsersList(cmd *cobra.Command, _ []string) error {
	store, closeStore, err := taskboard.OpenStore(a.config)
	if err != nil {
		return err
	}
	defer closeStore()

	users, err := identity.NewStoreDirectory(store).ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tSUB\tGROUPS")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.Username, u.Sub, strings.Join(u.Groups, ","))
	}
	return w.Flush()
}
