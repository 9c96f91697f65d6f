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
	"time"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard"
	"github.com/spf13/cobra"
)

const defaultTokenTTL = 12 * time.Hour

type tokenFlags struct {
	sub      string
	username string
	email    string
	groups   []string
	ttl      time.Duration
}

// runToken prints a bearer token for the configured JWT secret, issuer
// and audience.
func (a *cli) runToken(cmd *cobra.Command, flags tokenFlags) error {
	if a.config.Auth.Mode != taskboard.AuthModeJWT {
		return errors.New("token requires auth.mode jwt")
	}

	username := flags.username
	if username == "" {
		username = flags.sub
	}
	token, err := extensions.IssueToken([]byte(a.config.Auth.JWTSecret), extensions.TokenRequest{
		Subject:  flags.sub,
		Username: username,
		Email:    flags.email,
		Groups:   flags.groups,
		Issuer:   a.config.Auth.Issuer,
		Audience: a.config.Auth.Audience,
		TTL:      flags.ttl,
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
