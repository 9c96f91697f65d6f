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
	"fmt"
	"log/slog"
	"os"

	"github.com/AleutianAI/Taskboard/pkg/logging"
	"github.com/AleutianAI/Taskboard/services/taskboard"
	"github.com/spf13/cobra"
)

// cli is the state shared by every command of one invocation.
type cli struct {
	configPath string
	config     taskboard.Config
	logger     *logging.Logger
}

// newRootCmd builds the command tree. Each call returns an independent
// tree with its own flag values.
func newRootCmd() *cobra.Command {
	app := &cli{}

	rootCmd := &cobra.Command{
		Use:   "taskboard",
		Short: "Collaborative task board with mentions, comments and an audit trail",
		Long: `taskboard serves a small collaborative task board over HTTP.

Tasks carry participants, comments and @mentions. Every mutation is
written to an append-only audit log. Data lives in an embedded BadgerDB
directory, so the server and the admin commands cannot run at the same
time against the same data directory.`,
		SilenceUsage:       true,
		PersistentPreRunE:  app.setup,
		PersistentPostRunE: app.teardown,
	}
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", taskboard.DefaultConfigPath(),
		"path to taskboard.yaml (created with defaults if missing)")

	// --- Server ---
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  app.runServe, // Defined in cmd_serve.go
	}

	// --- Identity directory ---
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the identity directory",
	}
	var addFlags userAddFlags
	usersAddCmd := &cobra.Command{
		Use:   "add [username]",
		Short: "Register a user, or merge groups into an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runUsersAdd(cmd, args[0], addFlags) // Defined in cmd_users.go
		},
	}
	usersAddCmd.Flags().StringVar(&addFlags.sub, "sub", "", "stable subject identifier (default: the username)")
	usersAddCmd.Flags().StringVar(&addFlags.email, "email", "", "email address")
	usersAddCmd.Flags().StringSliceVar(&addFlags.groups, "group", nil, "group to add, repeatable (e.g. admin)")

	usersListCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE:  app.runUsersList, // Defined in cmd_users.go
	}
	usersCmd.AddCommand(usersAddCmd, usersListCmd)

	// --- Tokens ---
	var tokFlags tokenFlags
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured JWT secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runToken(cmd, tokFlags) // Defined in cmd_token.go
		},
	}
	tokenCmd.Flags().StringVar(&tokFlags.sub, "sub", "", "subject claim (required)")
	tokenCmd.Flags().StringVar(&tokFlags.username, "username", "", "display name claim (default: the subject)")
	tokenCmd.Flags().StringVar(&tokFlags.email, "email", "", "email claim")
	tokenCmd.Flags().StringSliceVar(&tokFlags.groups, "group", nil, "group claim, repeatable")
	tokenCmd.Flags().DurationVar(&tokFlags.ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("sub")

	// --- Audit ---
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit log, newest first, as JSON",
		Args:  cobra.NoArgs,
		RunE:  app.runAudit, // Defined in cmd_audit.go
	}

	rootCmd.AddCommand(serveCmd, usersCmd, tokenCmd, auditCmd)
	return rootCmd
}

// setup loads configuration, applies environment overrides and installs
// the logger.
func (a *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, created, err := taskboard.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	cfg, err = taskboard.ApplyEnvOverrides(cfg, os.LookupEnv)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	a.logger, err = logging.New(logging.Config{
		Level:   level,
		Format:  logging.Format(cfg.Logging.Format),
		LogDir:  cfg.Logging.Dir,
		Service: "taskboard",
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger.Slog())
	cfg.Logger = a.logger.Slog()
	a.config = cfg

	if created {
		a.logger.Slog().Info("created default config with new secrets",
			slog.String("path", a.configPath))
	}
	return nil
}

func (a *cli) teardown(_ *cobra.Command, _ []string) error {
	if a.logger == nil {
		return nil
	}
	return a.logger.Close()
}
