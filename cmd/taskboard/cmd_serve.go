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
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/Taskboard/services/taskboard"
	"github.com/spf13/cobra"
)

// runServe starts the server and blocks until SIGINT or SIGTERM.
func (a *cli) runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting taskboard",
		slog.Int("port", a.config.Server.Port),
		slog.String("auth_mode", a.config.Auth.Mode),
		slog.String("trace_exporter", a.config.Telemetry.TraceExporter),
	)

	// Deployments with their own identity provider pass ServiceOptions here.
	svc, err := taskboard.New(a.config, nil)
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}
