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
	"encoding/json"
	"fmt"

	"github.com/AleutianAI/Taskboard/services/taskboard"
	"github.com/AleutianAI/Taskboard/services/taskboard/audit"
	"github.com/spf13/cobra"
)

func (a *cli) runAudit(cmd *cobra.Command, _ []string) error {
	store, closeStore, err := taskboard.OpenStore(a.config)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := audit.NewRecorder(store, nil).ListLatestFirst(cmd.Context())
	if err != nil {
		return fmt.Errorf("list audit log: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
