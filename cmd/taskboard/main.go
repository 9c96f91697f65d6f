// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command taskboard runs the taskboard collaboration server and its admin
// tooling.
//
// Configuration is read from ~/.taskboard/taskboard.yaml, created with
// fresh secrets on first run. Environment variables override the file.
//
// # Environment Variables
//
//   - TASKBOARD_PORT: HTTP server port (default: 12220)
//   - TASKBOARD_DATA_DIR: BadgerDB directory (default: ~/.taskboard/data)
//   - TASKBOARD_JWT_SECRET: HS256 token secret
//   - TASKBOARD_HOOK_SECRET: Provisioning hook secret
//   - TASKBOARD_AUTH_MODE: jwt or none
//   - OTEL_TRACES_EXPORTER: otlp, stdout or none
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector
//
// # Usage
//
//	taskboard serve
//	taskboard users add alice --group admin
//	taskboard token --sub alice --username alice --group admin
//	taskboard audit
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
