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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/Taskboard/pkg/extensions"
	"github.com/AleutianAI/Taskboard/services/taskboard/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// writeConfig writes a config that keeps data and logs inside the test's
// temp dir.
func writeConfig(t *testing.T, authMode string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "taskboard.yaml")
	yaml := "storage:\n  path: " + filepath.Join(dir, "data") + "\n" +
		"auth:\n  mode: " + authMode + "\n  jwt_secret: " + testSecret + "\n" +
		"logging:\n  format: text\n  level: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))
	return path
}

// run executes one CLI invocation and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestRoot_CreatesConfigOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh", "taskboard.yaml")

	_, err := run(t, "--config", path, "token", "--sub", "U1")
	require.NoError(t, err)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestToken_ValidatesAgainstConfiguredSecret(t *testing.T) {
	path := writeConfig(t, "jwt")

	out, err := run(t, "--config", path, "token",
		"--sub", "U1", "--username", "alice", "--group", "admin", "--group", "ops")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	provider, err := extensions.NewJWTAuthProvider(extensions.JWTConfig{Secret: []byte(testSecret)})
	require.NoError(t, err)
	info, err := provider.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "U1", info.UserID)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, []string{"admin", "ops"}, info.Roles)
}

func TestToken_RequiresSubject(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t, "jwt"), "token")
	assert.Error(t, err)
}

func TestToken_RejectedWithoutJWTMode(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t, "none"), "token", "--sub", "U1")
	assert.ErrorContains(t, err, "auth.mode jwt")
}

func TestUsers_AddAndList(t *testing.T) {
	path := writeConfig(t, "jwt")

	out, err := run(t, "--config", path, "users", "add", "bob", "--sub", "U2")
	require.NoError(t, err)
	assert.Contains(t, out, "Registered bob (sub U2, groups user)")

	out, err = run(t, "--config", path, "users", "add", "alice", "--sub", "U1", "--group", "admin")
	require.NoError(t, err)
	assert.Contains(t, out, "groups user,admin")

	out, err = run(t, "--config", path, "users", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "USERNAME"))
	assert.True(t, strings.HasPrefix(lines[1], "alice"))
	assert.True(t, strings.HasPrefix(lines[2], "bob"))
}

func TestUsers_AddRequiresUsername(t *testing.T) {
	_, err := run(t, "--config", writeConfig(t, "jwt"), "users", "add")
	assert.Error(t, err)
}

func TestAudit_EmptyLog(t *testing.T) {
	out, err := run(t, "--config", writeConfig(t, "jwt"), "audit")
	require.NoError(t, err)

	var entries []datatypes.AuditEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Empty(t, entries)
}

func TestRoot_BadLogLevel(t *testing.T) {
	path := writeConfig(t, "jwt")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, bytes.Replace(data, []byte("level: warn"), []byte("level: loud"), 1), 0600))

	_, err = run(t, "--config", path, "audit")
	assert.ErrorContains(t, err, "logging.level")
}
