package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "ctl.db"))
	t.Setenv("LOG_LEVEL", "error")

	a := &app{}
	t.Cleanup(a.close)
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCheckAlertsOnEmptyDatabase(t *testing.T) {
	out, err := run(t, "check-alerts")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 0.0, result["checked"])
}

func TestSnapshotRejectsUnknownPlatform(t *testing.T) {
	_, err := run(t, "snapshot", "--platform", "ebay")
	assert.Error(t, err)
}

func TestExportDeckErrors(t *testing.T) {
	_, err := run(t, "export-deck", "abc")
	assert.ErrorContains(t, err, "invalid deck id")

	_, err = run(t, "export-deck", "42")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "analyze-deck")
	assert.Error(t, err, "deck id is required")
}
