package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threadsCatalogue = `option: {
	threads: {
		name: "threads"
		flag: "filter_threads"
		type: "string"
	}
}
`

func writeCatalogueDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalogue.cue"), []byte(content), 0644))
	return dir
}

func executeResolve(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewResolveCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestResolveBuiltin(t *testing.T) {
	out, err := executeResolve(t, "text", "--workspace", t.TempDir())
	require.NoError(t, err)

	assert.Contains(t, out, "started\nloading\ncompleted sha256:")
	assert.Contains(t, out, "8 options\n")
}

func TestResolveBuiltinJSON(t *testing.T) {
	out, err := executeResolve(t, "json", "head", "--workspace", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ResolveReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "head", resp.Data.Requested)
	assert.Len(t, resp.Data.Stages, 3)
	assert.Equal(t, 8, resp.Data.Options)
	assert.False(t, resp.Data.Cached)
}

func TestResolveDirectoryCached(t *testing.T) {
	source := writeCatalogueDir(t, threadsCatalogue)
	workspace := t.TempDir()
	db := filepath.Join(t.TempDir(), "session.db")

	out, err := executeResolve(t, "text", source, "--workspace", workspace, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "started\ncloning\nloading\ncompleted sha256:")
	assert.Contains(t, out, "1 options\n")

	out, err = executeResolve(t, "text", source, "--workspace", workspace, "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "started")
	assert.Contains(t, out, "1 options (cached)")
}

func TestResolveMissingCatalogue(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	out, err := executeResolve(t, "text", missing, "--workspace", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeResolve)
	assert.Contains(t, out, "Error [E004]")
}

func TestResolveInvalidCatalogue(t *testing.T) {
	source := writeCatalogueDir(t, `option: x: {name: "x", flag: "x", type: "number"}`)

	_, err := executeResolve(t, "json", source, "--workspace", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
