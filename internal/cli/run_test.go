package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ffgraph/internal/docfile"
	"github.com/roach88/ffgraph/internal/options"
	"github.com/roach88/ffgraph/internal/store"
)

func executeRun(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--workspace", t.TempDir()}, args...))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestRunNewGraphEmitsTitle(t *testing.T) {
	out, err := executeRun(t, `{"type":"new-graph"}`+"\n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, `{"title":"Untitled","type":"title-changed"}`, lines[0])
}

func TestRunSaveAsFinishesAfterEndOfInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ffgraph")
	input := `{"type":"new-graph"}` + "\n" +
		`{"type":"nodes-change","changes":[{"type":"add","item":{"id":"a","type":"default","position":{"x":0,"y":0},"data":{}}}]}` + "\n" +
		`{"type":"save-as-graph"}` + "\n" +
		`{"type":"dialog-result","path":"` + filepath.Join(dir, "out") + `"}` + "\n"

	out, err := executeRun(t, input)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	file, err := docfile.Decode(raw)
	require.NoError(t, err)
	builtin, err := options.BuiltinDigest()
	require.NoError(t, err)
	assert.Equal(t, builtin, file.Identifier)
	assert.Len(t, file.Document.Nodes, 1)

	assert.Contains(t, out, `"type":"dialog-request"`)
	assert.Contains(t, out, `{"title":"`+path+`","type":"title-changed"}`)
	assert.NotContains(t, out, `"type":"error-message"`)
}

func TestRunReportsUndecodableInput(t *testing.T) {
	out, err := executeRun(t, "not json\n\n"+`{"type":"explode"}`+"\n")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"message":"failed to decode message"`)
		assert.Contains(t, line, `"type":"error-message"`)
	}
	assert.Contains(t, lines[1], "unknown message type")
}

func TestRunEditsWithoutDocumentAreSilent(t *testing.T) {
	input := `{"type":"connect","connection":{"source":"a","target":"b"}}` + "\n" +
		`{"type":"save-graph"}` + "\n"

	out, err := executeRun(t, input)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"FFgraph","type":"title-changed"}`+"\n", out)
}

func TestRunOpensDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "session.db")

	_, err := executeRun(t, "", "--db", db)
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	docs, err := st.RecentDocuments(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRunBadDatabasePath(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing-dir", "session.db")

	_, err := executeRun(t, "", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRunRejectsArguments(t *testing.T) {
	_, err := executeRun(t, "", "extra")
	require.Error(t, err)
}
