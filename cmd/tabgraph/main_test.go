package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok, "expected *ExitError, got %T", err)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestRun_Usage(t *testing.T) {
	tests := map[string][]string{
		"no arguments":    {},
		"two arguments":   {"a.csv", "b.csv"},
		"three arguments": {"a.csv", "b.csv", "c.csv"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			exitErr := requireExitCode(t, run(args, &stdout, &stderr), 1)
			assert.Equal(t, "Usage: tabgraph <path_to_csv_file>", exitErr.Message)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	var stdout, stderr bytes.Buffer
	exitErr := requireExitCode(t, run([]string{path}, &stdout, &stderr), 1)

	assert.Equal(t, "Error: File not found: "+path, exitErr.Message)
	assert.NoDirExists(t, filepath.Join(filepath.Dir(path), "missing"))
}

func TestRun_HelpIsAPath(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var stdout, stderr bytes.Buffer
	exitErr := requireExitCode(t, run([]string{"--help"}, &stdout, &stderr), 1)
	assert.Equal(t, "Error: File not found: --help", exitErr.Message)
}

func TestRun_Success(t *testing.T) {
	t.Setenv("TABGRAPH_SINKS", "csv")
	dir := t.TempDir()
	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input,
		[]byte("ID,Title,Parent,Children,Connections\n1,Root,,Leaf,\n2,Leaf,Root,,\n"), 0644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{input}, &stdout, &stderr))

	outDir := filepath.Join(dir, "export")
	assert.Equal(t, "Processing complete. Check "+outDir+" for output files.\n", stdout.String())
	assert.Contains(t, stderr.String(), "Output file created")

	nodes, err := os.ReadFile(filepath.Join(outDir, "nodes.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,title\r\n1,Root\r\n2,Leaf\r\n", string(nodes))

	edges, err := os.ReadFile(filepath.Join(outDir, "edges.csv"))
	require.NoError(t, err)
	assert.Equal(t, "source,target,type\r\n1,2,child\r\n2,1,parent\r\n", string(edges))
}

func TestRun_MalformedInput(t *testing.T) {
	t.Setenv("TABGRAPH_SINKS", "csv")
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(input, nil, 0644))

	var stdout, stderr bytes.Buffer
	requireExitCode(t, run([]string{input}, &stdout, &stderr), 1)

	assert.Contains(t, stderr.String(), "malformed input")
	assert.NoDirExists(t, filepath.Join(dir, "empty"))
}

func TestRun_WriteFailure(t *testing.T) {
	t.Setenv("TABGRAPH_SINKS", "csv")
	dir := t.TempDir()
	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input, []byte("id,title\n1,Root\n"), 0644))

	// A non-empty directory at nodes.csv makes that write fail.
	outDir := filepath.Join(dir, "export")
	require.NoError(t, os.MkdirAll(filepath.Join(outDir, "nodes.csv", "occupied"), 0755))

	var stdout, stderr bytes.Buffer
	requireExitCode(t, run([]string{input}, &stdout, &stderr), 1)

	assert.Empty(t, stdout.String())
	assert.FileExists(t, filepath.Join(outDir, "edges.csv"))
	assert.DirExists(t, filepath.Join(outDir, "nodes.csv"))
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("TABGRAPH_SINKS", "gexf")
	dir := t.TempDir()
	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input, []byte("id\n1\n"), 0644))

	var stdout, stderr bytes.Buffer
	exitErr := requireExitCode(t, run([]string{input}, &stdout, &stderr), 1)
	assert.Contains(t, exitErr.Message, "Error:")
}
