package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mag-gateway/mag/internal/ops"
)

func TestDryRunNewFile(t *testing.T) {
	dir := t.TempDir()
	w := &FileWriter{}

	res := w.DryRun(ops.WriteFileCommand{Path: filepath.Join(dir, "new.txt"), Content: "hello"})
	assert.True(t, res.Success)
	assert.Contains(t, res.Description, "Will create new file")
	assert.Contains(t, res.Description, "5 bytes")

	// Dry run leaves the filesystem untouched.
	_, err := os.Stat(filepath.Join(dir, "new.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDryRunExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	res := (&FileWriter{}).DryRun(ops.WriteFileCommand{Path: path, Content: "newer content"})
	assert.Contains(t, res.Description, "Will overwrite existing file")
}

func TestApplyCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "c.txt")

	res := (&FileWriter{}).Apply(ops.WriteFileCommand{Path: path, Content: "content"})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Description, "Successfully wrote 7 bytes")
	assert.Equal(t, 0, res.Context.ExitCode)
	assert.NotEmpty(t, res.Context.WorkingDirectoryBefore)
	assert.Equal(t, res.Context.WorkingDirectoryBefore, res.Context.WorkingDirectoryAfter)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestApplyBackupOnOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))

	res := (&FileWriter{Backup: true}).Apply(ops.WriteFileCommand{Path: path, Content: "replaced"})
	require.True(t, res.Success)

	backup, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "original", string(backup))

	current, _ := os.ReadFile(path)
	assert.Equal(t, "replaced", string(current))
}

func TestApplyFailureSetsExitCode(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the write fail.
	path := filepath.Join(dir, "taken")
	require.NoError(t, os.Mkdir(path, 0o755))

	res := (&FileWriter{}).Apply(ops.WriteFileCommand{Path: path, Content: "x"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 1, res.Context.ExitCode)
}

func TestRunnerCapturesOutput(t *testing.T) {
	r := NewRunner(t.TempDir())

	res := r.Run(context.Background(), "echo hello")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", res.Stdout)
	assert.NotContains(t, res.Stdout, "__PWD_")
}

func TestRunnerPersistsWorkingDirectory(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "sub"), 0o755))
	r := NewRunner(base)

	res := r.Run(context.Background(), "cd sub")
	require.True(t, res.Success)
	assert.Equal(t, filepath.Join(base, "sub"), filepath.Clean(r.Dir()))

	res = r.Run(context.Background(), "pwd")
	require.True(t, res.Success)
	assert.Contains(t, res.Stdout, "sub")
}

func TestRunnerNonZeroExit(t *testing.T) {
	r := NewRunner(t.TempDir())

	res := r.Run(context.Background(), "ls /definitely/not/here")
	assert.False(t, res.Success)
	assert.NotZero(t, res.ExitCode)
	assert.NotEmpty(t, res.Stderr)
}

func TestRunnerFailedCommandKeepsDirectory(t *testing.T) {
	base := t.TempDir()
	r := NewRunner(base)

	r.Run(context.Background(), "false")
	assert.Equal(t, base, r.Dir())
}

func TestRunnerRefusesDangerousCommand(t *testing.T) {
	r := NewRunner(t.TempDir())

	res := r.Run(context.Background(), "rm -rf /tmp/whatever")
	assert.False(t, res.Success)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, "Command contains blocked operation", res.Error)
}

func TestRunnerTimeout(t *testing.T) {
	r := NewRunner(t.TempDir())
	r.SetTimeout(100 * time.Millisecond)

	res := r.Run(context.Background(), "sleep 2")
	assert.False(t, res.Success)
	assert.Equal(t, "command timed out", res.Error)
}

func TestCommandResultCombinedOutput(t *testing.T) {
	res := ops.CommandResult{Stdout: "out", Stderr: "err"}
	assert.Equal(t, "out\n[STDERR]: err", res.CombinedOutput())
}
