// Package executor applies validated operations: file writes and shell
// commands. Nothing here consults the policy engine; callers validate
// before handing work in.
package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mag-gateway/mag/internal/ops"
)

// FileWriter performs file-write operations with a preview step.
type FileWriter struct {
	// Backup copies an existing file aside before overwriting it.
	Backup bool
}

// DryRun describes what Apply would do. It never touches the filesystem
// beyond a single existence check.
func (w *FileWriter) DryRun(cmd ops.WriteFileCommand) ops.DryRunResult {
	size := len(cmd.Content)
	if _, err := os.Stat(cmd.Path); err == nil {
		return ops.DryRunResult{
			Description: fmt.Sprintf("[DRY-RUN] Will overwrite existing file '%s' with %d bytes.", cmd.Path, size),
			Success:     true,
		}
	}
	return ops.DryRunResult{
		Description: fmt.Sprintf("[DRY-RUN] Will create new file '%s' with %d bytes.", cmd.Path, size),
		Success:     true,
	}
}

// Apply writes the file, creating parent directories as needed, and
// captures the execution context around the write.
func (w *FileWriter) Apply(cmd ops.WriteFileCommand) ops.ApplyResult {
	before, _ := os.Getwd()

	result := ops.ApplyResult{
		Context: ops.ExecutionContext{
			WorkingDirectoryBefore: before,
			Timestamp:              time.Now(),
		},
	}

	if err := w.write(cmd); err != nil {
		result.Success = false
		result.Error = err.Error()
		result.Context.ExitCode = 1
	} else {
		result.Success = true
		result.Description = fmt.Sprintf("[APPLIED] Successfully wrote %d bytes to '%s'.", len(cmd.Content), cmd.Path)
		result.Context.Stdout = fmt.Sprintf("Created file: %s (%d bytes)", cmd.Path, len(cmd.Content))
	}

	after, _ := os.Getwd()
	result.Context.WorkingDirectoryAfter = after
	return result
}

func (w *FileWriter) write(cmd ops.WriteFileCommand) error {
	if dir := filepath.Dir(cmd.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create parent directories: %w", err)
		}
	}

	if w.Backup {
		if _, err := os.Stat(cmd.Path); err == nil {
			backup := cmd.Path + ".bak"
			if data, err := os.ReadFile(cmd.Path); err == nil {
				if err := os.WriteFile(backup, data, 0o644); err != nil {
					log.Warn().Err(err).Str("path", backup).Msg("backup write failed, continuing")
				} else {
					log.Debug().Str("path", backup).Msg("backup written")
				}
			}
		}
	}

	if err := os.WriteFile(cmd.Path, []byte(cmd.Content), 0o644); err != nil {
		return fmt.Errorf("failed to write content to file: %s: %w", cmd.Path, err)
	}
	return nil
}
