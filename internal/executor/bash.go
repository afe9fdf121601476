package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mag-gateway/mag/internal/ops"
	"github.com/mag-gateway/mag/internal/safety"
)

// Runner executes shell commands with a working directory that persists
// across invocations, so a `cd` in one command affects the next.
type Runner struct {
	cwd     string
	timeout time.Duration
}

const defaultCommandTimeout = 2 * time.Minute

// NewRunner starts in dir, or in the process working directory when dir
// is empty.
func NewRunner(dir string) *Runner {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &Runner{cwd: dir, timeout: defaultCommandTimeout}
}

// SetTimeout overrides the per-command timeout.
func (r *Runner) SetTimeout(d time.Duration) {
	r.timeout = d
}

// Dir returns the runner's current working directory.
func (r *Runner) Dir() string {
	return r.cwd
}

// Run executes the command through the shell. The safety net is checked
// first; refused commands never reach the shell. The command's final
// working directory is captured via a per-invocation sentinel and becomes
// the runner's directory for the next call.
func (r *Runner) Run(ctx context.Context, command string) ops.CommandResult {
	result := ops.CommandResult{
		Command:          command,
		WorkingDirectory: r.cwd,
		StartTime:        time.Now(),
	}

	command = safety.Sanitize(command)
	if ok, reason := safety.Check(command); !ok {
		result.ExitCode = -1
		result.Error = reason
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		log.Warn().Str("command", command).Msg("command refused by safety net")
		return result
	}

	// A fresh sentinel per invocation keeps command output from spoofing
	// the directory capture. The command's exit status is saved before the
	// sentinel echo and restored so the echo can't mask a failure.
	sentinel := "__PWD_" + uuid.NewString() + "__"
	full := fmt.Sprintf("%s\n__mag_rc=$?\necho \"%s$(pwd)\"\nexit $__mag_rc", command, sentinel)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "bash", "-c", full)
	cmd.Dir = r.cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result.Stdout, result.PwdAfter = extractSentinel(stdout.String(), sentinel)
	result.Stderr = strings.TrimRight(stderr.String(), "\n")
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if result.PwdAfter == "" {
		result.PwdAfter = r.cwd
	}

	switch e := err.(type) {
	case nil:
		result.ExitCode = 0
		result.Success = true
	case *exec.ExitError:
		result.ExitCode = e.ExitCode()
		result.Error = fmt.Sprintf("command exited with status %d", result.ExitCode)
	default:
		result.ExitCode = -1
		result.Error = err.Error()
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.Error = "command timed out"
	}

	if result.Success {
		r.cwd = result.PwdAfter
	}

	log.Debug().
		Str("command", command).
		Int("exit_code", result.ExitCode).
		Str("cwd", r.cwd).
		Dur("duration", result.Duration).
		Msg("command executed")
	return result
}

// extractSentinel pulls the directory out of the sentinel line and returns
// the remaining output with the line removed.
func extractSentinel(output, sentinel string) (cleaned, dir string) {
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if idx := strings.Index(line, sentinel); idx >= 0 {
			dir = strings.TrimSpace(line[idx+len(sentinel):])
			continue
		}
		kept = append(kept, line)
	}
	cleaned = strings.TrimRight(strings.Join(kept, "\n"), "\n")
	return cleaned, dir
}
