// Package ops holds the operation types exchanged between the coordinator,
// the model client, and the executors.
package ops

import (
	"fmt"
	"strings"
	"time"
)

// WriteFileCommand is a structured file-write operation proposed by the model.
type WriteFileCommand struct {
	Command          string `json:"command"`
	Path             string `json:"path"`
	Content          string `json:"content"`
	RequestExecution bool   `json:"request_execution,omitempty"`
}

// ExecutionContext captures the environment around an executor invocation.
type ExecutionContext struct {
	WorkingDirectoryBefore string    `json:"working_directory_before"`
	WorkingDirectoryAfter  string    `json:"working_directory_after"`
	Stdout                 string    `json:"stdout"`
	Stderr                 string    `json:"stderr"`
	ExitCode               int       `json:"exit_code"`
	Timestamp              time.Time `json:"timestamp"`
}

// HasOutput reports whether the context captured anything on either stream.
func (c ExecutionContext) HasOutput() bool {
	return c.Stdout != "" || c.Stderr != ""
}

// CombinedOutput merges stdout and stderr for display.
func (c ExecutionContext) CombinedOutput() string {
	out := c.Stdout
	if c.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += "[STDERR]: " + c.Stderr
	}
	return out
}

// DryRunResult is the preview of a file operation.
type DryRunResult struct {
	Description string `json:"description"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
}

// ApplyResult is the outcome of applying a file operation.
type ApplyResult struct {
	Description string           `json:"description"`
	Success     bool             `json:"success"`
	Error       string           `json:"error,omitempty"`
	Context     ExecutionContext `json:"execution_context"`
}

// CommandResult is the outcome of a shell execution.
type CommandResult struct {
	Command          string        `json:"command"`
	ExitCode         int           `json:"exit_code"`
	Stdout           string        `json:"stdout"`
	Stderr           string        `json:"stderr"`
	WorkingDirectory string        `json:"working_directory_before"`
	PwdAfter         string        `json:"working_directory_after"`
	Success          bool          `json:"success"`
	Error            string        `json:"error_message,omitempty"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration_ms"`
}

// CombinedOutput merges stdout and stderr for display.
func (r CommandResult) CombinedOutput() string {
	out := r.Stdout
	if r.Stderr != "" {
		if out != "" {
			out += "\n"
		}
		out += "[STDERR]: " + r.Stderr
	}
	return out
}

func (r CommandResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Command: %s\n", r.Command)
	fmt.Fprintf(&b, "Exit Code: %d\n", r.ExitCode)
	fmt.Fprintf(&b, "Working Directory: %s\n", r.WorkingDirectory)
	fmt.Fprintf(&b, "PWD After: %s\n", r.PwdAfter)
	fmt.Fprintf(&b, "Success: %t\n", r.Success)
	if r.Stdout != "" {
		fmt.Fprintf(&b, "Output:\n%s\n", r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Fprintf(&b, "Error Output:\n%s\n", r.Stderr)
	}
	return b.String()
}
