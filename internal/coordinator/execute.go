package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/todo"
)

// State is the batch execution lifecycle.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StatePaused
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	default:
		return "stopped"
	}
}

// controlState carries the flags the control commands flip from outside
// the execution loop.
type controlState struct {
	state       atomic.Int32
	shouldStop  atomic.Bool
	shouldPause atomic.Bool
}

const pausePollInterval = 100 * time.Millisecond

// State returns the batch execution state.
func (c *Coordinator) State() State {
	return State(c.control.state.Load())
}

// Pause suspends the batch loop before its next item.
func (c *Coordinator) Pause() {
	if c.State() == StateRunning {
		c.control.shouldPause.Store(true)
		c.control.state.Store(int32(StatePaused))
		fmt.Fprintln(c.out, "\n⏸️  Execution paused. Use /resume to continue or /stop to stop completely.")
		return
	}
	fmt.Fprintln(c.out, "No execution in progress to pause.")
}

// Resume continues a paused batch.
func (c *Coordinator) Resume() {
	if c.State() == StatePaused {
		// Notice first; the parked loop resumes writing once the flag clears.
		fmt.Fprintln(c.out, "▶️  Execution resumed.")
		c.control.shouldPause.Store(false)
		c.control.state.Store(int32(StateRunning))
		return
	}
	fmt.Fprintln(c.out, "No paused execution to resume.")
}

// Stop ends the batch; unexecuted items stay pending.
func (c *Coordinator) Stop() {
	if s := c.State(); s == StateRunning || s == StatePaused {
		c.control.shouldStop.Store(true)
		c.control.state.Store(int32(StateStopped))
		fmt.Fprintln(c.out, "\n🛑 Execution stopped. Remaining todos are still pending.")
		return
	}
	fmt.Fprintln(c.out, "No execution in progress to stop.")
}

// Cancel ends the batch like Stop but records the cancelled state.
func (c *Coordinator) Cancel() {
	if s := c.State(); s == StateRunning || s == StatePaused {
		c.control.shouldStop.Store(true)
		c.control.state.Store(int32(StateCancelled))
		fmt.Fprintln(c.out, "\n❌ Execution cancelled. Remaining todos are still pending.")
		return
	}
	fmt.Fprintln(c.out, "No execution in progress to cancel.")
}

// ExecuteAll drains the pending queue.
func (c *Coordinator) ExecuteAll(ctx context.Context) {
	c.executeBatch(ctx, c.todos.ExecutionQueue())
}

// ExecuteNext runs the oldest pending item.
func (c *Coordinator) ExecuteNext(ctx context.Context) {
	item, ok := c.todos.NextPending()
	if !ok {
		fmt.Fprintln(c.out, "No pending todos to execute.")
		return
	}
	c.executeBatch(ctx, []todo.Item{item})
}

// ExecuteUntil runs pending items up to but excluding stopID.
func (c *Coordinator) ExecuteUntil(ctx context.Context, stopID int) {
	c.executeBatch(ctx, c.todos.Until(stopID))
}

// ExecuteRange runs the pending queue from startID through endID inclusive.
func (c *Coordinator) ExecuteRange(ctx context.Context, startID, endID int) {
	c.executeBatch(ctx, c.todos.Range(startID, endID))
}

// ExecuteSingle runs one pending item by id.
func (c *Coordinator) ExecuteSingle(ctx context.Context, id int) {
	item, ok := c.todos.Get(id)
	if !ok || item.Status != todo.StatusPending {
		fmt.Fprintf(c.out, "Todo %d not found or not pending.\n", id)
		return
	}
	c.executeBatch(ctx, []todo.Item{item})
}

// executeBatch runs the items in order. A pause request parks the loop
// between items; a stop or cancel leaves the remaining items pending. An
// item failure ends the batch and leaves the failed item in progress so
// the queue shows where work halted.
func (c *Coordinator) executeBatch(ctx context.Context, items []todo.Item) {
	if len(items) == 0 {
		fmt.Fprintln(c.out, "No pending todos to execute.")
		return
	}

	c.control.state.Store(int32(StateRunning))
	c.control.shouldStop.Store(false)
	c.control.shouldPause.Store(false)
	defer func() {
		c.control.state.Store(int32(StateStopped))
		c.control.shouldStop.Store(false)
		c.control.shouldPause.Store(false)
	}()

	fmt.Fprintf(c.out, "Executing %d pending todo(s)...\n", len(items))
	fmt.Fprintln(c.out, "💡 Use /pause, /stop, or /cancel to control execution.")

	for _, item := range items {
		if c.waitWhilePaused(ctx) {
			fmt.Fprintln(c.out, "\nExecution interrupted.")
			return
		}

		fmt.Fprintf(c.out, "\n--- Executing: %s ---\n", item.Title)
		if err := c.todos.SetStatus(item.ID, todo.StatusInProgress); err != nil {
			continue
		}

		if err := c.executeItem(ctx, item); err != nil {
			fmt.Fprintf(c.out, "❌ Failed: %s - %v\n", item.Title, err)
			log.Error().Err(err).Int("id", item.ID).Str("title", item.Title).Msg("todo execution failed")
			return
		}

		c.todos.SetStatus(item.ID, todo.StatusCompleted)
		fmt.Fprintf(c.out, "✅ Completed: %s\n", item.Title)
	}

	fmt.Fprintln(c.out, "\nTodo execution complete!")
}

// waitWhilePaused parks until resumed. Returns true when the batch should
// end instead of continuing.
func (c *Coordinator) waitWhilePaused(ctx context.Context) bool {
	for {
		if c.control.shouldStop.Load() || ctx.Err() != nil {
			return true
		}
		if !c.control.shouldPause.Load() {
			return false
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(pausePollInterval):
		}
	}
}

// executeItem routes one item to the shell or the file flow.
func (c *Coordinator) executeItem(ctx context.Context, item todo.Item) error {
	prompt := item.Title
	if item.Description != "" {
		prompt += " - " + item.Description
	}

	if looksLikeShellWork(prompt) {
		log.Debug().Str("todo", prompt).Str("route", "command").Msg("todo routed")
		return c.executeShellItem(ctx, prompt)
	}
	log.Debug().Str("todo", prompt).Str("route", "file").Msg("todo routed")
	return c.executeFileItem(ctx, prompt)
}

func (c *Coordinator) executeShellItem(ctx context.Context, prompt string) error {
	command := extractCommand(prompt)
	if command == "" {
		return magerr.InvalidArgument("coordinator.execute", "could not determine shell command from: "+prompt)
	}
	fmt.Fprintf(c.out, "Bash command: %s\n", command)

	if allowed, reason := c.engine.CommandAllowed(command); !allowed {
		return magerr.PolicyDenial("coordinator.execute", fmt.Sprintf("%s (command: %s)", reason, command))
	}

	result := c.runner.Run(ctx, command)
	c.displayCommandResult(result)
	if !result.Success {
		return fmt.Errorf("command failed with exit code: %d", result.ExitCode)
	}
	return nil
}

// executeFileItem runs the plan flow without the confirmation prompt;
// batch execution was already approved by the /do command. Chat mode is
// cleared for the duration so the model returns a plan, not prose.
func (c *Coordinator) executeFileItem(ctx context.Context, prompt string) error {
	previous := c.chatMode
	c.chatMode = false
	defer func() { c.chatMode = previous }()

	return c.runPlan(ctx, prompt, false)
}

// shellKeywords mark a todo as shell work rather than a file operation.
var shellKeywords = []string{
	"run", "execute", "build", "compile", "make", "cmake", "npm", "yarn", "pip",
	"install", "test", "cd ", "ls", "pwd", "mkdir", "chmod", "grep", "find",
	"git ", "docker", "curl", "wget", "tar", "unzip", "export",
}

func looksLikeShellWork(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, kw := range shellKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// extractCommand turns a todo prompt into an executable command line.
// Exact interpreter invocations pass through verbatim; otherwise a few
// common phrasings map onto their conventional commands, and anything
// unrecognized is returned as-is for the policy check to judge.
func extractCommand(prompt string) string {
	lower := strings.ToLower(prompt)

	for _, interp := range []string{"python3 ", "python "} {
		if idx := strings.Index(lower, interp); idx >= 0 {
			rest := prompt[idx:]
			if end := strings.IndexAny(rest[len(interp):], " \t\n"); end >= 0 {
				return rest[:len(interp)+end]
			}
			return rest
		}
	}

	if strings.Contains(lower, ".py") {
		if script := scriptNameAround(prompt, lower, ".py"); script != "" {
			return "python3 " + script
		}
	}

	if idx := strings.Index(lower, "run "); idx >= 0 {
		return strings.TrimSpace(prompt[idx+len("run "):])
	}
	if idx := strings.Index(lower, "execute "); idx >= 0 {
		return strings.TrimSpace(prompt[idx+len("execute "):])
	}
	if strings.Contains(lower, "make") || strings.Contains(lower, "build") {
		return "make"
	}
	if strings.Contains(lower, "test") {
		return "make test"
	}
	if strings.Contains(lower, "npm install") {
		return "npm install"
	}
	if idx := strings.Index(lower, "git "); idx >= 0 {
		return prompt[idx:]
	}
	return prompt
}

// scriptNameAround extracts the word ending in ext at its first occurrence.
func scriptNameAround(prompt, lower, ext string) string {
	idx := strings.Index(lower, ext)
	if idx < 0 {
		return ""
	}
	start := idx
	for start > 0 && prompt[start-1] != ' ' && prompt[start-1] != '\'' && prompt[start-1] != '"' {
		start--
	}
	return prompt[start : idx+len(ext)]
}
