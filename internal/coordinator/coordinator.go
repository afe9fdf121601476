// Package coordinator drives the full request lifecycle: model call,
// directive interpretation, validation against policy, preview, and
// controlled application of file writes and shell commands.
package coordinator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mag-gateway/mag/internal/conversation"
	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/executor"
	"github.com/mag-gateway/mag/internal/interpreter"
	"github.com/mag-gateway/mag/internal/ops"
	"github.com/mag-gateway/mag/internal/policy"
	"github.com/mag-gateway/mag/internal/todo"
)

// Model is the slice of the llm client the coordinator needs. Narrow so
// tests can stub it.
type Model interface {
	Plan(ctx context.Context, userPrompt string) (ops.WriteFileCommand, error)
	Chat(ctx context.Context, userPrompt string) (string, error)
	ChatWithHistory(ctx context.Context, history []conversation.Message) (string, error)
	Provider() string
	SetProvider(name, model string) error
}

// Config wires the coordinator's collaborators.
type Config struct {
	Model  Model
	Engine *policy.Engine
	Todos  *todo.Store
	Conv   *conversation.Store
	Writer *executor.FileWriter
	Runner *executor.Runner

	// Input and Output default to stdin/stdout.
	Input  io.Reader
	Output io.Writer

	// AlwaysApprove skips the per-change confirmation prompt.
	AlwaysApprove bool
}

// Coordinator owns one interactive session.
type Coordinator struct {
	model  Model
	engine *policy.Engine
	todos  *todo.Store
	conv   *conversation.Store
	writer *executor.FileWriter
	runner *executor.Runner

	in  *bufio.Scanner
	out io.Writer

	chatMode      bool
	autonomous    bool
	alwaysApprove bool

	control controlState
}

// New builds a coordinator. Chat mode starts enabled.
func New(cfg Config) *Coordinator {
	in := cfg.Input
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Writer == nil {
		cfg.Writer = &executor.FileWriter{}
	}
	if cfg.Runner == nil {
		cfg.Runner = executor.NewRunner("")
	}
	return &Coordinator{
		model:         cfg.Model,
		engine:        cfg.Engine,
		todos:         cfg.Todos,
		conv:          cfg.Conv,
		writer:        cfg.Writer,
		runner:        cfg.Runner,
		in:            bufio.NewScanner(in),
		out:           out,
		chatMode:      true,
		autonomous:    true,
		alwaysApprove: cfg.AlwaysApprove,
	}
}

// Autonomous reports whether model-initiated execution directives run.
func (c *Coordinator) Autonomous() bool { return c.autonomous }

// SetAutonomous toggles model-initiated execution. When off, execution
// directives in chat replies report no work instead of running items.
func (c *Coordinator) SetAutonomous(enabled bool) { c.autonomous = enabled }

// ChatMode reports whether replies go through chat mode.
func (c *Coordinator) ChatMode() bool { return c.chatMode }

// SetChatMode toggles between chat mode and direct plan mode.
func (c *Coordinator) SetChatMode(enabled bool) {
	c.chatMode = enabled
	if enabled {
		fmt.Fprintln(c.out, "Chat mode enabled")
	} else {
		fmt.Fprintln(c.out, "Chat mode disabled")
	}
}

// Provider returns the active provider name.
func (c *Coordinator) Provider() string { return c.model.Provider() }

// SetProvider switches the model provider mid-session.
func (c *Coordinator) SetProvider(name string) error {
	if err := c.model.SetProvider(name, ""); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Switched to provider: %s\n", name)
	return nil
}

// Todos exposes the work queue for the CLI's /todo rendering.
func (c *Coordinator) Todos() *todo.Store { return c.todos }

// Conversation exposes the session store for the CLI's /history and
// /session commands.
func (c *Coordinator) Conversation() *conversation.Store { return c.conv }

// Run handles one user message. In chat mode the reply may carry
// directives; they are interpreted before the text is shown. Outside chat
// mode the message goes straight through the plan flow.
func (c *Coordinator) Run(ctx context.Context, userPrompt string) error {
	if c.chatMode {
		return c.runChat(ctx, userPrompt)
	}
	return c.runPlan(ctx, userPrompt, !c.alwaysApprove)
}

func (c *Coordinator) runChat(ctx context.Context, userPrompt string) error {
	if c.conv != nil {
		if err := c.conv.Append(conversation.RoleUser, userPrompt, c.model.Provider()); err != nil {
			log.Warn().Err(err).Msg("failed to persist user message")
		}
	}

	var reply string
	var err error
	if c.conv != nil && c.conv.Len() > 1 {
		reply, err = c.model.ChatWithHistory(ctx, c.conv.History(chatTokenBudget))
	} else {
		reply, err = c.model.Chat(ctx, userPrompt)
	}
	if err != nil {
		return err
	}

	res := interpreter.Run(reply, c.actions(ctx))
	fmt.Fprintln(c.out, res.Text)
	for _, line := range res.Log {
		fmt.Fprintln(c.out, line)
	}

	if pending := len(c.todos.ExecutionQueue()); pending > 0 && len(res.Log) > 0 {
		fmt.Fprintf(c.out, "\n💡 Suggestion: You have %d pending todo(s). Use '/do next' to execute the next one, or '/do all' to execute all pending todos.\n", pending)
	}

	if c.conv != nil {
		if err := c.conv.Append(conversation.RoleAssistant, res.Text, c.model.Provider()); err != nil {
			log.Warn().Err(err).Msg("failed to persist assistant message")
		}
	}
	return nil
}

// chatTokenBudget caps how much history rides along on each chat turn.
const chatTokenBudget = 24000

// runPlan is the direct file-operation flow: plan, validate, policy
// check, preview, optional confirmation, apply.
func (c *Coordinator) runPlan(ctx context.Context, userPrompt string, confirm bool) error {
	cmd, err := c.model.Plan(ctx, userPrompt)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "LLM proposed: %s %s\n", cmd.Command, cmd.Path)

	if cmd.Path == "" {
		return magerr.InvalidArgument("coordinator.plan", "model returned an empty file path")
	}
	if cmd.Command != "write" {
		return magerr.InvalidArgument("coordinator.plan",
			fmt.Sprintf("model returned unsupported command %q", cmd.Command))
	}

	if allowed, reason := c.engine.Allowed(policy.ToolFile, policy.OpCreate, cmd.Path); !allowed {
		fmt.Fprintf(c.out, "Policy Denied: File path '%s' is not allowed.\n", cmd.Path)
		return magerr.PolicyDenial("coordinator.plan", reason)
	}
	if !c.engine.FileSizeAllowed(int64(len(cmd.Content))) {
		fmt.Fprintf(c.out, "Policy Denied: File content exceeds the size limit.\n")
		return magerr.PolicyDenial("coordinator.plan", "file size limit exceeded")
	}

	preview := c.writer.DryRun(cmd)
	if !preview.Success {
		return magerr.IO("coordinator.dry_run", fmt.Errorf("%s", preview.Error))
	}
	fmt.Fprintln(c.out, preview.Description)

	if confirm && !c.alwaysApprove && !c.confirmChange() {
		fmt.Fprintln(c.out, "Operation cancelled by user.")
		return nil
	}

	result := c.writer.Apply(cmd)
	c.displayApplyResult(result)
	if !result.Success {
		return magerr.IO("coordinator.apply", fmt.Errorf("%s", result.Error))
	}
	return nil
}

// confirmChange prompts for a single change. 'a' flips on always-approve
// for the rest of the session.
func (c *Coordinator) confirmChange() bool {
	fmt.Fprint(c.out, "Apply this change? [y)es/n)o/a)lways]: ")
	if !c.in.Scan() {
		return false
	}
	input := strings.TrimSpace(c.in.Text())
	if input == "" {
		return false
	}
	switch input[0] {
	case 'a', 'A':
		c.alwaysApprove = true
		fmt.Fprintln(c.out, "Always approve mode enabled. Future changes will be applied automatically.")
		return true
	case 'y', 'Y':
		return true
	}
	return false
}

func (c *Coordinator) displayApplyResult(result ops.ApplyResult) {
	if result.Success {
		fmt.Fprintln(c.out, result.Description)
	} else {
		fmt.Fprintf(c.out, "Operation failed: %s\n", result.Error)
	}
	if result.Context.WorkingDirectoryAfter != "" {
		fmt.Fprintf(c.out, "📍 Working directory: %s\n", result.Context.WorkingDirectoryAfter)
	}
	if result.Context.HasOutput() {
		fmt.Fprintf(c.out, "📝 Output: %s\n", result.Context.CombinedOutput())
	}
}

func (c *Coordinator) displayCommandResult(result ops.CommandResult) {
	if result.Success {
		fmt.Fprintf(c.out, "✅ Command succeeded (exit code: %d)\n", result.ExitCode)
		if result.Stdout != "" {
			fmt.Fprintf(c.out, "📝 Output:\n%s\n", result.Stdout)
		}
	} else {
		fmt.Fprintf(c.out, "❌ Command failed (exit code: %d)\n", result.ExitCode)
		if result.Stderr != "" {
			fmt.Fprintf(c.out, "📝 Error output:\n%s\n", result.Stderr)
		}
		if result.Stdout != "" {
			fmt.Fprintf(c.out, "📝 Standard output:\n%s\n", result.Stdout)
		}
	}
	if result.PwdAfter != "" {
		fmt.Fprintf(c.out, "📍 Working directory: %s\n", result.PwdAfter)
	}
}
