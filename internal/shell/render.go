package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mag-gateway/mag/internal/coordinator"
	"github.com/mag-gateway/mag/internal/todo"
)

func (s *Shell) showWelcome() {
	s.printColored(fmt.Sprintf("MAG %s - Multi-Agent Gateway", s.version), colorBlue)
	fmt.Fprintln(s.out)
	s.printColored("Chat mode enabled with todo tool integration", colorGreen)
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "Type '/help' for commands, '/exit' to quit.")
	fmt.Fprintln(s.out)
}

func (s *Shell) showHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  /gemini, /claude, /chatgpt, /mistral  - Switch LLM provider")
	fmt.Fprintln(s.out, "  /debug                                - Show debug information")
	fmt.Fprintln(s.out, "  /todo                                 - Show todo list")
	fmt.Fprintln(s.out, "  /do [all|next|until N|N-M|N]          - Execute todos")
	fmt.Fprintln(s.out, "  /pause                                - Pause execution")
	fmt.Fprintln(s.out, "  /resume                               - Resume paused execution")
	fmt.Fprintln(s.out, "  /stop                                 - Stop execution")
	fmt.Fprintln(s.out, "  /cancel                               - Cancel execution")
	fmt.Fprintln(s.out, "  /status                               - Show system and execution status")
	fmt.Fprintln(s.out, "  /history                              - Show conversation history")
	fmt.Fprintln(s.out, "  /session [list|new|load <id>]         - Manage conversation sessions")
	fmt.Fprintln(s.out, "  /help, /h                             - Show this help")
	fmt.Fprintln(s.out, "  /exit, /quit, /q                      - Exit MAG")
	fmt.Fprintln(s.out, "\nOr just type your request naturally:")
	fmt.Fprintln(s.out, "  \"create a hello world Python script\"")
	fmt.Fprintln(s.out, "  \"help me refactor this code\"")
	fmt.Fprintln(s.out, "  \"add unit tests for the calculator\"")
	fmt.Fprintln(s.out)
}

func (s *Shell) showStatus() {
	fmt.Fprintln(s.out, "\n=== MAG System Status ===")
	fmt.Fprintln(s.out, "Mode: Chat with todo tool integration")
	fmt.Fprintf(s.out, "Provider: %s\n", s.coord.Provider())
	fmt.Fprintf(s.out, "Debug log: %s\n", filepath.Join(s.stateDir, "debug.log"))
	fmt.Fprintf(s.out, "History: %s\n", filepath.Join(s.stateDir, "history"))
	fmt.Fprintf(s.out, "Policy: %s\n", filepath.Join(s.stateDir, "policy.json"))

	switch s.coord.State() {
	case coordinator.StateRunning:
		s.printColored("Execution: RUNNING", colorGreen)
		fmt.Fprintln(s.out, "\nExecution in progress...")
		fmt.Fprintln(s.out, "Use /pause, /stop, or /cancel to control")
	case coordinator.StatePaused:
		s.printColored("Execution: PAUSED", colorYellow)
		fmt.Fprintln(s.out, "\nExecution paused")
		fmt.Fprintln(s.out, "Use /resume to continue or /stop to stop")
	case coordinator.StateCancelled:
		s.printColored("Execution: CANCELLED", colorRed)
		fmt.Fprintln(s.out, "\nLast execution was cancelled")
		fmt.Fprintln(s.out, "Use /do to start new execution")
	default:
		s.printColored("Execution: STOPPED", colorWhite)
		fmt.Fprintln(s.out, "\nUse /do to start running todos")
	}
	fmt.Fprintln(s.out)
}

func (s *Shell) showDebug() {
	fmt.Fprintln(s.out, "\n=== Debug Information ===")
	fmt.Fprintf(s.out, "Debug log: %s\n", filepath.Join(s.stateDir, "debug.log"))
	fmt.Fprintf(s.out, "Policy file: %s\n", filepath.Join(s.stateDir, "policy.json"))
	fmt.Fprintf(s.out, "History file: %s\n", filepath.Join(s.stateDir, "history"))

	fmt.Fprintln(s.out, "\nRecent debug log entries:")
	lines, err := tailFile(filepath.Join(s.stateDir, "debug.log"), 5)
	if err != nil || len(lines) == 0 {
		fmt.Fprintln(s.out, "No debug log found")
	} else {
		for _, line := range lines {
			fmt.Fprintln(s.out, line)
		}
	}
	fmt.Fprintln(s.out)
}

// tailFile returns the last n non-empty lines of path.
func tailFile(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func (s *Shell) showTodoList() {
	items := s.coord.Todos().List(true)

	fmt.Fprintln(s.out, "\n=== Todo List ===")
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No todos yet.")
	} else {
		for _, item := range items {
			icon, color := statusBadge(item.Status)
			s.printColored(fmt.Sprintf("%s %d: %s", icon, item.ID, item.Title), color)
			fmt.Fprintln(s.out)
			if item.Description != "" {
				fmt.Fprintf(s.out, "   %s\n", item.Description)
			}
		}
	}
	fmt.Fprintln(s.out)
}

func statusBadge(status todo.Status) (icon, color string) {
	switch status {
	case todo.StatusInProgress:
		return "🔄", colorCyan
	case todo.StatusCompleted:
		return "✅", colorGreen
	default:
		return "⏳", colorYellow
	}
}

func (s *Shell) showHistory() {
	conv := s.coord.Conversation()
	if conv == nil || conv.Len() == 0 {
		s.printColored("No conversation history available.", colorYellow)
		fmt.Fprintln(s.out)
		return
	}

	msgs := conv.Messages()
	s.printColored("=== Conversation History ===", colorBlue)
	fmt.Fprintf(s.out, " (Session: %s)\n", conv.SessionID())

	for i, msg := range msgs {
		switch msg.Role {
		case "user":
			s.printColored("User", colorCyan)
		case "assistant":
			s.printColored("Assistant", colorGreen)
			if msg.Provider != "" {
				fmt.Fprintf(s.out, " (%s)", msg.Provider)
			}
		default:
			s.printColored("System", colorMagenta)
		}
		fmt.Fprintf(s.out, ": %s\n", msg.Content)

		// Timestamps only for the recent tail, unless the history is short.
		if i >= len(msgs)-5 || len(msgs) <= 10 {
			fmt.Fprintf(s.out, "  %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(s.out)
	}

	fmt.Fprintf(s.out, "Total messages: %d\n", len(msgs))
}
