// Package shell is the interactive command line over the coordinator:
// the read loop, slash command dispatch, and output rendering.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/mag-gateway/mag/internal/coordinator"
)

// ANSI color codes used by the renderer.
const (
	colorRed     = "31"
	colorGreen   = "32"
	colorYellow  = "33"
	colorBlue    = "34"
	colorMagenta = "35"
	colorCyan    = "36"
	colorWhite   = "37"
)

// Config wires the shell's collaborators.
type Config struct {
	Coordinator *coordinator.Coordinator
	StateDir    string // defaults to .mag
	Version     string

	// Input and Output default to stdin/stdout.
	Input  io.Reader
	Output io.Writer
}

// Shell owns the interactive loop for one session.
type Shell struct {
	coord    *coordinator.Coordinator
	in       *bufio.Scanner
	out      io.Writer
	stateDir string
	version  string
	colors   bool
	running  bool
}

// New builds a shell. Colors are enabled when output is a terminal and
// TERM is not dumb.
func New(cfg Config) *Shell {
	in := cfg.Input
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = ".mag"
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	return &Shell{
		coord:    cfg.Coordinator,
		in:       bufio.NewScanner(in),
		out:      out,
		stateDir: stateDir,
		version:  version,
		colors:   detectColors(out),
		running:  true,
	}
}

func detectColors(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return os.Getenv("TERM") != "" && os.Getenv("TERM") != "dumb"
}

// Run reads commands until exit or EOF.
func (s *Shell) Run(ctx context.Context) error {
	s.showWelcome()
	log.Debug().Msg("shell loop started")

	for s.running {
		fmt.Fprint(s.out, s.prompt())
		if !s.in.Scan() {
			fmt.Fprintln(s.out, "\nGoodbye!")
			break
		}
		input := strings.TrimSpace(s.in.Text())
		if input == "" {
			continue
		}
		s.appendHistory(input)
		s.handle(ctx, input)
	}

	log.Debug().Msg("shell loop ended")
	return s.in.Err()
}

func (s *Shell) prompt() string {
	if s.colors {
		return "\033[1;35mMAG>\033[0m "
	}
	return "MAG> "
}

func (s *Shell) handle(ctx context.Context, input string) {
	if strings.HasPrefix(input, "/") {
		s.handleSlash(ctx, input[1:])
		return
	}

	s.printColored("Processing: "+input, colorCyan)
	fmt.Fprintln(s.out)

	if err := s.coord.Run(ctx, input); err != nil {
		s.printColored("Error: "+err.Error(), colorRed)
		fmt.Fprintln(s.out)
		log.Error().Err(err).Str("input", input).Msg("request failed")
	}
}

func (s *Shell) handleSlash(ctx context.Context, command string) {
	log.Debug().Str("command", command).Msg("slash command")

	switch {
	case command == "help" || command == "h":
		s.showHelp()
	case command == "status":
		s.showStatus()
	case command == "debug":
		s.showDebug()
	case command == "exit" || command == "quit" || command == "q":
		s.running = false
	case command == "gemini" || command == "claude" || command == "chatgpt" || command == "mistral":
		s.switchProvider(command)
	case command == "todo":
		s.showTodoList()
	case strings.HasPrefix(command, "do"):
		s.handleDo(ctx, command)
	case command == "pause":
		s.coord.Pause()
	case command == "resume":
		s.coord.Resume()
	case command == "stop":
		s.coord.Stop()
	case command == "cancel":
		s.coord.Cancel()
	case command == "history":
		s.showHistory()
	case strings.HasPrefix(command, "session"):
		s.handleSession(strings.TrimPrefix(command, "session"))
	default:
		s.printColored("Unknown command: /"+command, colorYellow)
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "Type '/help' for available commands.")
	}
}

func (s *Shell) printColored(text, color string) {
	if s.colors && color != "" {
		fmt.Fprintf(s.out, "\033[%sm%s\033[0m", color, text)
		return
	}
	fmt.Fprint(s.out, text)
}

// appendHistory records the input line in the shell history file.
func (s *Shell) appendHistory(line string) {
	path := filepath.Join(s.stateDir, "history")
	if err := os.MkdirAll(s.stateDir, 0o700); err != nil {
		log.Debug().Err(err).Msg("history directory unavailable")
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		log.Debug().Err(err).Msg("history file unavailable")
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}
