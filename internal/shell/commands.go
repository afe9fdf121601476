package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const doUsage = "Usage: /do [all|next|until <id>|<start>-<end>|<id>]"

// handleDo parses and dispatches the /do forms.
func (s *Shell) handleDo(ctx context.Context, command string) {
	args := strings.TrimSpace(strings.TrimPrefix(command, "do"))
	log.Debug().Str("args", args).Msg("do command")

	switch {
	case args == "" || args == "all":
		s.coord.ExecuteAll(ctx)
	case args == "next":
		s.coord.ExecuteNext(ctx)
	case strings.HasPrefix(args, "until"):
		idStr := strings.TrimSpace(strings.TrimPrefix(args, "until"))
		if idStr == "" {
			s.printColored("Usage: /do until <id>", colorYellow)
			fmt.Fprintln(s.out)
			return
		}
		stopID, err := strconv.Atoi(idStr)
		if err != nil {
			s.doError(err)
			return
		}
		s.coord.ExecuteUntil(ctx, stopID)
	case strings.Contains(args, "-"):
		startStr, endStr, _ := strings.Cut(args, "-")
		startID, err := strconv.Atoi(strings.TrimSpace(startStr))
		if err != nil {
			s.doError(err)
			return
		}
		endID, err := strconv.Atoi(strings.TrimSpace(endStr))
		if err != nil {
			s.doError(err)
			return
		}
		s.coord.ExecuteRange(ctx, startID, endID)
	default:
		id, err := strconv.Atoi(args)
		if err != nil {
			s.doError(err)
			return
		}
		s.coord.ExecuteSingle(ctx, id)
	}
}

func (s *Shell) doError(err error) {
	s.printColored("Do error: "+err.Error(), colorRed)
	fmt.Fprintln(s.out)
	s.printColored(doUsage, colorYellow)
	fmt.Fprintln(s.out)
}

// switchProvider changes the model provider while keeping the current
// conversation context.
func (s *Shell) switchProvider(name string) {
	if err := s.coord.SetProvider(name); err != nil {
		s.printColored("Error switching provider: "+err.Error(), colorRed)
		fmt.Fprintln(s.out)
		log.Warn().Err(err).Str("provider", name).Msg("provider switch failed")
		return
	}
	if conv := s.coord.Conversation(); conv != nil && conv.Len() > 0 {
		fmt.Fprintf(s.out, "(maintaining conversation context with %d messages)\n", conv.Len())
	}
	log.Debug().Str("provider", name).Msg("provider switched")
}

// handleSession dispatches /session, /session new, and /session load.
func (s *Shell) handleSession(args string) {
	conv := s.coord.Conversation()
	if conv == nil {
		s.printColored("Conversation persistence is not enabled.", colorYellow)
		fmt.Fprintln(s.out)
		return
	}

	args = strings.TrimSpace(args)
	switch {
	case args == "" || args == "list":
		s.listSessions()
	case args == "new":
		id := conv.Reset()
		s.printColored("Started new conversation session: "+id, colorGreen)
		fmt.Fprintln(s.out)
	case strings.HasPrefix(args, "load"):
		id := strings.TrimSpace(strings.TrimPrefix(args, "load"))
		if id == "" {
			s.printColored("Usage: /session load <session_id>", colorYellow)
			fmt.Fprintln(s.out)
			return
		}
		if err := conv.Load(id); err != nil {
			s.printColored("Failed to load session: "+id, colorRed)
			fmt.Fprintln(s.out)
			log.Warn().Err(err).Str("session", id).Msg("session load failed")
			return
		}
		s.printColored(fmt.Sprintf("Loaded session: %s (%d messages)", id, conv.Len()), colorGreen)
		fmt.Fprintln(s.out)
	default:
		s.printColored("Unknown session command. Usage:", colorYellow)
		fmt.Fprintln(s.out)
		fmt.Fprintln(s.out, "  /session       - List available sessions")
		fmt.Fprintln(s.out, "  /session new   - Start new session")
		fmt.Fprintln(s.out, "  /session load <id> - Load specific session")
	}
}

func (s *Shell) listSessions() {
	conv := s.coord.Conversation()
	sessions, err := conv.List()
	if err != nil {
		s.printColored("Session error: "+err.Error(), colorRed)
		fmt.Fprintln(s.out)
		return
	}

	s.printColored("=== Available Conversation Sessions ===", colorBlue)
	fmt.Fprintln(s.out)

	if len(sessions) == 0 {
		s.printColored("No saved sessions found.", colorYellow)
		fmt.Fprintln(s.out)
		return
	}

	shown := len(sessions)
	if shown > 10 {
		shown = 10
	}
	for i := 0; i < shown; i++ {
		fmt.Fprintf(s.out, "  %d. %s", i+1, sessions[i].ID)
		if sessions[i].ID == conv.SessionID() {
			s.printColored(" (current)", colorGreen)
		}
		fmt.Fprintln(s.out)
	}
	if len(sessions) > 10 {
		fmt.Fprintf(s.out, "  ... and %d more\n", len(sessions)-10)
	}
}
