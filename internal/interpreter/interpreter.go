// Package interpreter scans assistant replies for embedded directives,
// runs them against the work queue, and substitutes each call with its
// user-visible result.
package interpreter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mag-gateway/mag/internal/todo"
)

// Actions is what the interpreter can do to the rest of the system. The
// coordinator provides the implementation.
type Actions interface {
	AddTodo(title, description string) int
	ListTodos() []todo.Item
	UpdateTodo(id int, title, description string) error
	MarkComplete(id int) bool
	DeleteTodo(id int) bool

	// ExecuteNext runs the oldest pending item. Returns its title.
	ExecuteNext() (string, bool)
	// ExecuteAll runs every pending item and returns how many ran.
	ExecuteAll() int
	// ExecuteTodo runs one pending item by id. Returns its title.
	ExecuteTodo(id int) (string, bool)

	PendingCount() int
}

// Result carries the rewritten reply and the side effects that occurred.
type Result struct {
	Text              string
	Log               []string
	ApprovalRequested bool
	ApprovalReason    string

	// inert tracks spans of substituted text. Directives are only ever
	// matched against original reply text, never against replacements.
	inert []span
}

type span struct{ start, end int }

const separator = "<TODO_SEPARATOR>"

// Both quote styles are accepted; models flip between them freely.
var (
	addTodoRe     = regexp.MustCompile(`add_todo\s*\(\s*['"](.*?)['"]\s*,\s*['"](.*?)['"]\s*\)`)
	updateTodoRe  = regexp.MustCompile(`update_todo\s*\(\s*(\d+)\s*,\s*['"](.*?)['"]\s*,\s*['"](.*?)['"]\s*\)`)
	listTodosRe   = regexp.MustCompile(`list_todos\s*\(\s*\)`)
	markDoneRe    = regexp.MustCompile(`mark_complete\s*\(\s*(\d+)\s*\)`)
	deleteTodoRe  = regexp.MustCompile(`delete_todo\s*\(\s*(\d+)\s*\)`)
	executeNextRe = regexp.MustCompile(`execute_next\s*\(\s*\)`)
	executeAllRe  = regexp.MustCompile(`execute_all\s*\(\s*\)`)
	executeOneRe  = regexp.MustCompile(`execute_todo\s*\(\s*(\d+)\s*\)`)
	approvalRe    = regexp.MustCompile(`request_user_approval\s*\(\s*['"](.*?)['"]\s*\)`)
)

// Run processes every directive in the reply. Matching resumes after
// each substitution so directive-looking text produced by a replacement
// (a todo titled "list_todos()" rendered into a list block, say) is
// never re-interpreted.
func Run(text string, actions Actions) Result {
	res := Result{Text: text}

	res.processAddTodo(actions)
	res.processSeparatorBlocks(actions)
	res.processListTodos(actions)
	res.processUpdateTodo(actions)
	res.processMarkComplete(actions)
	res.processDeleteTodo(actions)
	res.processExecuteNext(actions)
	res.processExecuteAll(actions)
	res.processExecuteTodo(actions)
	res.processApproval()

	if len(res.Log) > 0 {
		log.Debug().Int("operations", len(res.Log)).Msg("interpreter processed directives")
	}
	return res
}

// rewrite replaces each match of re using fn, scanning left to right.
// Matches that touch earlier replacements are skipped, and each new
// replacement is recorded as inert, so a directive rendered into the
// output (a todo titled "list_todos()", say) is never interpreted.
func (r *Result) rewrite(re *regexp.Regexp, fn func(groups []string) string) {
	pos := 0
	for pos < len(r.Text) {
		m := re.FindStringSubmatchIndex(r.Text[pos:])
		if m == nil {
			return
		}
		start, end := pos+m[0], pos+m[1]
		if r.overlapsInert(start, end) {
			pos = start + 1
			continue
		}
		groups := make([]string, 0, len(m)/2)
		for i := 0; i < len(m); i += 2 {
			if m[i] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, r.Text[pos+m[i]:pos+m[i+1]])
		}
		replacement := fn(groups)
		r.Text = r.Text[:start] + replacement + r.Text[end:]
		r.markInert(start, start+len(replacement), end-start)
		pos = start + len(replacement)
	}
}

func (r *Result) overlapsInert(start, end int) bool {
	for _, sp := range r.inert {
		if start < sp.end && end > sp.start {
			return true
		}
	}
	return false
}

// markInert records the replacement span and shifts spans sitting after
// the replaced region by the length change.
func (r *Result) markInert(start, end, removed int) {
	delta := (end - start) - removed
	for i := range r.inert {
		if r.inert[i].start >= start+removed {
			r.inert[i].start += delta
			r.inert[i].end += delta
		}
	}
	r.inert = append(r.inert, span{start, end})
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *Result) processAddTodo(actions Actions) {
	r.rewrite(addTodoRe, func(g []string) string {
		title, description := g[1], g[2]
		id := actions.AddTodo(title, description)
		r.logf("[TODO] Added: %s (ID: %d)", title, id)
		return "**Added:** " + title
	})
}

// processSeparatorBlocks handles the block form used for content that
// cannot survive inside quoted arguments. Blocks are delimited by a
// <TODO_SEPARATOR> line on each side, with Title: and Description: fields.
func (r *Result) processSeparatorBlocks(actions Actions) {
	pos := 0
	for {
		start := strings.Index(r.Text[pos:], separator)
		if start < 0 {
			return
		}
		start += pos
		if r.overlapsInert(start, start+len(separator)) {
			pos = start + len(separator)
			continue
		}
		contentStart := start + len(separator)

		newline := strings.Index(r.Text[contentStart:], "\n")
		if newline < 0 {
			return
		}
		bodyStart := contentStart + newline + 1

		end := strings.Index(r.Text[bodyStart:], "\n"+separator)
		if end < 0 {
			return
		}
		body := r.Text[bodyStart : bodyStart+end]
		blockEnd := bodyStart + end + 1 + len(separator)

		title, description, ok := parseBlock(body)
		if !ok {
			pos = blockEnd
			continue
		}

		id := actions.AddTodo(title, description)
		r.logf("[TODO] Added: %s (ID: %d)", title, id)
		replacement := "**Added:** " + title
		r.Text = r.Text[:start] + replacement + r.Text[blockEnd:]
		r.markInert(start, start+len(replacement), blockEnd-start)
		pos = start + len(replacement)
	}
}

func parseBlock(body string) (title, description string, ok bool) {
	titleIdx := strings.Index(body, "Title:")
	descIdx := strings.Index(body, "Description:")
	if titleIdx < 0 || descIdx < 0 {
		return "", "", false
	}
	titleEnd := strings.Index(body[titleIdx:], "\n")
	if titleEnd < 0 {
		titleEnd = len(body) - titleIdx
	}
	title = strings.TrimSpace(body[titleIdx+len("Title:") : titleIdx+titleEnd])
	description = strings.TrimSpace(body[descIdx+len("Description:"):])
	return title, description, true
}

func (r *Result) processListTodos(actions Actions) {
	r.rewrite(listTodosRe, func(_ []string) string {
		items := actions.ListTodos()
		var b strings.Builder
		b.WriteString("\n**Current Todos:**\n")
		if len(items) == 0 {
			b.WriteString("- No todos yet\n")
		}
		for _, item := range items {
			icon := "⏳"
			if item.Status == todo.StatusCompleted {
				icon = "✅"
			}
			fmt.Fprintf(&b, "- %s %d: %s\n", icon, item.ID, item.Title)
			if item.Description != "" {
				fmt.Fprintf(&b, "  %s\n", item.Description)
			}
		}
		return b.String()
	})
}

func (r *Result) processUpdateTodo(actions Actions) {
	r.rewrite(updateTodoRe, func(g []string) string {
		id, _ := strconv.Atoi(g[1])
		if err := actions.UpdateTodo(id, g[2], g[3]); err != nil {
			return fmt.Sprintf("**Error:** Todo %d not found", id)
		}
		r.logf("[TODO] Updated: ID %d", id)
		return fmt.Sprintf("**Updated:** Todo %d", id)
	})
}

func (r *Result) processMarkComplete(actions Actions) {
	r.rewrite(markDoneRe, func(g []string) string {
		id, _ := strconv.Atoi(g[1])
		if !actions.MarkComplete(id) {
			return fmt.Sprintf("**Error:** Todo %d not found", id)
		}
		r.logf("[TODO] Completed: ID %d", id)
		return fmt.Sprintf("**Completed:** Todo %d", id)
	})
}

func (r *Result) processDeleteTodo(actions Actions) {
	r.rewrite(deleteTodoRe, func(g []string) string {
		id, _ := strconv.Atoi(g[1])
		if !actions.DeleteTodo(id) {
			return fmt.Sprintf("**Error:** Todo %d not found", id)
		}
		r.logf("[TODO] Deleted: ID %d", id)
		return fmt.Sprintf("**Deleted:** Todo %d", id)
	})
}

func (r *Result) processExecuteNext(actions Actions) {
	r.rewrite(executeNextRe, func(_ []string) string {
		title, ok := actions.ExecuteNext()
		if !ok {
			return "**No pending todos to execute**"
		}
		r.logf("[EXECUTE] Completed: %s", title)
		return "**Executed:** " + title
	})
}

func (r *Result) processExecuteAll(actions Actions) {
	r.rewrite(executeAllRe, func(_ []string) string {
		count := actions.ExecuteAll()
		r.logf("[EXECUTE] Ran %d pending todos", count)
		return fmt.Sprintf("**Executed %d pending todos**", count)
	})
}

func (r *Result) processExecuteTodo(actions Actions) {
	r.rewrite(executeOneRe, func(g []string) string {
		id, _ := strconv.Atoi(g[1])
		title, ok := actions.ExecuteTodo(id)
		if !ok {
			return fmt.Sprintf("**Error:** Todo %d not found or not pending", id)
		}
		r.logf("[EXECUTE] Completed: %s (ID: %d)", title, id)
		return "**Executed:** " + title
	})
}

func (r *Result) processApproval() {
	r.rewrite(approvalRe, func(g []string) string {
		reason := g[1]
		r.ApprovalRequested = true
		r.ApprovalReason = reason
		r.logf("[APPROVAL REQUESTED] %s", reason)
		return "**⏸️  Requesting User Approval:** " + reason +
			"\n\nI've paused here to get your approval. Please review the pending todos and use /do commands when you're ready to proceed."
	})
}
