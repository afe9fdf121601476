package interpreter

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mag-gateway/mag/internal/todo"
)

// fakeActions records calls and drives the work queue directly.
type fakeActions struct {
	store    *todo.Store
	executed []int
}

func newFakeActions() *fakeActions {
	return &fakeActions{store: todo.NewStore()}
}

func (f *fakeActions) AddTodo(title, description string) int {
	id, err := f.store.Add(title, description)
	if err != nil {
		return 0
	}
	return id
}

func (f *fakeActions) ListTodos() []todo.Item { return f.store.List(true) }

func (f *fakeActions) UpdateTodo(id int, title, description string) error {
	return f.store.Update(id, title, description)
}

func (f *fakeActions) MarkComplete(id int) bool {
	return f.store.SetStatus(id, todo.StatusCompleted) == nil
}

func (f *fakeActions) DeleteTodo(id int) bool { return f.store.Delete(id) == nil }

func (f *fakeActions) ExecuteNext() (string, bool) {
	item, ok := f.store.NextPending()
	if !ok {
		return "", false
	}
	f.executed = append(f.executed, item.ID)
	f.store.SetStatus(item.ID, todo.StatusCompleted)
	return item.Title, true
}

func (f *fakeActions) ExecuteAll() int {
	count := 0
	for {
		if _, ok := f.ExecuteNext(); !ok {
			return count
		}
		count++
	}
}

func (f *fakeActions) ExecuteTodo(id int) (string, bool) {
	item, ok := f.store.Get(id)
	if !ok || item.Status != todo.StatusPending {
		return "", false
	}
	f.executed = append(f.executed, id)
	f.store.SetStatus(id, todo.StatusCompleted)
	return item.Title, true
}

func (f *fakeActions) PendingCount() int { return len(f.store.ExecutionQueue()) }

func TestAddTodoBothQuoteStyles(t *testing.T) {
	actions := newFakeActions()
	res := Run(`Sure! add_todo("Create script", "Python script in src/") and add_todo('Run it', 'python3 src/app.py')`, actions)

	items := actions.store.List(true)
	require.Len(t, items, 2)
	assert.Equal(t, "Create script", items[0].Title)
	assert.Equal(t, "Run it", items[1].Title)

	assert.Contains(t, res.Text, "**Added:** Create script")
	assert.Contains(t, res.Text, "**Added:** Run it")
	assert.NotContains(t, res.Text, "add_todo")
	assert.Len(t, res.Log, 2)
}

func TestSeparatorBlock(t *testing.T) {
	actions := newFakeActions()
	text := "I'll create that!\n" +
		"<TODO_SEPARATOR>\n" +
		"Title: Create interactive script\n" +
		"Description: Script that prints \"Hello!\" and asks \"What's your name?\"\n" +
		"Handles multi-line content too\n" +
		"<TODO_SEPARATOR>\n" +
		"All queued."

	res := Run(text, actions)

	items := actions.store.List(true)
	require.Len(t, items, 1)
	assert.Equal(t, "Create interactive script", items[0].Title)
	assert.Contains(t, items[0].Description, `"Hello!"`)
	assert.Contains(t, items[0].Description, "multi-line")

	assert.Contains(t, res.Text, "**Added:** Create interactive script")
	assert.NotContains(t, res.Text, "<TODO_SEPARATOR>")
}

func TestSeparatorBlockMalformedLeftAlone(t *testing.T) {
	actions := newFakeActions()
	text := "<TODO_SEPARATOR>\nno fields here\n<TODO_SEPARATOR>"
	res := Run(text, actions)

	assert.Equal(t, 0, actions.store.Len())
	assert.Contains(t, res.Text, "<TODO_SEPARATOR>")
}

func TestListTodos(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("first", "details")
	id, _ := actions.store.Add("second", "")
	actions.store.SetStatus(id, todo.StatusCompleted)

	res := Run("Here you go: list_todos()", actions)

	assert.Contains(t, res.Text, "**Current Todos:**")
	assert.Contains(t, res.Text, "⏳ 1: first")
	assert.Contains(t, res.Text, "details")
	assert.Contains(t, res.Text, "✅ 2: second")
}

func TestListTodosEmpty(t *testing.T) {
	res := Run("list_todos()", newFakeActions())
	assert.Contains(t, res.Text, "No todos yet")
}

func TestMarkCompleteAndDelete(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("a", "")
	actions.store.Add("b", "")

	res := Run("mark_complete(1) delete_todo(2) mark_complete(9)", actions)

	assert.Contains(t, res.Text, "**Completed:** Todo 1")
	assert.Contains(t, res.Text, "**Deleted:** Todo 2")
	assert.Contains(t, res.Text, "**Error:** Todo 9 not found")

	item, _ := actions.store.Get(1)
	assert.Equal(t, todo.StatusCompleted, item.Status)
	_, ok := actions.store.Get(2)
	assert.False(t, ok)
}

func TestUpdateTodo(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("old title", "old desc")

	res := Run(`update_todo(1, "new title", "new desc")`, actions)
	assert.Contains(t, res.Text, "**Updated:** Todo 1")

	item, _ := actions.store.Get(1)
	assert.Equal(t, "new title", item.Title)
	assert.Equal(t, "new desc", item.Description)
}

func TestExecuteNext(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("build", "")

	res := Run("execute_next()", actions)
	assert.Contains(t, res.Text, "**Executed:** build")
	assert.Equal(t, []int{1}, actions.executed)

	res = Run("execute_next()", actions)
	assert.Contains(t, res.Text, "**No pending todos to execute**")
}

func TestExecuteAll(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("a", "")
	actions.store.Add("b", "")
	actions.store.Add("c", "")

	res := Run("execute_all()", actions)
	assert.Contains(t, res.Text, "**Executed 3 pending todos**")
	assert.Equal(t, []int{1, 2, 3}, actions.executed)
}

func TestExecuteTodoByID(t *testing.T) {
	actions := newFakeActions()
	actions.store.Add("a", "")
	actions.store.Add("b", "")

	res := Run("execute_todo(2) execute_todo(2)", actions)
	assert.Contains(t, res.Text, "**Executed:** b")
	assert.Contains(t, res.Text, "**Error:** Todo 2 not found or not pending")
}

func TestRequestUserApproval(t *testing.T) {
	actions := newFakeActions()
	res := Run(`request_user_approval("This will delete files - please confirm")`, actions)

	assert.True(t, res.ApprovalRequested)
	assert.Equal(t, "This will delete files - please confirm", res.ApprovalReason)
	assert.Contains(t, res.Text, "**⏸️  Requesting User Approval:** This will delete files")
}

func TestCompositeReply(t *testing.T) {
	actions := newFakeActions()
	text := `I'll create and execute that for you! ` +
		`add_todo("Create counting script", "Python script that counts from 0 to 10") ` +
		`add_todo("Execute counting script", "python3 src/counting.py") ` +
		`execute_all() Done!`

	res := Run(text, actions)

	assert.Contains(t, res.Text, "**Added:** Create counting script")
	assert.Contains(t, res.Text, "**Added:** Execute counting script")
	assert.Contains(t, res.Text, "**Executed 2 pending todos**")
	assert.Equal(t, []int{1, 2}, actions.executed)
	assert.Equal(t, 0, actions.PendingCount())
}

func TestNoDirectivesPassThrough(t *testing.T) {
	text := "Just a normal conversational reply with no calls."
	res := Run(text, newFakeActions())
	assert.Equal(t, text, res.Text)
	assert.Empty(t, res.Log)
}

func TestDirectiveTextInReplacementNotReinterpreted(t *testing.T) {
	actions := newFakeActions()
	res := Run(`add_todo("list_todos()", "x") list_todos()`, actions)

	// The todo titled "list_todos()" is rendered into the list block but
	// must not be executed as a directive on a rescan.
	require.Equal(t, 1, actions.store.Len())
	assert.Contains(t, res.Text, "**Added:** list_todos()")
	assert.Equal(t, 1, strings.Count(res.Text, "**Current Todos:**"))
	assert.Contains(t, res.Text, "⏳ 1: list_todos()")
}

func TestDirectiveInsideAddedTitleStaysInert(t *testing.T) {
	actions := newFakeActions()
	res := Run(`add_todo("run execute_all() later", "") execute_all()`, actions)

	// execute_all drains the queue once; the title's embedded call is text.
	assert.Contains(t, res.Text, "**Executed 1 pending todos**")
	assert.Equal(t, []int{1}, actions.executed)
	assert.Equal(t, 1, strings.Count(res.Text, "**Executed"))
}

func TestManyDirectivesTerminate(t *testing.T) {
	actions := newFakeActions()
	text := ""
	for i := 0; i < 20; i++ {
		text += fmt.Sprintf("add_todo(\"item %d\", \"\") ", i)
	}
	Run(text, actions)
	assert.Equal(t, 20, actions.store.Len())
}
