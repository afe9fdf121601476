package coordinator

import (
	"context"

	"github.com/mag-gateway/mag/internal/interpreter"
	"github.com/mag-gateway/mag/internal/todo"
)

// chatActions adapts the coordinator to the interpreter's Actions
// interface, binding the execution calls to the request context.
type chatActions struct {
	c   *Coordinator
	ctx context.Context
}

func (c *Coordinator) actions(ctx context.Context) interpreter.Actions {
	return &chatActions{c: c, ctx: ctx}
}

func (a *chatActions) AddTodo(title, description string) int {
	id, err := a.c.todos.Add(title, description)
	if err != nil {
		return 0
	}
	return id
}

func (a *chatActions) ListTodos() []todo.Item {
	return a.c.todos.List(true)
}

func (a *chatActions) UpdateTodo(id int, title, description string) error {
	return a.c.todos.Update(id, title, description)
}

func (a *chatActions) MarkComplete(id int) bool {
	return a.c.todos.SetStatus(id, todo.StatusCompleted) == nil
}

func (a *chatActions) DeleteTodo(id int) bool {
	return a.c.todos.Delete(id) == nil
}

func (a *chatActions) ExecuteNext() (string, bool) {
	if !a.c.autonomous {
		return "", false
	}
	item, ok := a.c.todos.NextPending()
	if !ok {
		return "", false
	}
	return item.Title, a.runOne(item)
}

func (a *chatActions) ExecuteAll() int {
	if !a.c.autonomous {
		return 0
	}
	count := 0
	for _, item := range a.c.todos.ExecutionQueue() {
		if !a.runOne(item) {
			break
		}
		count++
	}
	return count
}

func (a *chatActions) ExecuteTodo(id int) (string, bool) {
	if !a.c.autonomous {
		return "", false
	}
	item, ok := a.c.todos.Get(id)
	if !ok || item.Status != todo.StatusPending {
		return "", false
	}
	return item.Title, a.runOne(item)
}

func (a *chatActions) PendingCount() int {
	return len(a.c.todos.ExecutionQueue())
}

// runOne mirrors the batch loop for a single model-initiated execution:
// in progress, run, completed only on success.
func (a *chatActions) runOne(item todo.Item) bool {
	if err := a.c.todos.SetStatus(item.ID, todo.StatusInProgress); err != nil {
		return false
	}
	if err := a.c.executeItem(a.ctx, item); err != nil {
		return false
	}
	a.c.todos.SetStatus(item.ID, todo.StatusCompleted)
	return true
}
