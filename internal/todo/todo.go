// Package todo holds the in-memory work queue the coordinator drains.
package todo

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	magerr "github.com/mag-gateway/mag/internal/errors"
)

// Status is the lifecycle state of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Item is one unit of queued work.
type Item struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// Store is a concurrency-safe ordered item list. Item ids increase
// monotonically for the lifetime of the store and are never reused,
// including after deletes.
type Store struct {
	mu     sync.Mutex
	items  []Item
	nextID int
}

// NewStore returns an empty store. The first item gets id 1.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// Add appends a pending item and returns its id. The title must be
// non-empty.
func (s *Store) Add(title, description string) (int, error) {
	if strings.TrimSpace(title) == "" {
		return 0, magerr.InvalidArgument("todo.add", "title must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	item := Item{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		Status:      StatusPending,
		Created:     now,
		Updated:     now,
	}
	s.nextID++
	s.items = append(s.items, item)
	log.Debug().Int("id", item.ID).Str("title", title).Msg("todo added")
	return item.ID, nil
}

// List returns items in insertion order. Completed items are excluded
// unless includeCompleted is set.
func (s *Store) List(includeCompleted bool) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if !includeCompleted && item.Status == StatusCompleted {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Get returns the item with the given id.
func (s *Store) Get(id int) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// Update rewrites title and/or description of an item. Empty arguments
// leave the corresponding field unchanged.
func (s *Store) Update(id int, title, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if title != "" {
			s.items[i].Title = title
		}
		if description != "" {
			s.items[i].Description = description
		}
		s.items[i].Updated = time.Now()
		return nil
	}
	return magerr.InvalidArgument("todo.update", "no such item")
}

// SetStatus moves an item to the given lifecycle state.
func (s *Store) SetStatus(id int, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].Status = status
		s.items[i].Updated = time.Now()
		log.Debug().Int("id", id).Str("status", string(status)).Msg("todo status changed")
		return nil
	}
	return magerr.InvalidArgument("todo.set_status", "no such item")
}

// Delete removes an item. Remaining ids are untouched.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		log.Debug().Int("id", id).Msg("todo deleted")
		return nil
	}
	return magerr.InvalidArgument("todo.delete", "no such item")
}

// Clear removes every item. Id numbering continues where it left off.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Len returns the total item count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// NextPending returns the oldest pending item.
func (s *Store) NextPending() (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Status == StatusPending {
			return item, true
		}
	}
	return Item{}, false
}

// ExecutionQueue returns all pending items in insertion order. Completed
// and in-progress items are excluded.
func (s *Store) ExecutionQueue() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Until returns the pending queue up to but excluding stopID. When stopID
// does not appear in the queue the whole queue is returned.
func (s *Store) Until(stopID int) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.pendingLocked()
	for i, item := range queue {
		if item.ID == stopID {
			return queue[:i]
		}
	}
	return queue
}

// Range returns the pending queue from the first occurrence of startID
// through the first occurrence of endID, both inclusive. An absent or
// inverted startID yields an empty result; an absent endID past startID
// runs the range to the end of the queue.
func (s *Store) Range(startID, endID int) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	if endID < startID {
		return nil
	}
	queue := s.pendingLocked()
	start := -1
	for i, item := range queue {
		if item.ID == startID {
			start = i
			break
		}
	}
	if start == -1 {
		return nil
	}
	for i := start; i < len(queue); i++ {
		if queue[i].ID == endID {
			return queue[start : i+1]
		}
	}
	return queue[start:]
}

func (s *Store) pendingLocked() []Item {
	var out []Item
	for _, item := range s.items {
		if item.Status == StatusPending {
			out = append(out, item)
		}
	}
	return out
}
