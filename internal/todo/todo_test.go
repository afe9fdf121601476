package todo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	magerr "github.com/mag-gateway/mag/internal/errors"
)

// mustAdd keeps the queue fixtures readable.
func mustAdd(t *testing.T, s *Store, title, description string) int {
	t.Helper()
	id, err := s.Add(title, description)
	require.NoError(t, err)
	return id
}

func TestAddAssignsIncreasingIDs(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 1, mustAdd(t, s, "first", ""))
	assert.Equal(t, 2, mustAdd(t, s, "second", ""))
	assert.Equal(t, 3, mustAdd(t, s, "third", ""))
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	s := NewStore()
	_, err := s.Add("", "desc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, magerr.ErrInvalidArgument))

	_, err = s.Add("   ", "")
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestIDsNotReusedAfterDelete(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "first", "")
	mustAdd(t, s, "second", "")
	require.NoError(t, s.Delete(2))
	assert.Equal(t, 3, mustAdd(t, s, "third", ""))
}

func TestGetAndUpdate(t *testing.T) {
	s := NewStore()
	id := mustAdd(t, s, "title", "desc")

	item, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "title", item.Title)
	assert.Equal(t, StatusPending, item.Status)

	require.NoError(t, s.Update(id, "new title", ""))
	item, _ = s.Get(id)
	assert.Equal(t, "new title", item.Title)
	assert.Equal(t, "desc", item.Description)

	require.NoError(t, s.Update(id, "", "new desc"))
	item, _ = s.Get(id)
	assert.Equal(t, "new desc", item.Description)

	assert.Error(t, s.Update(99, "x", "y"))
}

func TestListFiltersCompleted(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "a", "")
	id := mustAdd(t, s, "b", "")
	require.NoError(t, s.SetStatus(id, StatusCompleted))

	assert.Len(t, s.List(true), 2)

	active := s.List(false)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].Title)
}

func TestSetStatus(t *testing.T) {
	s := NewStore()
	id := mustAdd(t, s, "work", "")
	require.NoError(t, s.SetStatus(id, StatusInProgress))

	item, _ := s.Get(id)
	assert.Equal(t, StatusInProgress, item.Status)

	assert.Error(t, s.SetStatus(99, StatusCompleted))
}

func TestDeleteUnknown(t *testing.T) {
	s := NewStore()
	assert.Error(t, s.Delete(1))
}

func TestClearKeepsNumbering(t *testing.T) {
	s := NewStore()
	mustAdd(t, s, "a", "")
	mustAdd(t, s, "b", "")
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 3, mustAdd(t, s, "c", ""))
}

func newQueueStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	mustAdd(t, s, "one", "")   // 1
	mustAdd(t, s, "two", "")   // 2
	mustAdd(t, s, "three", "") // 3
	mustAdd(t, s, "four", "")  // 4
	return s
}

func TestExecutionQueueExcludesNonPending(t *testing.T) {
	s := newQueueStore(t)
	require.NoError(t, s.SetStatus(2, StatusCompleted))
	require.NoError(t, s.SetStatus(3, StatusInProgress))

	queue := s.ExecutionQueue()
	require.Len(t, queue, 2)
	assert.Equal(t, 1, queue[0].ID)
	assert.Equal(t, 4, queue[1].ID)
}

func TestNextPending(t *testing.T) {
	s := newQueueStore(t)
	require.NoError(t, s.SetStatus(1, StatusCompleted))

	item, ok := s.NextPending()
	require.True(t, ok)
	assert.Equal(t, 2, item.ID)

	s.Clear()
	_, ok = s.NextPending()
	assert.False(t, ok)
}

func TestUntilStopsBeforeID(t *testing.T) {
	s := newQueueStore(t)

	queue := s.Until(3)
	require.Len(t, queue, 2)
	assert.Equal(t, 1, queue[0].ID)
	assert.Equal(t, 2, queue[1].ID)
}

func TestUntilUnknownIDReturnsFullQueue(t *testing.T) {
	s := newQueueStore(t)
	assert.Len(t, s.Until(99), 4)
}

func TestUntilSkipsCompleted(t *testing.T) {
	s := newQueueStore(t)
	require.NoError(t, s.SetStatus(1, StatusCompleted))

	queue := s.Until(4)
	require.Len(t, queue, 2)
	assert.Equal(t, 2, queue[0].ID)
	assert.Equal(t, 3, queue[1].ID)
}

func TestRangeInclusive(t *testing.T) {
	s := newQueueStore(t)

	queue := s.Range(2, 3)
	require.Len(t, queue, 2)
	assert.Equal(t, 2, queue[0].ID)
	assert.Equal(t, 3, queue[1].ID)
}

func TestRangeUnknownStartIsEmpty(t *testing.T) {
	s := newQueueStore(t)
	assert.Empty(t, s.Range(99, 101))
}

func TestRangeInvertedIsEmpty(t *testing.T) {
	s := newQueueStore(t)
	assert.Empty(t, s.Range(3, 1))
}

func TestRangeUnknownEndRunsToQueueEnd(t *testing.T) {
	s := newQueueStore(t)

	queue := s.Range(2, 99)
	require.Len(t, queue, 3)
	assert.Equal(t, 4, queue[2].ID)
}

func TestRangeSingleItem(t *testing.T) {
	s := newQueueStore(t)

	queue := s.Range(3, 3)
	require.Len(t, queue, 1)
	assert.Equal(t, 3, queue[0].ID)
}
