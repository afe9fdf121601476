package conversation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDFormat(t *testing.T) {
	s := NewStore(t.TempDir())
	id := s.SessionID()
	assert.True(t, strings.HasPrefix(id, "session_"))
	_, err := time.Parse("20060102_150405", strings.TrimPrefix(id, "session_"))
	assert.NoError(t, err)
}

func TestEmptySessionNeverPersisted(t *testing.T) {
	dir := t.TempDir()
	NewStore(dir)

	entries, err := os.ReadDir(dir)
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestAppendPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.Append(RoleUser, "hello", ""))
	require.NoError(t, s.Append(RoleAssistant, "hi there", "anthropic"))

	id := s.SessionID()
	_, err := os.Stat(filepath.Join(dir, id+".json"))
	require.NoError(t, err)

	fresh := NewStore(dir)
	require.NoError(t, fresh.Load(id))
	msgs := fresh.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "anthropic", msgs[1].Provider)
}

func TestLoadUnknownSession(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Error(t, s.Load("session_19990101_000000"))
}

func TestResetStartsFreshSession(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.Append(RoleUser, "msg", ""))
	old := s.SessionID()

	fresh := s.Reset()
	assert.Equal(t, 0, s.Len())

	// Old session file survives.
	_, err := os.Stat(filepath.Join(dir, old+".json"))
	assert.NoError(t, err)
	_ = fresh
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()

	write := func(id string, mtime time.Time) {
		body := `{"session_id":"` + id + `","messages":[{"role":"user","content":"x"}]}`
		path := filepath.Join(dir, id+".json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	now := time.Now()
	write("session_20250101_000000", now.Add(-2*time.Hour))
	write("session_20250201_000000", now.Add(-1*time.Hour))
	write("session_20250301_000000", now)

	s := NewStore(dir)
	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "session_20250301_000000", list[0].ID)
	assert.Equal(t, "session_20250101_000000", list[2].ID)
	assert.Equal(t, 1, list[0].Messages)
}

func TestListEmptyDirectory(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing"))
	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistoryKeepsMostRecentWithinBudget(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(RoleUser, strings.Repeat("a", 400), ""))      // ~100 tokens
	require.NoError(t, s.Append(RoleAssistant, strings.Repeat("b", 400), "")) // ~100 tokens
	require.NoError(t, s.Append(RoleUser, strings.Repeat("c", 400), ""))      // ~100 tokens

	history := s.History(250)
	require.Len(t, history, 2)
	assert.Equal(t, RoleAssistant, history[0].Role)
	assert.Equal(t, RoleUser, history[1].Role)
}

func TestHistoryAlwaysIncludesLatestMessage(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(RoleUser, strings.Repeat("x", 4000), ""))

	history := s.History(10)
	require.Len(t, history, 1)
}

func TestSinceReturnsTail(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(RoleUser, "first", ""))
	cutoff := s.Messages()[0].Timestamp
	require.NoError(t, s.Append(RoleAssistant, "second", ""))
	require.NoError(t, s.Append(RoleUser, "third", ""))

	tail := s.Since(cutoff)
	require.Len(t, tail, 2)
	assert.Equal(t, "second", tail[0].Content)
	assert.Equal(t, "third", tail[1].Content)

	assert.Empty(t, s.Since(time.Now()))
}

func TestTrimToLastN(t *testing.T) {
	s := NewStore(t.TempDir())
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(RoleUser, "msg", ""))
	}
	s.TrimToLastN(2)
	assert.Equal(t, 2, s.Len())

	s.TrimToLastN(10)
	assert.Equal(t, 2, s.Len())
}
