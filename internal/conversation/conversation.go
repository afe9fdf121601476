// Package conversation persists chat history across sessions as JSON
// documents under the state directory.
package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	magerr "github.com/mag-gateway/mag/internal/errors"
)

// Roles recorded on messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider,omitempty"`
}

// Session is the persisted conversation document.
type Session struct {
	SessionID    string    `json:"session_id"`
	Created      time.Time `json:"created"`
	LastActivity time.Time `json:"last_activity"`
	LastProvider string    `json:"last_provider,omitempty"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
}

// SessionInfo is one row of a session listing.
type SessionInfo struct {
	ID       string
	Modified time.Time
	Messages int
}

// Store manages the active session and its on-disk form. Empty sessions
// are never written.
type Store struct {
	dir     string
	session Session
	dirty   bool
}

// NewStore starts a fresh session persisted under dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, session: newSession()}
}

func newSession() Session {
	now := time.Now()
	return Session{
		SessionID:    fmt.Sprintf("session_%s", now.Format("20060102_150405")),
		Created:      now,
		LastActivity: now,
	}
}

// SessionID returns the active session identifier.
func (s *Store) SessionID() string {
	return s.session.SessionID
}

// Messages returns a copy of the active session's messages.
func (s *Store) Messages() []Message {
	out := make([]Message, len(s.session.Messages))
	copy(out, s.session.Messages)
	return out
}

// Len returns the number of messages in the active session.
func (s *Store) Len() int {
	return len(s.session.Messages)
}

// Append records a turn and persists the session.
func (s *Store) Append(role, content, provider string) error {
	now := time.Now()
	s.session.Messages = append(s.session.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
		Provider:  provider,
	})
	s.session.LastActivity = now
	if provider != "" {
		s.session.LastProvider = provider
	}
	s.session.MessageCount = len(s.session.Messages)
	s.dirty = true
	return s.save()
}

// Reset abandons the active session and starts a new one. The previous
// session's file, if any, stays on disk.
func (s *Store) Reset() string {
	s.session = newSession()
	s.dirty = false
	return s.session.SessionID
}

// Load replaces the active session with a persisted one.
func (s *Store) Load(id string) error {
	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return magerr.IO("conversation.load", fmt.Errorf("session %s: %w", id, err))
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return magerr.IO("conversation.load", fmt.Errorf("session %s: %w", id, err))
	}
	if sess.SessionID == "" {
		sess.SessionID = id
	}
	s.session = sess
	s.dirty = false
	log.Debug().Str("session", id).Int("messages", len(sess.Messages)).Msg("session loaded")
	return nil
}

// List returns persisted sessions, newest first by modification time.
func (s *Store) List() ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, magerr.IO("conversation.list", err)
	}

	var out []SessionInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count := 0
		if data, err := os.ReadFile(filepath.Join(s.dir, name)); err == nil {
			var sess Session
			if json.Unmarshal(data, &sess) == nil {
				count = len(sess.Messages)
			}
		}
		out = append(out, SessionInfo{
			ID:       strings.TrimSuffix(name, ".json"),
			Modified: info.ModTime(),
			Messages: count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}

// History renders recent turns for the model, most recent last, capped to
// a rough token budget of len(content)/4 per message.
func (s *Store) History(tokenBudget int) []Message {
	if tokenBudget <= 0 {
		return s.Messages()
	}
	msgs := s.session.Messages
	total := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		cost := len(msgs[i].Content) / 4
		if total+cost > tokenBudget && start < len(msgs) {
			break
		}
		total += cost
		start = i
	}
	out := make([]Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out
}

// Since returns the messages recorded after t, oldest first.
func (s *Store) Since(t time.Time) []Message {
	msgs := s.session.Messages
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].Timestamp.After(t) {
			break
		}
		start = i
	}
	out := make([]Message, len(msgs)-start)
	copy(out, msgs[start:])
	return out
}

// TrimToLastN keeps only the most recent n messages in the active session.
func (s *Store) TrimToLastN(n int) {
	if n < 0 || n >= len(s.session.Messages) {
		return
	}
	s.session.Messages = append([]Message(nil), s.session.Messages[len(s.session.Messages)-n:]...)
	s.session.MessageCount = len(s.session.Messages)
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// save writes the session document. Sessions with no messages are skipped.
func (s *Store) save() error {
	if len(s.session.Messages) == 0 {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return magerr.IO("conversation.save", err)
	}
	data, err := json.MarshalIndent(s.session, "", "  ")
	if err != nil {
		return magerr.IO("conversation.save", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path(s.session.SessionID), data, 0o600); err != nil {
		return magerr.IO("conversation.save", err)
	}
	return nil
}
