package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mag-gateway/mag/internal/conversation"
	"github.com/mag-gateway/mag/internal/policy"
)

func testEngine(t *testing.T) *policy.Engine {
	t.Helper()
	engine, err := policy.NewEngineAt(policy.Default(), t.TempDir())
	require.NoError(t, err)
	return engine
}

func anthropicBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	})
	return string(b)
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	c, err := NewClient("anthropic", testEngine(t), WithBaseURL(serverURL), WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestPlanRoundTrip(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(anthropicBody(`{"command":"write","path":"src/hello.py","content":"print('hi')\n"}`)))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	cmd, err := c.Plan(context.Background(), "create hello.py")
	require.NoError(t, err)
	assert.Equal(t, "src/hello.py", cmd.Path)

	// Plan prompt rides in the top-level system field and names the
	// allowed directories.
	system := captured["system"].(string)
	assert.Contains(t, system, "JSON object")
	assert.Contains(t, system, "src/")
}

func TestChatUsesChatPrompt(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(anthropicBody("sure, added!")))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	reply, err := c.Chat(context.Background(), "add a todo")
	require.NoError(t, err)
	assert.Equal(t, "sure, added!", reply)

	system := captured["system"].(string)
	assert.Contains(t, system, "CHAT MODE")
	assert.Contains(t, system, "add_todo")
	assert.Contains(t, system, "request_user_approval")
}

func TestChatWithHistoryCarriesTurns(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(anthropicBody("reply")))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.ChatWithHistory(context.Background(), []conversation.Message{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
		{Role: "user", Content: "three"},
	})
	require.NoError(t, err)

	msgs := captured["messages"].([]any)
	assert.Len(t, msgs, 3)
}

func TestErrorStatusFailsWithoutRetry(t *testing.T) {
	// A failed request abandons the turn; rate limits and server errors
	// are not retried.
	for _, status := range []int{
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(status)
				w.Write([]byte(`{"type":"error"}`))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)
			_, err := c.Chat(context.Background(), "hi")
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("(%d)", status))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestSetProviderSwitchesAdapter(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("GEMINI_API_KEY", "g")

	c, err := NewClient("anthropic", testEngine(t))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Provider())

	require.NoError(t, c.SetProvider("gemini", ""))
	assert.Equal(t, "gemini", c.Provider())
	assert.Equal(t, "gemini-2.0-flash", c.Model())
}

func TestSetProviderMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("MISTRAL_API_KEY", "")

	c, err := NewClient("anthropic", testEngine(t))
	require.NoError(t, err)

	err = c.SetProvider("mistral", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISTRAL_API_KEY")
	// Previous provider stays active.
	assert.Equal(t, "anthropic", c.Provider())
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient("llama", testEngine(t))
	require.Error(t, err)
}

func TestPlanPromptDisabledPolicyOmitsConstraints(t *testing.T) {
	doc := policy.Default()
	tp := doc.Tools[policy.ToolFile]
	tp.Create.AllowedDirectories = nil
	doc.Tools[policy.ToolFile] = tp
	engine, err := policy.NewEngineAt(doc, t.TempDir())
	require.NoError(t, err)

	prompt := planSystemPrompt(engine)
	assert.False(t, strings.Contains(prompt, "POLICY CONSTRAINTS"))
}
