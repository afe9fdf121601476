// Package llm owns transport to the model APIs. Adapters shape the wire
// format; this client carries requests and hands raw bodies back to the
// adapter for parsing. A failed request abandons the turn; there is no
// retry.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mag-gateway/mag/internal/conversation"
	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
	"github.com/mag-gateway/mag/internal/policy"
	"github.com/mag-gateway/mag/internal/providers"
)

const defaultClientTimeout = 5 * time.Minute

// Client talks to one provider at a time. The provider can be swapped
// mid-session; the API key is re-read from the environment on swap.
type Client struct {
	provider providers.Provider
	apiKey   string
	model    string
	engine   *policy.Engine
	http     *http.Client

	// baseURL overrides the adapter endpoint when set. Used by tests.
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL routes requests to a fixed endpoint instead of the
// adapter's. Intended for tests and proxies.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout overrides the default 5 minute request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient builds a client for the named provider. An empty name
// auto-detects from the environment.
func NewClient(providerName string, engine *policy.Engine, opts ...Option) (*Client, error) {
	var p providers.Provider
	var err error
	if providerName == "" {
		p, err = providers.Detect()
	} else {
		p, err = providers.New(providerName)
	}
	if err != nil {
		return nil, err
	}

	key, err := providers.APIKey(p)
	if err != nil {
		return nil, err
	}

	c := &Client{
		provider: p,
		apiKey:   key,
		model:    p.DefaultModel(),
		engine:   engine,
		http:     &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	log.Debug().Str("provider", p.Name()).Str("model", c.model).Msg("model client ready")
	return c, nil
}

// Provider returns the active provider name.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Model returns the active model.
func (c *Client) Model() string {
	return c.model
}

// SetProvider switches to another provider, reading its key from the
// environment. An empty model selects the provider's default.
func (c *Client) SetProvider(name, model string) error {
	p, err := providers.New(name)
	if err != nil {
		return err
	}
	key, err := providers.APIKey(p)
	if err != nil {
		return err
	}
	c.provider = p
	c.apiKey = key
	if model == "" {
		model = p.DefaultModel()
	}
	c.model = model
	log.Info().Str("provider", p.Name()).Str("model", model).Msg("provider switched")
	return nil
}

// Plan asks the model for one structured file-write operation.
func (c *Client) Plan(ctx context.Context, userPrompt string) (ops.WriteFileCommand, error) {
	payload, err := c.provider.BuildPayload(planSystemPrompt(c.engine), userPrompt, c.model)
	if err != nil {
		return ops.WriteFileCommand{}, magerr.Transport("llm.plan", c.provider.Name(), err)
	}
	raw, err := c.post(ctx, payload)
	if err != nil {
		return ops.WriteFileCommand{}, err
	}
	return c.provider.ParsePlan(raw)
}

// Chat sends a single-turn chat request.
func (c *Client) Chat(ctx context.Context, userPrompt string) (string, error) {
	payload, err := c.provider.BuildPayload(chatSystemPrompt(c.engine), userPrompt, c.model)
	if err != nil {
		return "", magerr.Transport("llm.chat", c.provider.Name(), err)
	}
	raw, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.provider.ParseChat(raw)
}

// ChatWithHistory sends a multi-turn chat request ending with the latest
// user message.
func (c *Client) ChatWithHistory(ctx context.Context, history []conversation.Message) (string, error) {
	turns := make([]providers.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, providers.Turn{Role: m.Role, Content: m.Content})
	}
	payload, err := c.provider.BuildConversationPayload(chatSystemPrompt(c.engine), turns, c.model)
	if err != nil {
		return "", magerr.Transport("llm.chat_history", c.provider.Name(), err)
	}
	raw, err := c.post(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.provider.ParseChat(raw)
}

// post sends the payload and returns the raw body. Any failure, rate
// limits included, ends the turn immediately.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	url := c.baseURL
	if url == "" {
		url = c.provider.FullURL(c.apiKey, c.model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, magerr.Transport("llm.request", c.provider.Name(), err)
	}
	for k, v := range c.provider.Headers(c.apiKey) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, magerr.Transport("llm.request", c.provider.Name(),
			fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, magerr.Transport("llm.request", c.provider.Name(),
			fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, magerr.Transport("llm.request", c.provider.Name(),
			fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
