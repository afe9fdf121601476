package providers

import (
	"encoding/json"
	"fmt"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
	anthropicMaxTokens  = 4096
)

// Anthropic adapts requests for the Anthropic Messages API.
type Anthropic struct{}

func (a *Anthropic) Name() string         { return NameAnthropic }
func (a *Anthropic) DefaultModel() string { return "claude-sonnet-4-20250514" }
func (a *Anthropic) APIKeyEnvVar() string { return "ANTHROPIC_API_KEY" }

func (a *Anthropic) FullURL(_, _ string) string { return anthropicAPIURL }

func (a *Anthropic) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
}

// anthropicRequest is the request body for the Messages API. The system
// prompt rides in its own top-level field, not the messages array.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason,omitempty"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (a *Anthropic) BuildPayload(system, user, model string) ([]byte, error) {
	return a.BuildConversationPayload(system, []Turn{{Role: "user", Content: user}}, model)
}

func (a *Anthropic) BuildConversationPayload(system string, history []Turn, model string) ([]byte, error) {
	if model == "" {
		model = a.DefaultModel()
	}
	messages := make([]anthropicMessage, 0, len(history))
	for _, turn := range history {
		messages = append(messages, anthropicMessage{
			Role:    turn.Role,
			Content: []anthropicContent{{Type: "text", Text: turn.Content}},
		})
	}
	return json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		System:    system,
		Messages:  messages,
	})
}

func (a *Anthropic) text(raw []byte) (string, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", magerr.Parse("provider.parse", a.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", magerr.Transport("provider.parse", a.Name(),
			fmt.Errorf("API error (%s): %s", resp.Error.Type, resp.Error.Message))
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", magerr.Parse("provider.parse", a.Name(), fmt.Errorf("response carried no text content"))
	}
	return text, nil
}

func (a *Anthropic) ParsePlan(raw []byte) (ops.WriteFileCommand, error) {
	text, err := a.text(raw)
	if err != nil {
		return ops.WriteFileCommand{}, err
	}
	return planFromText(a.Name(), text)
}

func (a *Anthropic) ParseChat(raw []byte) (string, error) {
	return a.text(raw)
}
