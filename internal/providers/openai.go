package providers

import (
	"encoding/json"
	"fmt"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI adapts requests for the OpenAI Chat Completions API.
type OpenAI struct{}

func (o *OpenAI) Name() string         { return NameOpenAI }
func (o *OpenAI) DefaultModel() string { return "gpt-4o" }
func (o *OpenAI) APIKeyEnvVar() string { return "OPENAI_API_KEY" }

func (o *OpenAI) FullURL(_, _ string) string { return openaiAPIURL }

func (o *OpenAI) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
}

// openaiRequest is the Chat Completions request body. The system prompt is
// the first message in the flat messages array.
type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (o *OpenAI) BuildPayload(system, user, model string) ([]byte, error) {
	return o.BuildConversationPayload(system, []Turn{{Role: "user", Content: user}}, model)
}

func (o *OpenAI) BuildConversationPayload(system string, history []Turn, model string) ([]byte, error) {
	if model == "" {
		model = o.DefaultModel()
	}
	messages := make([]openaiMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: system})
	}
	for _, turn := range history {
		messages = append(messages, openaiMessage{Role: turn.Role, Content: turn.Content})
	}
	return json.Marshal(openaiRequest{Model: model, Messages: messages})
}

func (o *OpenAI) text(raw []byte) (string, error) {
	var resp openaiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", magerr.Parse("provider.parse", o.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", magerr.Transport("provider.parse", o.Name(),
			fmt.Errorf("API error (%s): %s", resp.Error.Type, resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", magerr.Parse("provider.parse", o.Name(), fmt.Errorf("response carried no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) ParsePlan(raw []byte) (ops.WriteFileCommand, error) {
	text, err := o.text(raw)
	if err != nil {
		return ops.WriteFileCommand{}, err
	}
	return planFromText(o.Name(), text)
}

func (o *OpenAI) ParseChat(raw []byte) (string, error) {
	return o.text(raw)
}
