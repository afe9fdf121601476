package providers

import (
	"encoding/json"
	"fmt"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

const mistralAPIURL = "https://api.mistral.ai/v1/chat/completions"

// Mistral adapts requests for the Mistral chat API. The wire format is
// OpenAI-shaped; only the endpoint and key differ.
type Mistral struct{}

func (m *Mistral) Name() string         { return NameMistral }
func (m *Mistral) DefaultModel() string { return "mistral-large-latest" }
func (m *Mistral) APIKeyEnvVar() string { return "MISTRAL_API_KEY" }

func (m *Mistral) FullURL(_, _ string) string { return mistralAPIURL }

func (m *Mistral) Headers(apiKey string) map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + apiKey,
	}
}

func (m *Mistral) BuildPayload(system, user, model string) ([]byte, error) {
	return m.BuildConversationPayload(system, []Turn{{Role: "user", Content: user}}, model)
}

func (m *Mistral) BuildConversationPayload(system string, history []Turn, model string) ([]byte, error) {
	if model == "" {
		model = m.DefaultModel()
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

func (m *Mistral) text(raw []byte) (string, error) {
	var resp openaiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", magerr.Parse("provider.parse", m.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", magerr.Transport("provider.parse", m.Name(),
			fmt.Errorf("API error (%s): %s", resp.Error.Type, resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", magerr.Parse("provider.parse", m.Name(), fmt.Errorf("response carried no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *Mistral) ParsePlan(raw []byte) (ops.WriteFileCommand, error) {
	text, err := m.text(raw)
	if err != nil {
		return ops.WriteFileCommand{}, err
	}
	return planFromText(m.Name(), text)
}

func (m *Mistral) ParseChat(raw []byte) (string, error) {
	return m.text(raw)
}
