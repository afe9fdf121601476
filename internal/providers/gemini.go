package providers

import (
	"encoding/json"
	"fmt"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini adapts requests for the Google Generative Language API.
type Gemini struct{}

func (g *Gemini) Name() string         { return NameGemini }
func (g *Gemini) DefaultModel() string { return "gemini-2.0-flash" }
func (g *Gemini) APIKeyEnvVar() string { return "GEMINI_API_KEY" }

// FullURL embeds the API key as a query parameter; Gemini does not use an
// authentication header.
func (g *Gemini) FullURL(apiKey, model string) string {
	if model == "" {
		model = g.DefaultModel()
	}
	return fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBase, model, apiKey)
}

func (g *Gemini) Headers(_ string) map[string]string {
	return map[string]string{"Content-Type": "application/json"}
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *geminiError      `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (g *Gemini) BuildPayload(system, user, model string) ([]byte, error) {
	return g.BuildConversationPayload(system, []Turn{{Role: "user", Content: user}}, model)
}

func (g *Gemini) BuildConversationPayload(system string, history []Turn, _ string) ([]byte, error) {
	req := geminiRequest{}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, turn := range history {
		role := turn.Role
		// Gemini names the assistant role "model".
		if role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}
	return json.Marshal(req)
}

func (g *Gemini) text(raw []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", magerr.Parse("provider.parse", g.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	if resp.Error != nil {
		return "", magerr.Transport("provider.parse", g.Name(),
			fmt.Errorf("API error (%d %s): %s", resp.Error.Code, resp.Error.Status, resp.Error.Message))
	}
	if len(resp.Candidates) == 0 {
		return "", magerr.Parse("provider.parse", g.Name(), fmt.Errorf("response carried no candidates"))
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", magerr.Parse("provider.parse", g.Name(), fmt.Errorf("response carried no text content"))
	}
	return text, nil
}

func (g *Gemini) ParsePlan(raw []byte) (ops.WriteFileCommand, error) {
	text, err := g.text(raw)
	if err != nil {
		return ops.WriteFileCommand{}, err
	}
	// Gemini is the most fence-happy of the adapters; planFromText strips
	// the wrapper before decoding.
	return planFromText(g.Name(), text)
}

func (g *Gemini) ParseChat(raw []byte) (string, error) {
	return g.text(raw)
}
