// Package providers contains the vendor adapters that shape requests for
// and parse responses from each model API.
package providers

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

// Turn is one prior conversation turn passed to a provider.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Provider shapes requests for and parses responses from one vendor API.
// Adapters are stateless; transport lives in the llm client.
type Provider interface {
	// Name returns the canonical provider name.
	Name() string

	// DefaultModel returns the model used when the caller specifies none.
	DefaultModel() string

	// APIKeyEnvVar names the environment variable holding the key.
	APIKeyEnvVar() string

	// FullURL returns the request endpoint. Providers that carry the key
	// in the URL embed it here.
	FullURL(apiKey, model string) string

	// Headers returns the request headers including authentication.
	Headers(apiKey string) map[string]string

	// BuildPayload encodes a single-turn request.
	BuildPayload(system, user, model string) ([]byte, error)

	// BuildConversationPayload encodes a multi-turn request ending with
	// the latest user turn.
	BuildConversationPayload(system string, history []Turn, model string) ([]byte, error)

	// ParsePlan extracts a structured file-write operation from a raw
	// response body.
	ParsePlan(raw []byte) (ops.WriteFileCommand, error)

	// ParseChat extracts the assistant's text from a raw response body.
	ParseChat(raw []byte) (string, error)
}

// Canonical provider names.
const (
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
	NameGemini    = "gemini"
	NameMistral   = "mistral"
)

// CanonicalName maps the friendly names accepted on the command line onto
// canonical provider names. Unknown names pass through unchanged.
func CanonicalName(name string) string {
	switch name {
	case "claude":
		return NameAnthropic
	case "chatgpt":
		return NameOpenAI
	default:
		return name
	}
}

// New returns the adapter for a canonical or friendly provider name.
func New(name string) (Provider, error) {
	switch CanonicalName(name) {
	case NameAnthropic:
		return &Anthropic{}, nil
	case NameOpenAI:
		return &OpenAI{}, nil
	case NameGemini:
		return &Gemini{}, nil
	case NameMistral:
		return &Mistral{}, nil
	}
	return nil, magerr.Configuration("provider.new", fmt.Errorf("unknown provider '%s'", name))
}

// Detect picks the first provider whose API key is present in the
// environment. Detection order is fixed: anthropic, openai, gemini, mistral.
func Detect() (Provider, error) {
	candidates := []Provider{&Anthropic{}, &OpenAI{}, &Gemini{}, &Mistral{}}
	for _, p := range candidates {
		if os.Getenv(p.APIKeyEnvVar()) != "" {
			log.Debug().Str("provider", p.Name()).Msg("provider detected from environment")
			return p, nil
		}
	}
	return nil, magerr.Configuration("provider.detect",
		fmt.Errorf("no API key found; set one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, MISTRAL_API_KEY"))
}

// APIKey reads the provider's key from the environment.
func APIKey(p Provider) (string, error) {
	key := os.Getenv(p.APIKeyEnvVar())
	if key == "" {
		return "", magerr.Configuration("provider.api_key",
			fmt.Errorf("%s is not set", p.APIKeyEnvVar()))
	}
	return key, nil
}
