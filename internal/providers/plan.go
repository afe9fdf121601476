package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/ops"
)

// planFromText decodes the structured plan the model was asked to emit.
// Models routinely wrap JSON in markdown fences, so those are stripped
// before decoding.
func planFromText(adapter, text string) (ops.WriteFileCommand, error) {
	cleaned := StripCodeFences(text)

	var cmd ops.WriteFileCommand
	if err := json.Unmarshal([]byte(cleaned), &cmd); err != nil {
		return ops.WriteFileCommand{}, magerr.Parse("provider.parse_plan", adapter,
			fmt.Errorf("response is not a plan object: %w", err))
	}
	if cmd.Command != "write" {
		return ops.WriteFileCommand{}, magerr.Parse("provider.parse_plan", adapter,
			fmt.Errorf("unsupported plan command %q", cmd.Command))
	}
	if cmd.Path == "" {
		return ops.WriteFileCommand{}, magerr.Parse("provider.parse_plan", adapter,
			fmt.Errorf("plan is missing 'path'"))
	}
	return cmd, nil
}

// StripCodeFences removes a single surrounding markdown code fence, with or
// without a language tag, leaving other content untouched.
func StripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		first := strings.TrimSpace(trimmed[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
