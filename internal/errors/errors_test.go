package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
	}{
		{"configuration", Configuration("policy.load", errors.New("bad json")), ErrConfiguration, KindConfiguration},
		{"policy denial", PolicyDenial("coordinator.plan", "path not allowed"), ErrPolicyDenied, KindPolicyDenial},
		{"parse", Parse("llm.plan", "anthropic", errors.New("not json")), ErrParse, KindParse},
		{"io", IO("file.apply", errors.New("disk full")), ErrIO, KindIO},
		{"transport", Transport("llm.request", "openai", errors.New("503")), ErrTransport, KindTransport},
		{"invalid argument", InvalidArgument("todo.update", "id 9 not found"), ErrInvalidArgument, KindInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorStringIncludesUnit(t *testing.T) {
	err := Transport("llm.request", "gemini", errors.New("connection refused"))
	assert.Equal(t, "llm.request failed on gemini: connection refused", err.Error())

	plain := IO("file.apply", errors.New("permission denied"))
	assert.Equal(t, "file.apply failed: permission denied", plain.Error())
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Configuration("policy.load", fmt.Errorf("while reading: %w", cause))
	assert.True(t, errors.Is(err, cause))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
