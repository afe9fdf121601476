// Package errors defines the structured error taxonomy shared by every
// component boundary. Lower-level failures are translated into one of the
// kinds below before they cross a package boundary.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure for recovery decisions.
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindPolicyDenial    Kind = "policy_denial"
	KindParse           Kind = "parse"
	KindIO              Kind = "io"
	KindTransport       Kind = "transport"
	KindInvalidArgument Kind = "invalid_argument"
)

// Sentinel errors for errors.Is checks at call sites.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrPolicyDenied    = errors.New("policy denied")
	ErrParse           = errors.New("parse error")
	ErrIO              = errors.New("io failure")
	ErrTransport       = errors.New("transport error")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is a structured failure with the operation that produced it.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "policy.load", "provider.chat"
	Unit string // component or adapter name where the failure originated
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Unit, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps kinds onto the package sentinels so callers can use errors.Is
// without knowing the concrete type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrPolicyDenied:
		return e.Kind == KindPolicyDenial
	case ErrParse:
		return e.Kind == KindParse
	case ErrIO:
		return e.Kind == KindIO
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrInvalidArgument:
		return e.Kind == KindInvalidArgument
	}
	return errors.Is(e.Err, target)
}

// New creates a structured error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithUnit attaches the originating component or adapter name.
func (e *Error) WithUnit(unit string) *Error {
	e.Unit = unit
	return e
}

// Configuration wraps a configuration failure.
func Configuration(op string, err error) error {
	return New(KindConfiguration, op, err)
}

// PolicyDenial wraps a policy refusal with its reason.
func PolicyDenial(op, reason string) error {
	return New(KindPolicyDenial, op, errors.New(reason))
}

// Parse wraps a payload that does not satisfy a wire contract. The unit is
// the adapter that produced it.
func Parse(op, adapter string, err error) error {
	return New(KindParse, op, err).WithUnit(adapter)
}

// IO wraps a filesystem or process execution failure.
func IO(op string, err error) error {
	return New(KindIO, op, err)
}

// Transport wraps a failed remote call. The unit is the adapter name.
func Transport(op, adapter string, err error) error {
	return New(KindTransport, op, err).WithUnit(adapter)
}

// InvalidArgument reports an API contract violation to the caller.
func InvalidArgument(op, msg string) error {
	return New(KindInvalidArgument, op, errors.New(msg))
}

// KindOf extracts the kind from err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
