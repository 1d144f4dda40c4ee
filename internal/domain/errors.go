package domain

import (
	"errors"
	"fmt"
)

// Kind classifies errors that reach the caller.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindQuotaExceeded
	KindProvider
	KindConfiguration
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindProvider:
		return "provider"
	case KindConfiguration:
		return "configuration"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MaxDiagnosticLength bounds upstream bodies copied into error messages.
const MaxDiagnosticLength = 200

// Error is a classified pipeline error.
type Error struct {
	Kind      Kind
	Message   string
	Remaining int
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError reports a malformed caller payload.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// QuotaExceeded reports a denied admission.
func QuotaExceeded() *Error {
	return &Error{Kind: KindQuotaExceeded, Message: "daily translation quota exceeded", Remaining: 0}
}

// ProviderError reports a failed upstream translation call. The diagnostic
// body is truncated to MaxDiagnosticLength characters.
func ProviderError(message, body string, err error) *Error {
	if body != "" {
		message = message + ": " + Truncate(body, MaxDiagnosticLength)
	}
	return &Error{Kind: KindProvider, Message: message, Err: err}
}

// ConfigurationError reports a missing credential or setting.
func ConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// UnavailableError reports that a required dependency (the quota store) is down.
func UnavailableError(message string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}

// KindOf returns the kind of err, or 0 when err is not a classified error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
