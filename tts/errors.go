package tts

import (
	"errors"
	"fmt"
)

// ErrEmptyText is returned when synthesis is requested for empty text.
var ErrEmptyText = errors.New("tts: empty text")

// ErrRateLimited is returned when the provider throttles us.
var ErrRateLimited = errors.New("tts: rate limited")

// SynthesisError wraps a provider failure with enough detail to decide
// whether falling back to <Say> or retrying makes sense.
type SynthesisError struct {
	Provider  string
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *SynthesisError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tts: %s [%s]: %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("tts: %s: %s", e.Provider, e.Message)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// NewSynthesisError builds a SynthesisError.
func NewSynthesisError(provider, code, message string, err error, retryable bool) *SynthesisError {
	return &SynthesisError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Err:       err,
	}
}
