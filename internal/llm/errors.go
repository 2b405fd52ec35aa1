package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredentials is raised before any network call; never retried.
	ErrMissingCredentials = errors.New("llm: missing completion service credentials")
	// ErrMalformedResponse matches every *MalformedResponseError.
	ErrMalformedResponse = errors.New("llm: malformed completion response")
	ErrInvalidInput      = errors.New("llm: invalid input")
	ErrEmptyInput        = fmt.Errorf("%w: empty input", ErrInvalidInput)
)

// UpstreamError is a non-2xx answer from the completion service. Body is kept for logs only.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm: upstream status %d", e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// MalformedResponseError is a response that is not a single JSON object of the expected shape.
type MalformedResponseError struct {
	Op     string
	Reason string
	Raw    []byte
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := "llm: malformed " + e.Op + " response: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func malformed(op, reason string, raw []byte, err error) error {
	return &MalformedResponseError{Op: op, Reason: reason, Raw: raw, Err: err}
}
