package musicgen

import (
	"errors"
	"fmt"
)

// Failure classes of a synthesis call. Callers report a different
// message for each, so they are never collapsed into one error.
var (
	ErrUpstreamTimeout         = errors.New("synthesis service timed out")
	ErrUpstreamUnreachable     = errors.New("synthesis service unreachable")
	ErrUpstreamStatus          = errors.New("synthesis service returned an error status")
	ErrUpstreamInvalidResponse = errors.New("synthesis service returned an invalid response")
)

// Kinds of ErrUpstreamInvalidResponse.
var (
	ErrMalformedBody  = fmt.Errorf("%w: body is not valid json", ErrUpstreamInvalidResponse)
	ErrMissingAudio   = fmt.Errorf("%w: no audio in response", ErrUpstreamInvalidResponse)
	ErrMalformedAudio = fmt.Errorf("%w: audio is not valid base64", ErrUpstreamInvalidResponse)
)

var ErrPromptEmpty = errors.New("prompt cannot be empty")

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: status %d", ErrUpstreamStatus, e.StatusCode)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrUpstreamStatus, e.StatusCode, e.Detail)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}
