package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"moodmusic/musicgen"
)

// ValidationError is bad caller input: unknown emotion, no file, malformed body.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func invalidWrap(err error, msg string) error {
	return &ValidationError{Msg: msg, Err: err}
}

// ErrNotFound is the not-found outcome of an operation on one record.
var ErrNotFound = errors.New("not found")

// httpStatus maps an operation error to its response status:
// validation 400, not found 404, anything else 500.
func httpStatus(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// synthesisOutcome labels a synthesis result for metrics.
func synthesisOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, musicgen.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, musicgen.ErrUpstreamUnreachable):
		return "unreachable"
	case errors.Is(err, musicgen.ErrUpstreamStatus):
		return "status"
	case errors.Is(err, musicgen.ErrUpstreamInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
