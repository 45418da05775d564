package musicgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Synthesizer is anything that turns a prompt into audio within a timeout.
// *Client and *Limited implement it.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, timeout time.Duration) ([]byte, error)
}

// Limited bounds the number of in-flight synthesis calls.
//
// Each call runs on its caller's goroutine; a caller that finds all slots
// taken waits until one frees up or its ctx is done. Unrelated requests
// never wait behind a synthesis call.
type Limited struct {
	next Synthesizer
	sem  *semaphore.Weighted
}

// NewLimited allows at most n concurrent calls to next. n < 1 means 1.
func NewLimited(next Synthesizer, n int) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{
		next: next,
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

// Synthesize waits for a free slot, then calls the wrapped Synthesizer.
// timeout covers the wait and the call together: the wrapped Synthesizer
// gets only what is left of it. Running out of time while waiting is
// ErrUpstreamTimeout.
func (l *Limited) Synthesize(ctx context.Context, prompt string, timeout time.Duration) ([]byte, error) {
	timeout = clampTimeout(timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for a synthesis slot: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("waiting for a synthesis slot: %w", err)
	}
	defer l.sem.Release(1)

	remaining := timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining = max(time.Until(deadline), time.Nanosecond)
	}
	return l.next.Synthesize(ctx, prompt, remaining)
}
