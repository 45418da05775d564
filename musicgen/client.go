// Package musicgen implements an API client for the music synthesis service.
//
// The service takes a text prompt and answers with base64 encoded WAV audio.
// It is slow and occasionally returns garbage, so every call is bounded by
// a caller supplied timeout and its failures are classified (see errors.go).
package musicgen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cdfmlr/crud/log"
)

var logger = log.ZoneLogger("moodmusic/musicgen")

const (
	apiGenerate = "generate"
	apiHealth   = "health"

	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
)

// Timeout budgets. Regeneration asks for heavier settings, so it gets more
// time than a first generation. The offline path may wait up to MaxTimeout.
const (
	GenerateTimeout   = 60 * time.Second
	RegenerateTimeout = 120 * time.Second
	MaxTimeout        = 600 * time.Second

	defaultMaxNewTokens = 256
	maxErrorDetail      = 512
)

// Request is the json body POSTed to {BaseURL}/generate.
type Request struct {
	Prompt       string `json:"prompt"`
	MaxNewTokens int    `json:"max_new_tokens,omitempty"`
}

// Response is the json body of a successful generation.
// AudioBase64 is a pointer to tell a missing field from an empty one.
type Response struct {
	AudioBase64  *string `json:"audio_base64"`
	SamplingRate int     `json:"sampling_rate,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Client talks to the synthesis service. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxNewTokens int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMaxNewTokens sets the token budget sent with every request.
func WithMaxNewTokens(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxNewTokens = n
		}
	}
}

// NewClient returns a Client for the service at baseURL
// (e.g. "http://localhost:8000").
//
// The http.Client has no timeout of its own, each call gets a deadline
// through its context instead.
func NewClient(baseURL string, options ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{},
		baseURL:      strings.TrimRight(baseURL, "/"),
		maxNewTokens: defaultMaxNewTokens,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Synthesize sends prompt to the service and returns the decoded audio bytes.
//
// timeout is a hard upper bound enforced here, not by the service. It is capped
// at MaxTimeout; zero or negative means GenerateTimeout. On timeout the call is
// abandoned and ErrUpstreamTimeout returned, there is no retry.
// Cancelling ctx abandons the call as well.
func (c *Client) Synthesize(ctx context.Context, prompt string, timeout time.Duration) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptEmpty
	}

	timeout = clampTimeout(timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newGenerateRequest(ctx, prompt)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}

	logger.WithField("status", resp.StatusCode).
		WithField("elapsed", time.Since(start).String()).
		WithField("bytes", len(body)).
		Debug("Synthesize: response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, body)
	}

	return decodeAudio(body)
}

// Ping checks that the service answers on {BaseURL}/health.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.JoinPath(c.baseURL, apiHealth)
	if err != nil {
		return fmt.Errorf("Ping: bad base url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("Ping: NewRequest failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// POST {baseURL}/generate with {"prompt": ...}
func (c *Client) newGenerateRequest(ctx context.Context, prompt string) (*http.Request, error) {
	u, err := url.JoinPath(c.baseURL, apiGenerate)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url %q: %v", ErrUpstreamUnreachable, c.baseURL, err)
	}

	payload, err := json.Marshal(Request{Prompt: prompt, MaxNewTokens: c.maxNewTokens})
	if err != nil {
		return nil, fmt.Errorf("newGenerateRequest: marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("newGenerateRequest: NewRequest failed: %w", err)
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, contentTypeJSON)

	return req, nil
}

func clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return GenerateTimeout
	}
	return min(timeout, MaxTimeout)
}

// classifyTransportError turns an error from Do or from reading the body into
// ErrUpstreamTimeout or ErrUpstreamUnreachable. A cancelled ctx is passed
// through as context.Canceled.
func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("synthesis abandoned: %w", context.Canceled)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
}

// newStatusError keeps whatever detail the service sent, json or not.
func newStatusError(code int, body []byte) *StatusError {
	var er errorResponse
	detail := ""
	if json.Unmarshal(body, &er) == nil {
		detail = er.Error
		if detail == "" {
			detail = er.Detail
		}
	}
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail] + "..."
	}
	return &StatusError{StatusCode: code, Detail: detail}
}

func decodeAudio(body []byte) ([]byte, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if r.AudioBase64 == nil || *r.AudioBase64 == "" {
		return nil, ErrMissingAudio
	}

	audio, err := base64.StdEncoding.DecodeString(*r.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAudio, err)
	}
	if len(audio) == 0 {
		return nil, ErrMissingAudio
	}

	return audio, nil
}
