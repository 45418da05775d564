package voiceemotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	transcriptionsPath = "/v1/audio/transcriptions"

	formFieldFile     = "file"
	formFieldModel    = "model"
	formFieldLanguage = "language"

	defaultTranscribeTimeout = 60 * time.Second
	defaultWhisperModel      = "whisper-1"
)

// WhisperClient talks to an OpenAI-compatible transcription endpoint
// (OpenAI itself, faster-whisper-server, whisper.cpp server...).
type WhisperClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	language   string
}

type WhisperOption func(*WhisperClient)

// WithWhisperHTTPClient replaces the default 60s-timeout client.
func WithWhisperHTTPClient(c *http.Client) WhisperOption {
	return func(w *WhisperClient) { w.httpClient = c }
}

// WithAPIKey sends "Authorization: Bearer key".
func WithAPIKey(key string) WhisperOption {
	return func(w *WhisperClient) { w.apiKey = key }
}

func WithModel(model string) WhisperOption {
	return func(w *WhisperClient) {
		if model != "" {
			w.model = model
		}
	}
}

// WithLanguage hints the spoken language (ISO-639-1, e.g. "en").
func WithLanguage(lang string) WhisperOption {
	return func(w *WhisperClient) { w.language = lang }
}

func NewWhisperClient(baseURL string, opts ...WhisperOption) *WhisperClient {
	w := &WhisperClient{
		httpClient: &http.Client{Timeout: defaultTranscribeTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      defaultWhisperModel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe uploads the audio file at audioPath and returns the text.
func (w *WhisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldFile, filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.WriteField(formFieldModel, w.model); err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}
	if w.language != "" {
		if err := writer.WriteField(formFieldLanguage, w.language); err != nil {
			return "", fmt.Errorf("failed to write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+transcriptionsPath, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.WithError(err).Warn("Transcribe: failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("transcriber error: %s", tr.Error.Message)
	}

	return tr.Text, nil
}
