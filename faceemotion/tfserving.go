package faceemotion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPredictTimeout = 30 * time.Second

// TFServingModel is a Model served by TensorFlow Serving's REST API:
//
//	POST {BaseURL}/v1/models/{Name}:predict
//	{"instances": [ 64x64x1 tensor ]} -> {"predictions": [[p0, ..., p6]]}
type TFServingModel struct {
	httpClient *http.Client
	baseURL    string
	name       string
}

// NewTFServingModel returns a model client. timeout <= 0 means 30s.
func NewTFServingModel(baseURL, name string, timeout time.Duration) *TFServingModel {
	if timeout <= 0 {
		timeout = defaultPredictTimeout
	}
	return &TFServingModel{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       name,
	}
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

// Predict sends input as a single (64, 64, 1) instance.
func (m *TFServingModel) Predict(ctx context.Context, input []float32) ([]float64, error) {
	if len(input) != InputSize*InputSize {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), InputSize*InputSize)
	}

	payload, err := json.Marshal(predictRequest{Instances: [][][][]float32{toTensor(input)}})
	if err != nil {
		return nil, fmt.Errorf("Predict: marshal failed: %w", err)
	}

	u := m.baseURL + "/v1/models/" + url.PathEscape(m.name) + ":predict"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("Predict: NewRequest failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Predict: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("Predict: read body failed: %w", err)
	}

	var pr predictResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("Predict: decode failed (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Predict: status %d: %s", resp.StatusCode, pr.Error)
	}
	if len(pr.Predictions) != 1 {
		return nil, fmt.Errorf("Predict: got %d predictions, want 1", len(pr.Predictions))
	}

	return pr.Predictions[0], nil
}

// toTensor reshapes a flat row-major image into [H][W][1].
func toTensor(input []float32) [][][]float32 {
	t := make([][][]float32, InputSize)
	for y := range t {
		t[y] = make([][]float32, InputSize)
		for x := range t[y] {
			t[y][x] = []float32{input[y*InputSize+x]}
		}
	}
	return t
}
