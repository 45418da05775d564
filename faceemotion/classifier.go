// Package faceemotion classifies the emotion on a face image.
//
// Preprocessing is fixed and deterministic (see Preprocess); the trained
// model is an external collaborator behind the Model interface.
package faceemotion

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cdfmlr/crud/log"

	"moodmusic/model"
)

var logger = log.ZoneLogger("moodmusic/faceemotion")

var (
	ErrMissingInput = errors.New("no image supplied")
	ErrDecode       = errors.New("invalid image")
	ErrModel        = errors.New("emotion model failed")
)

// Model is the trained image classifier. Predict takes one preprocessed
// sample (see Preprocess) and returns one probability per label, in the
// order of model.Emotions.
type Model interface {
	Predict(ctx context.Context, input []float32) ([]float64, error)
}

// Classifier maps face images to emotion labels.
type Classifier struct {
	model Model
}

func NewClassifier(m Model) *Classifier {
	return &Classifier{model: m}
}

// Classify preprocesses raw, runs the model once and returns the most
// probable label with its probability as confidence.
func (c *Classifier) Classify(ctx context.Context, raw []byte) (model.ClassificationResult, error) {
	if len(raw) == 0 {
		return model.ClassificationResult{}, ErrMissingInput
	}

	input, err := Preprocess(raw)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	probs, err := c.model.Predict(ctx, input)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("%w: %v", ErrModel, err)
	}

	result, err := pick(probs)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	logger.WithField("emotion", result.Label).
		WithField("confidence", result.Confidence).
		Debug("Classify: done")

	return result, nil
}

// pick is argmax over probs; ties go to the lowest index.
// A non-finite score is a model failure.
func pick(probs []float64) (model.ClassificationResult, error) {
	if len(probs) != len(model.Emotions) {
		return model.ClassificationResult{}, fmt.Errorf("%w: got %d scores, want %d",
			ErrModel, len(probs), len(model.Emotions))
	}

	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return model.ClassificationResult{}, fmt.Errorf("%w: score %d is %v", ErrModel, i, p)
		}
	}

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	return model.ClassificationResult{
		Label:      model.Emotions[best],
		Confidence: min(max(probs[best], 0), 1),
	}, nil
}
