// Package voiceemotion guesses an emotion from a short voice clip:
// speech is transcribed by an external engine, and the transcript is
// matched against an ordered keyword table.
package voiceemotion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdfmlr/crud/log"

	"moodmusic/model"
)

var logger = log.ZoneLogger("moodmusic/voiceemotion")

var (
	ErrMissingInput  = errors.New("no audio supplied")
	ErrTranscription = errors.New("transcription failed")
)

// Transcriber is the speech-to-text engine. It reads the audio file at
// audioPath, preferably 16 kHz mono WAV.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Result of a voice classification. There is no numeric confidence.
type Result struct {
	Transcript string
	Label      model.EmotionLabel
}

type Classifier struct {
	transcriber Transcriber
	tempDir     string // "" means os.TempDir()
}

func NewClassifier(t Transcriber) *Classifier {
	return &Classifier{transcriber: t}
}

// WithTempDir sets where uploads are staged.
func (c *Classifier) WithTempDir(dir string) *Classifier {
	c.tempDir = dir
	return c
}

// Classify transcribes raw and maps the transcript to an emotion.
//
// The upload is written to a private temporary directory that is removed
// before Classify returns. WAV input is converted to 16 kHz mono first;
// if that fails, the original upload goes to the transcriber unchanged.
func (c *Classifier) Classify(ctx context.Context, raw []byte) (Result, error) {
	if len(raw) == 0 {
		return Result{}, ErrMissingInput
	}

	dir, err := os.MkdirTemp(c.tempDir, "moodmusic-voice-*")
	if err != nil {
		return Result{}, fmt.Errorf("stage upload: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.WithError(err).WithField("dir", dir).Warn("Classify: failed to remove temp dir")
		}
	}()

	upload := filepath.Join(dir, uploadName(raw))
	if err := os.WriteFile(upload, raw, 0o600); err != nil {
		return Result{}, fmt.Errorf("stage upload: %w", err)
	}

	audioPath, err := toSpeechWAV(upload, filepath.Join(dir, "speech_16k.wav"))
	if err != nil {
		logger.WithError(err).Warn("Classify: resampling failed, transcribing the original upload")
		audioPath = upload
	}

	transcript, err := c.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	label := EmotionFromTranscript(transcript)
	logger.WithField("emotion", label).Debug("Classify: done")

	return Result{Transcript: transcript, Label: label}, nil
}
