// Package pipeline turns an emotion into music and keeps the track catalog:
// classify an image or voice clip, generate or regenerate audio, like,
// list and delete tracks.
//
// A generation request moves through
//
//	Requested -> Synthesizing -> Stored -> Cataloged
//
// or ends in Failed. Nothing is cataloged for a failed request, so a retry
// by the caller simply starts over.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cdfmlr/crud/log"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"moodmusic/faceemotion"
	"moodmusic/metadata"
	"moodmusic/metrics"
	"moodmusic/model"
	"moodmusic/musicgen"
	"moodmusic/prompt"
	"moodmusic/voiceemotion"
)

var logger = log.ZoneLogger("moodmusic/pipeline")

// Lifecycle states of a generation request, as logged.
const (
	StateRequested    = "Requested"
	StateSynthesizing = "Synthesizing"
	StateStored       = "Stored"
	StateCataloged    = "Cataloged"
	StateFailed       = "Failed"
)

type ImageClassifier interface {
	Classify(ctx context.Context, raw []byte) (model.ClassificationResult, error)
}

type VoiceClassifier interface {
	Classify(ctx context.Context, raw []byte) (voiceemotion.Result, error)
}

type AudioStore interface {
	Save(ctx context.Context, audio []byte) (string, error)
}

type Catalog interface {
	Insert(ctx context.Context, track *model.Track) error
	ListGenerated(ctx context.Context) ([]model.Track, error)
	ListLiked(ctx context.Context) ([]model.Track, error)
	Like(ctx context.Context, liked metadata.LikedTrack) (*model.Track, error)
	DeleteByAudioURL(ctx context.Context, u string) (bool, error)
}

// Deps are the collaborators of a Service. They are built once at startup
// and shared by all requests.
type Deps struct {
	Images  ImageClassifier
	Voices  VoiceClassifier
	Synth   musicgen.Synthesizer
	Store   AudioStore
	Catalog Catalog
	Metrics *metrics.Metrics // optional

	// zero means musicgen.GenerateTimeout / musicgen.RegenerateTimeout
	GenerateTimeout   time.Duration
	RegenerateTimeout time.Duration
}

type Service struct {
	Deps
}

func NewService(deps Deps) *Service {
	if deps.GenerateTimeout <= 0 {
		deps.GenerateTimeout = musicgen.GenerateTimeout
	}
	if deps.RegenerateTimeout <= 0 {
		deps.RegenerateTimeout = musicgen.RegenerateTimeout
	}
	return &Service{Deps: deps}
}

// -------- classification --------

// ClassifyImage labels the face in an encoded image.
func (s *Service) ClassifyImage(ctx context.Context, raw []byte) (model.ClassificationResult, error) {
	result, err := s.Images.Classify(ctx, raw)
	if errors.Is(err, faceemotion.ErrMissingInput) {
		return result, invalidWrap(err, "image is required")
	}
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("ClassifyImage failed")
		return result, fmt.Errorf("classify image: %w", err)
	}

	s.Metrics.RecordClassification("image", result.Label.String())
	return result, nil
}

// ClassifyVoice transcribes a voice clip and labels the transcript.
func (s *Service) ClassifyVoice(ctx context.Context, raw []byte) (voiceemotion.Result, error) {
	result, err := s.Voices.Classify(ctx, raw)
	if errors.Is(err, voiceemotion.ErrMissingInput) {
		return result, invalidWrap(err, "audio file is required")
	}
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("ClassifyVoice failed")
		return result, fmt.Errorf("classify voice: %w", err)
	}

	s.Metrics.RecordClassification("voice", result.Label.String())
	return result, nil
}

// -------- generation --------

// Generate makes a first track for emotion from the descriptive base prompt.
// emotion must be spelled exactly as one of the seven labels.
func (s *Service) Generate(ctx context.Context, emotion string) (*model.Track, error) {
	e, err := model.ParseEmotion(emotion)
	if err != nil {
		return nil, invalidWrap(err, "invalid emotion")
	}

	return s.produce(ctx, "generate", &model.Track{
		Emotion: e.String(),
		Prompt:  prompt.Base(e),
	}, s.GenerateTimeout)
}

// Regenerate makes another track for emotion from the emotion stem and the
// suffix of the given variation level. variation is clamped to [0, 3].
func (s *Service) Regenerate(ctx context.Context, emotion string, variation int) (*model.Track, error) {
	if strings.TrimSpace(emotion) == "" {
		return nil, invalidf("emotion is required")
	}
	e, err := model.ParseEmotion(emotion)
	if err != nil {
		return nil, invalidWrap(err, "invalid emotion")
	}

	v := model.ClampVariation(variation)
	return s.produce(ctx, "regenerate", &model.Track{
		Emotion:   e.String(),
		Variation: v,
		Prompt:    prompt.Variation(e, v),
	}, s.RegenerateTimeout)
}

// produce runs one request through synthesis, storage and the catalog.
// track carries the emotion, variation and prompt; the rest is filled in.
func (s *Service) produce(ctx context.Context, op string, track *model.Track, timeout time.Duration) (*model.Track, error) {
	l := logger.WithContext(ctx).WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"operation":  op,
		"emotion":    track.Emotion,
		"variation":  track.Variation,
	})
	l.WithField("state", StateRequested).WithField("prompt", track.Prompt).Info("produce")

	l.WithField("state", StateSynthesizing).WithField("timeout", timeout.String()).Debug("produce")
	done := s.Metrics.SynthesisStarted(op)
	audio, err := s.Synth.Synthesize(ctx, track.Prompt, timeout)
	done(synthesisOutcome(err))
	if err != nil {
		l.WithField("state", StateFailed).WithError(err).Warn("produce: synthesis failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ref, err := s.Store.Save(ctx, audio)
	if err != nil {
		l.WithField("state", StateFailed).WithError(err).Error("produce: audio not stored")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	l = l.WithField("audio_url", ref)
	l.WithField("state", StateStored).Debug("produce")

	track.AudioURL = ref
	track.Type = model.TrackTypeGenerated
	if err := s.Catalog.Insert(ctx, track); err != nil {
		// the audio stays in the store, unreferenced
		s.Metrics.RecordCatalogError("insert")
		l.WithField("state", StateFailed).WithError(err).Error("produce: audio stored but not cataloged")
		return nil, fmt.Errorf("%s: audio stored at %s but not cataloged: %w", op, ref, err)
	}

	s.Metrics.RecordTrack(track.Type)
	l.WithField("state", StateCataloged).Info("produce")
	return track, nil
}

// -------- catalog --------

// Like records a liked track. Liking the same audio twice stores it twice.
func (s *Service) Like(ctx context.Context, liked metadata.LikedTrack) (*model.Track, error) {
	if strings.TrimSpace(liked.AudioURL) == "" {
		return nil, invalidf("track.audio_url is required")
	}
	e, err := model.ParseEmotion(liked.Emotion)
	if err != nil {
		return nil, invalidWrap(err, "invalid track.emotion")
	}
	liked.Emotion = e.String()

	track, err := s.Catalog.Like(ctx, liked)
	if errors.Is(err, metadata.ErrInvalidTrack) {
		return nil, invalidWrap(err, "invalid track")
	}
	if err != nil {
		s.Metrics.RecordCatalogError("like")
		return nil, fmt.Errorf("like: %w", err)
	}

	s.Metrics.RecordTrack(track.Type)
	return track, nil
}

// ListGenerated returns generated and regenerated tracks, newest first.
func (s *Service) ListGenerated(ctx context.Context) ([]model.TrackView, error) {
	tracks, err := s.Catalog.ListGenerated(ctx)
	if err != nil {
		s.Metrics.RecordCatalogError("list_generated")
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	return views(tracks), nil
}

// ListLiked returns liked tracks in no particular order.
func (s *Service) ListLiked(ctx context.Context) ([]model.TrackView, error) {
	tracks, err := s.Catalog.ListLiked(ctx)
	if err != nil {
		s.Metrics.RecordCatalogError("list_liked")
		return nil, fmt.Errorf("list liked tracks: %w", err)
	}
	return views(tracks), nil
}

// Delete removes one catalog record by its audio url, absolute or
// store-relative. It returns ErrNotFound if there is none.
// The audio itself is not removed.
func (s *Service) Delete(ctx context.Context, audioURL string) error {
	if strings.TrimSpace(audioURL) == "" {
		return invalidf("audio_url is required")
	}

	deleted, err := s.Catalog.DeleteByAudioURL(ctx, audioURL)
	if err != nil {
		s.Metrics.RecordCatalogError("delete")
		return fmt.Errorf("delete track: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}

	logger.WithContext(ctx).WithField("audio_url", model.NormalizeAudioURL(audioURL)).Info("Delete: deleted")
	return nil
}

func views(tracks []model.Track) []model.TrackView {
	out := make([]model.TrackView, 0, len(tracks))
	for i := range tracks {
		out = append(out, tracks[i].View())
	}
	return out
}
