package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"moodmusic/metadata"
	"moodmusic/model"
	"moodmusic/pipeline"
	"moodmusic/voiceemotion"
)

var errBoom = errors.New("boom")

type fakeImages struct {
	result model.ClassificationResult
	err    error
}

func (f *fakeImages) Classify(_ context.Context, raw []byte) (model.ClassificationResult, error) {
	return f.result, f.err
}

type fakeVoices struct {
	result voiceemotion.Result
	err    error
}

func (f *fakeVoices) Classify(_ context.Context, raw []byte) (voiceemotion.Result, error) {
	return f.result, f.err
}

type synthCall struct {
	prompt  string
	timeout time.Duration
}

type fakeSynth struct {
	audio []byte
	err   error

	mu    sync.Mutex
	calls []synthCall
}

func (f *fakeSynth) Synthesize(_ context.Context, prompt string, timeout time.Duration) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, synthCall{prompt, timeout})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

type memStore struct {
	err error

	mu    sync.Mutex
	saved map[string][]byte
}

func (m *memStore) Save(_ context.Context, audio []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	ref := model.AudioFileURLRelative(model.NewAudioFileName())
	m.saved[ref] = audio
	return ref, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// brokenInsertCatalog fails every Insert, the rest is a real catalog.
type brokenInsertCatalog struct {
	*metadata.Catalog
}

func (brokenInsertCatalog) Insert(context.Context, *model.Track) error {
	return errors.Join(metadata.ErrPersistence, errBoom)
}

// brokenListCatalog fails every listing.
type brokenListCatalog struct {
	*metadata.Catalog
}

func (brokenListCatalog) ListGenerated(context.Context) ([]model.Track, error) {
	return nil, errors.Join(metadata.ErrPersistence, errBoom)
}

func (brokenListCatalog) ListLiked(context.Context) ([]model.Track, error) {
	return nil, errors.Join(metadata.ErrPersistence, errBoom)
}

func newCatalog(t *testing.T) *metadata.Catalog {
	t.Helper()

	db, err := metadata.Open("sqlite://" + filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	catalog, err := metadata.NewCatalog(db)
	require.NoError(t, err)
	return catalog
}

type fixture struct {
	svc     *pipeline.Service
	images  *fakeImages
	voices  *fakeVoices
	synth   *fakeSynth
	store   *memStore
	catalog *metadata.Catalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		images:  &fakeImages{result: model.ClassificationResult{Label: model.Happy, Confidence: 0.92}},
		voices:  &fakeVoices{result: voiceemotion.Result{Transcript: "so happy", Label: model.Happy}},
		synth:   &fakeSynth{audio: []byte("RIFF-fake-wav")},
		store:   &memStore{},
		catalog: newCatalog(t),
	}
	f.svc = pipeline.NewService(pipeline.Deps{
		Images:  f.images,
		Voices:  f.voices,
		Synth:   f.synth,
		Store:   f.store,
		Catalog: f.catalog,
	})
	return f
}
