// Package audiofilestore stores generated audio.
// It has two stores with the same methods:
//   - AudioFileStore: files in a local directory, served statically.
//   - NatsAudioStore: objects in a NATS JetStream object store bucket.
//
// Methods:
//   - Save: write audio bytes under a fresh unique name, return its store-relative url
//   - Load: read audio bytes back by name
//   - RegisterRoutes: serve /static/generated/{name}
//
// Audio is raw bytes here. Decoding the synthesis service's base64 payload
// is the job of package musicgen.
package audiofilestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cdfmlr/crud/log"

	"moodmusic/model"
)

var logger = log.ZoneLogger("moodmusic/audiofilestore")

var (
	ErrStorage  = errors.New("audio storage failed")
	ErrNotFound = errors.New("audio not found")
	ErrNoAudio  = errors.New("no audio to save")
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// AudioFileStore stores audio files in a local directory.
type AudioFileStore struct {
	FileDir string
}

// NewAudioFileStore returns a store writing into fileDir, creating it if needed.
func NewAudioFileStore(fileDir string) (*AudioFileStore, error) {
	if fileDir == "" {
		return nil, fmt.Errorf("%w: empty file dir", ErrStorage)
	}
	if err := os.MkdirAll(fileDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("%w: MkdirAll %s: %v", ErrStorage, fileDir, err)
	}
	return &AudioFileStore{FileDir: fileDir}, nil
}

// Save writes audio to {FileDir}/track_{uuid}.wav and returns
//
//	/static/generated/track_{uuid}.wav
//
// The file is written under a temporary name and renamed into place,
// so a reader never sees a partial file.
func (a *AudioFileStore) Save(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := model.NewAudioFileName()
	dst := filepath.Join(a.FileDir, name)

	tmp, err := os.CreateTemp(a.FileDir, ".incoming-*")
	if err != nil {
		return "", fmt.Errorf("%w: CreateTemp: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(audio)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, filePermissions)
	}
	if werr == nil {
		werr = os.Rename(tmpName, dst)
	}
	if werr != nil {
		_ = os.Remove(tmpName) // rollback
		return "", fmt.Errorf("%w: write %s: %v", ErrStorage, dst, werr)
	}

	logger.WithField("file", dst).
		WithField("bytes", len(audio)).
		Debug("Save: success")

	return model.AudioFileURLRelative(name), nil
}

// Load reads the audio file called name.
func (a *AudioFileStore) Load(_ context.Context, name string) ([]byte, error) {
	if !model.IsAudioFileName(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	data, err := os.ReadFile(filepath.Join(a.FileDir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStorage, name, err)
	}
	return data, nil
}
