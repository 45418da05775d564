package voiceemotion_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodmusic/model"
	"moodmusic/voiceemotion"
)

// fakeTranscriber records what it was given while the file still exists.
type fakeTranscriber struct {
	text string
	err  error

	path       string
	sampleRate uint32
	numChans   uint16
	data       []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	f.path = audioPath

	raw, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	f.data = raw

	dec := wav.NewDecoder(bytes.NewReader(raw))
	dec.ReadInfo()
	if dec.IsValidFile() {
		f.sampleRate, f.numChans = dec.SampleRate, dec.NumChans
	}

	return f.text, f.err
}

// stereoWAV returns a half-second 22.05 kHz stereo WAV.
func stereoWAV(t *testing.T) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	const rate, frames = 22050, 11025
	data := make([]int, frames*2)
	for i := range data {
		data[i] = (i * 37) % 2000
	}
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func TestClassifyWAV(t *testing.T) {
	tr := &fakeTranscriber{text: "I am so happy and surprised"}
	tmp := t.TempDir()
	c := voiceemotion.NewClassifier(tr).WithTempDir(tmp)

	got, err := c.Classify(context.Background(), stereoWAV(t))
	require.NoError(t, err)

	assert.Equal(t, "I am so happy and surprised", got.Transcript)
	assert.Equal(t, model.Happy, got.Label)

	assert.EqualValues(t, voiceemotion.SpeechSampleRate, tr.sampleRate)
	assert.EqualValues(t, 1, tr.numChans)

	_, err = os.Stat(tr.path)
	assert.True(t, os.IsNotExist(err), "staged audio is removed")
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClassifyFallsBackToOriginalUpload(t *testing.T) {
	raw := append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), make([]byte, 300)...)

	tr := &fakeTranscriber{text: "meh, nothing special"}
	got, err := voiceemotion.NewClassifier(tr).WithTempDir(t.TempDir()).Classify(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, model.Neutral, got.Label)
	assert.Equal(t, raw, tr.data, "original bytes are transcribed")
	assert.Equal(t, ".mp3", filepath.Ext(tr.path))
}

func TestClassifyErrors(t *testing.T) {
	c := voiceemotion.NewClassifier(&fakeTranscriber{}).WithTempDir(t.TempDir())
	_, err := c.Classify(context.Background(), nil)
	assert.ErrorIs(t, err, voiceemotion.ErrMissingInput)

	c = voiceemotion.NewClassifier(&fakeTranscriber{err: errors.New("engine down")}).WithTempDir(t.TempDir())
	_, err = c.Classify(context.Background(), stereoWAV(t))
	assert.ErrorIs(t, err, voiceemotion.ErrTranscription)
}
