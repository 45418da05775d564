package voiceemotion

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSineWAV writes a 16-bit 440 Hz tone and returns its path.
func writeSineWAV(t *testing.T, dir string, rate, channels, frames int) string {
	t.Helper()

	path := filepath.Join(dir, "in.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(math.Sin(2*math.Pi*440*float64(i)/float64(rate)) * 16000)
		for ch := 0; ch < channels; ch++ {
			data = append(data, v)
		}
	}

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func readWAV(t *testing.T, path string) (*wav.Decoder, *audio.IntBuffer) {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return dec, buf
}

func TestToSpeechWAVResamplesAndDownmixes(t *testing.T) {
	dir := t.TempDir()
	src := writeSineWAV(t, dir, 44100, 2, 44100)
	dst := filepath.Join(dir, "out.wav")

	got, err := toSpeechWAV(src, dst)
	require.NoError(t, err)
	assert.Equal(t, dst, got)

	dec, buf := readWAV(t, got)
	assert.EqualValues(t, SpeechSampleRate, dec.SampleRate)
	assert.EqualValues(t, 1, dec.NumChans)
	assert.EqualValues(t, 16, dec.BitDepth)
	assert.InDelta(t, SpeechSampleRate, len(buf.Data), 2)
}

func TestToSpeechWAVKeepsSpeechRateMono(t *testing.T) {
	dir := t.TempDir()
	src := writeSineWAV(t, dir, SpeechSampleRate, 1, 1600)

	got, err := toSpeechWAV(src, filepath.Join(dir, "out.wav"))
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestToSpeechWAVFailures(t *testing.T) {
	dir := t.TempDir()

	flac := filepath.Join(dir, "a.flac")
	require.NoError(t, os.WriteFile(flac, append([]byte("fLaC"), make([]byte, 200)...), 0o600))
	_, err := toSpeechWAV(flac, filepath.Join(dir, "out1.wav"))
	assert.ErrorIs(t, err, errCompressed)

	junk := filepath.Join(dir, "junk")
	require.NoError(t, os.WriteFile(junk, []byte("this is not audio at all, just some words"), 0o600))
	_, err = toSpeechWAV(junk, filepath.Join(dir, "out2.wav"))
	assert.Error(t, err)

	short := writeSineWAV(t, t.TempDir(), 8000, 1, 2)
	_, err = toSpeechWAV(short, filepath.Join(dir, "out3.wav"))
	assert.ErrorIs(t, err, errTooShort)
}

func TestResample(t *testing.T) {
	in := make([]float32, 480)
	for i := range in {
		in[i] = float32(math.Sin(float64(i) / 10))
	}

	out, err := resample(in, 48000, 16000)
	require.NoError(t, err)
	assert.Len(t, out, 160)

	same, err := resample(in, 16000, 16000)
	require.NoError(t, err)
	assert.Equal(t, in, same)

	_, err = resample(in, 0, 16000)
	assert.Error(t, err)
}

func TestDownmix(t *testing.T) {
	got := downmix([]int{100, 300, -200, 200}, 2, 1000)
	assert.InDeltaSlice(t, []float32{0.2, 0}, got, 1e-6)
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "upload.flac", uploadName(append([]byte("fLaC"), make([]byte, 20)...)))
	assert.Equal(t, "upload.ogg", uploadName(append([]byte("OggS"), make([]byte, 20)...)))
	assert.Equal(t, "upload.wav", uploadName([]byte("RIFF")))
}
