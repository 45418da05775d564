package voiceemotion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhowden/tag"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SpeechSampleRate is the rate the transcriber expects.
const SpeechSampleRate = 16000

var (
	errCompressed = errors.New("compressed audio container")
	errNotWAV     = errors.New("not a WAV file")
	errTooShort   = errors.New("too few samples to resample")
)

// toSpeechWAV makes a 16 kHz mono 16-bit WAV of srcPath at dstPath and
// returns the path the transcriber should read. A source that is already
// 16 kHz mono is used as is.
//
// Only WAV is handled here. Anything else (or a WAV that cannot be
// processed) is an error, and the caller falls back to the original upload.
func toSpeechWAV(srcPath, dstPath string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if format, fileType, err := tag.Identify(f); err == nil {
		return "", fmt.Errorf("%w: %s %s", errCompressed, format, fileType)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return "", errNotWAV
	}

	if dec.SampleRate == SpeechSampleRate && dec.NumChans == 1 {
		return srcPath, nil
	}

	divisor, err := sampleDivisor(int(dec.BitDepth))
	if err != nil {
		return "", err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return "", fmt.Errorf("decode PCM: %w", err)
	}

	mono := downmix(buf.Data, int(dec.NumChans), divisor)

	resampled, err := resample(mono, int(dec.SampleRate), SpeechSampleRate)
	if err != nil {
		return "", err
	}

	if err := writeWAV16(dstPath, resampled); err != nil {
		return "", err
	}
	return dstPath, nil
}

// uploadName picks a file name whose extension matches the container.
// Transcription servers go by the extension.
func uploadName(raw []byte) string {
	_, fileType, err := tag.Identify(bytes.NewReader(raw))
	if err != nil {
		return "upload.wav"
	}
	switch fileType {
	case tag.MP3:
		return "upload.mp3"
	case tag.FLAC:
		return "upload.flac"
	case tag.OGG:
		return "upload.ogg"
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return "upload.m4a"
	default:
		return "upload.wav"
	}
}

func sampleDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16, 24, 32:
		return float32(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// downmix averages interleaved channels into [-1, 1] floats.
func downmix(data []int, channels int, divisor float32) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(data[i*channels+ch]) / divisor
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// resample converts between sample rates with cubic interpolation.
func resample(samples []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return samples, nil
	}
	if len(samples) < 4 {
		return nil, errTooShort
	}

	ratio := float64(toRate) / float64(fromRate)
	n := int(float64(len(samples)) * ratio)
	out := make([]float32, n)
	last := len(samples) - 3

	for i := range out {
		pos := float64(i) / ratio
		idx := int(pos)
		if idx < 1 {
			idx = 1
		} else if idx > last {
			idx = last
		}

		t := float32(pos) - float32(idx)
		y0, y1, y2, y3 := samples[idx-1], samples[idx], samples[idx+1], samples[idx+2]
		t2 := t * t
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2

		out[i] = a0*t*t2 + a1*t2 + a2*t + y1
	}
	return out, nil
}

func writeWAV16(path string, samples []float32) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(min(max(s, -1), 1) * 32767)
	}

	enc := wav.NewEncoder(out, SpeechSampleRate, 16, 1, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: 1, SampleRate: SpeechSampleRate},
		SourceBitDepth: 16,
	})
	if err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode WAV: %w", err)
	}
	return out.Close()
}
