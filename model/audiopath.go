package model

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// this file defines the static (http) namespace of generated audio files,
// and the helpers that turn audio urls into store-relative references.

const (
	StaticDirname    = "static"
	GeneratedDirname = "generated"

	// GeneratedServePath is the url prefix all generated audio is served from:
	//
	//	/static/generated
	GeneratedServePath = "/" + StaticDirname + "/" + GeneratedDirname
)

const (
	audioFilePrefix = "track_"
	audioFileExt    = ".wav"
)

// -------- file name --------

// NewAudioFileName returns "track_{uuid}.wav".
//
// Every call returns a fresh name, so concurrent saves never collide
// and no locking is needed around the audio namespace.
func NewAudioFileName() string {
	return audioFilePrefix + uuid.NewString() + audioFileExt
}

// IsAudioFileName reports whether name looks like a NewAudioFileName result.
// It guards lookups by name against path traversal.
func IsAudioFileName(name string) bool {
	if !strings.HasPrefix(name, audioFilePrefix) || !strings.HasSuffix(name, audioFileExt) {
		return false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(name, audioFilePrefix), audioFileExt)
	_, err := uuid.Parse(token)
	return err == nil
}

// -------- url --------

// AudioFileURLRelative returns the store-relative url of the audio file:
//
//	/static/generated/{name}
func AudioFileURLRelative(name string) string {
	return GeneratedServePath + "/" + name
}

// NormalizeAudioURL strips any scheme and host from u, leaving the
// store-relative path that catalog records are keyed by:
//
//	http://localhost:5001/static/generated/track_x.wav -> /static/generated/track_x.wav
//	/static/generated/track_x.wav                      -> /static/generated/track_x.wav
//	//static/generated/track_x.wav                     -> /static/generated/track_x.wav
//
// Normalizing an already normalized url is a no-op.
func NormalizeAudioURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "//") {
		// no scheme: a doubled slash is not a host
		u = "/" + strings.TrimLeft(u, "/")
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}

	p := parsed.Path
	if parsed.Scheme == "" && parsed.Host == "" {
		// already relative, keep as given modulo a leading slash
		p = u
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
	}

	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// AudioFileNameFromURL returns the file name part of a store-relative
// (or absolute) audio url.
func AudioFileNameFromURL(u string) string {
	return path.Base(NormalizeAudioURL(u))
}

// -------- timestamp --------

// TimestampLayout is a fixed-width ISO-8601 UTC layout. Fixed width keeps
// lexical order equal to chronological order, which the catalog sorts by.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
