package model

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmotion(t *testing.T) {
	for _, e := range Emotions {
		got, err := ParseEmotion(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}

	for _, bad := range []string{"", "happy", "Joyful", "Fearful", " Happy"} {
		_, err := ParseEmotion(bad)
		assert.Error(t, err, bad)
	}
}

func TestEmotionOrNeutral(t *testing.T) {
	assert.Equal(t, Sad, EmotionOrNeutral("Sad"))
	assert.Equal(t, Neutral, EmotionOrNeutral("melancholic"))
	assert.Equal(t, Neutral, EmotionOrNeutral(""))
}

func TestClampVariation(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-100, 0},
		{-1, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 3},
		{4, 3},
		{1 << 30, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampVariation(tt.in), "ClampVariation(%d)", tt.in)
	}
}

func TestNewAudioFileName(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := NewAudioFileName()
		assert.True(t, strings.HasPrefix(name, "track_"))
		assert.True(t, strings.HasSuffix(name, ".wav"))
		assert.True(t, IsAudioFileName(name))
		assert.False(t, seen[name], "duplicate name %s", name)
		seen[name] = true
	}
}

func TestIsAudioFileName(t *testing.T) {
	assert.False(t, IsAudioFileName("../etc/passwd"))
	assert.False(t, IsAudioFileName("track_../../x.wav"))
	assert.False(t, IsAudioFileName("track_abc.wav"))
	assert.False(t, IsAudioFileName("song.mp3"))
}

func TestAudioFileURLRelative(t *testing.T) {
	assert.Equal(t, "/static/generated/track_1.wav", AudioFileURLRelative("track_1.wav"))
}

func TestNormalizeAudioURL(t *testing.T) {
	const rel = "/static/generated/track_a.wav"

	tests := []struct {
		name string
		in   string
	}{
		{"relative", rel},
		{"absolute http", "http://127.0.0.1:5001" + rel},
		{"absolute https", "https://music.example.com" + rel},
		{"no leading slash", "static/generated/track_a.wav"},
		{"query string", rel + "?t=1"},
		{"whitespace", "  " + rel + " "},
		{"doubled leading slash", "/" + rel},
		{"tripled leading slash", "//" + rel},
		{"doubled inner slash", "/static//generated/track_a.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAudioURL(tt.in)
			assert.Equal(t, rel, got)
			assert.Equal(t, got, NormalizeAudioURL(got), "normalization is idempotent")
		})
	}

	assert.Equal(t, "", NormalizeAudioURL(""))
	assert.Equal(t, "track_a.wav", AudioFileNameFromURL("http://h"+rel))
}

func TestFormatTimestampSortsChronologically(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	times := []time.Time{
		base.Add(10 * time.Hour),
		base,
		base.Add(1500 * time.Millisecond),
		base.Add(time.Microsecond),
		base.AddDate(1, 0, 0),
	}

	var stamps []string
	for _, tm := range times {
		s := FormatTimestamp(tm)
		assert.Len(t, s, len(TimestampLayout))
		stamps = append(stamps, s)
	}

	sort.Strings(stamps)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	for i := range times {
		assert.Equal(t, FormatTimestamp(times[i]), stamps[i])
	}
}

func TestFormatTimestampIsUTC(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	tm := time.Date(2024, 5, 6, 10, 0, 0, 0, loc)
	assert.Equal(t, "2024-05-06T07:00:00.000000Z", FormatTimestamp(tm))
}

func TestTrackView(t *testing.T) {
	tr := Track{
		Title:     "Happy Track",
		Emotion:   "Happy",
		Variation: 2,
		Prompt:    "p",
		AudioURL:  "/static/generated/track_a.wav",
		Timestamp: "2024-01-01T00:00:00.000000Z",
		Type:      TrackTypeLiked,
	}
	tr.ID = 42

	v := tr.View()
	assert.Equal(t, "Happy Track", v.Title)
	assert.Equal(t, 2, v.Variation)
	assert.Equal(t, TrackTypeLiked, v.Type)
	assert.Equal(t, tr.AudioURL, v.AudioURL)
}
