package model

import "github.com/cdfmlr/crud/orm"

// Track types.
const (
	TrackTypeGenerated = "generated"
	TrackTypeLiked     = "liked"
)

// Track is one catalog record: a generated (or regenerated) piece of
// audio, or a track the user liked.
//
// Records are never updated in place. A correction is a new insert,
// and the only way to remove one is DeleteByAudioURL in package metadata.
type Track struct {
	orm.BasicModel

	Title     string
	Emotion   string `gorm:"index"`
	Variation int
	Prompt    string
	AudioURL  string `gorm:"index"` // store-relative, see NormalizeAudioURL
	Timestamp string `gorm:"index"` // TimestampLayout, sortable as a string
	Type      string `gorm:"index"`
}

// TrackView is the json shape of a Track at the HTTP boundary.
// The store-assigned ID is not exposed.
type TrackView struct {
	Title     string `json:"title,omitempty"`
	Emotion   string `json:"emotion"`
	Variation int    `json:"variation"`
	Prompt    string `json:"prompt,omitempty"`
	AudioURL  string `json:"audio_url"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

func (t *Track) View() TrackView {
	return TrackView{
		Title:     t.Title,
		Emotion:   t.Emotion,
		Variation: t.Variation,
		Prompt:    t.Prompt,
		AudioURL:  t.AudioURL,
		Timestamp: t.Timestamp,
		Type:      t.Type,
	}
}

// ClassificationResult is what the image classifier produces.
// Confidence is in [0, 1].
type ClassificationResult struct {
	Label      EmotionLabel `json:"emotion"`
	Confidence float64      `json:"confidence"`
}
