package model

import "fmt"

// EmotionLabel is one of the seven canonical affect categories.
type EmotionLabel string

// The order of these labels is the output order of the image model,
// argmax ties resolve to the lowest index.
const (
	Angry    EmotionLabel = "Angry"
	Disgust  EmotionLabel = "Disgust"
	Fear     EmotionLabel = "Fear"
	Happy    EmotionLabel = "Happy"
	Sad      EmotionLabel = "Sad"
	Surprise EmotionLabel = "Surprise"
	Neutral  EmotionLabel = "Neutral"
)

// Emotions lists all labels in enumeration order.
var Emotions = [...]EmotionLabel{Angry, Disgust, Fear, Happy, Sad, Surprise, Neutral}

// ParseEmotion returns the label spelled exactly as s.
func ParseEmotion(s string) (EmotionLabel, error) {
	for _, e := range Emotions {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown emotion %q", s)
}

// EmotionOrNeutral is ParseEmotion with the Neutral fallback:
// unrecognized text is not an error.
func EmotionOrNeutral(s string) EmotionLabel {
	e, err := ParseEmotion(s)
	if err != nil {
		return Neutral
	}
	return e
}

func (e EmotionLabel) String() string {
	return string(e)
}

// -------- variation --------

// MaxVariation is the highest variation level.
const MaxVariation = 3

// ClampVariation saturates v into [0, MaxVariation]. It never fails.
func ClampVariation(v int) int {
	if v < 0 {
		return 0
	}
	return min(v, MaxVariation)
}
