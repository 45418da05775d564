package voiceemotion

import (
	"strings"

	"moodmusic/model"
)

// keywordCategories is a priority list, not a vote: the first category with
// any keyword occurring in the transcript wins. Keep the order.
//
// Category names are the legacy voice vocabulary; see adaptLabel.
var keywordCategories = []struct {
	name     string
	keywords []string
}{
	{"happy", []string{"happy", "joy", "glad", "excited", "great", "awesome", "love", "wonderful", "delighted"}},
	{"sad", []string{"sad", "unhappy", "depressed", "down", "cry", "lonely", "miserable", "heartbroken"}},
	{"angry", []string{"angry", "mad", "furious", "annoyed", "hate", "irritated", "rage"}},
	{"fearful", []string{"afraid", "scared", "fear", "terrified", "nervous", "anxious", "worried"}},
	{"surprise", []string{"surprise", "surprised", "shocked", "amazed", "wow", "unexpected", "astonished"}},
	{"disgust", []string{"disgust", "disgusted", "gross", "nasty", "revolting", "sick of"}},
	{"neutral", []string{"okay", "fine", "normal", "nothing", "alright"}},
}

// matchCategory returns the legacy category name for transcript,
// or "" if no keyword occurs in it. Matching is by lower-cased substring.
func matchCategory(transcript string) string {
	text := strings.ToLower(transcript)
	for _, c := range keywordCategories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.name
			}
		}
	}
	return ""
}

// adaptLabel maps the legacy voice vocabulary onto model.EmotionLabel.
// Anything unknown becomes Neutral.
func adaptLabel(legacy string) model.EmotionLabel {
	switch legacy {
	case "happy":
		return model.Happy
	case "sad":
		return model.Sad
	case "angry":
		return model.Angry
	case "fearful":
		return model.Fear
	case "surprise":
		return model.Surprise
	case "disgust":
		return model.Disgust
	default:
		return model.Neutral
	}
}

// EmotionFromTranscript maps recognized speech to an emotion label.
func EmotionFromTranscript(transcript string) model.EmotionLabel {
	return adaptLabel(matchCategory(transcript))
}
