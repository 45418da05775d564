// Package prompt composes text prompts for the music synthesis service.
//
// There are two strategies and they are deliberately kept apart:
//
//   - Base: the first generation for an emotion uses a hand-authored
//     descriptive phrase.
//   - Variation: a regeneration uses "{emotion} music" followed by an
//     enrichment suffix that grows with the variation level.
package prompt

import (
	"moodmusic/model"
)

// basePrompts maps each emotion to its first-generation prompt.
var basePrompts = map[model.EmotionLabel]string{
	model.Angry:    "aggressive heavy rock with distorted guitars and pounding drums",
	model.Disgust:  "dark dissonant ambient soundscape with gritty textures and uneasy drones",
	model.Fear:     "tense cinematic score with low strings, eerie pads and a slow pulse",
	model.Happy:    "bright upbeat pop melody with cheerful chords and energetic drums",
	model.Sad:      "slow melancholic piano ballad with soft strings and gentle reverb",
	model.Surprise: "playful orchestral piece with sudden dynamic shifts and bright brass stabs",
	model.Neutral:  "calm lo-fi instrumental with mellow keys and a relaxed steady beat",
}

// variationSuffixes is indexed by the clamped variation level.
var variationSuffixes = [model.MaxVariation + 1]string{
	"with a simple melody and clean arrangement",
	"with richer harmonies and layered instrumentation",
	"with dynamic tempo changes, expressive solos and a fuller mix",
	"with cinematic orchestration, complex rhythms and polished studio production",
}

// Base returns the first-generation prompt for e.
// Labels outside the enumeration get the Neutral prompt.
func Base(e model.EmotionLabel) string {
	if p, ok := basePrompts[e]; ok {
		return p
	}
	return basePrompts[model.Neutral]
}

// Variation returns the regeneration prompt for e at the given level.
// The level is clamped to [0, 3], it never fails.
func Variation(e model.EmotionLabel, variation int) string {
	return string(e) + " music " + variationSuffixes[model.ClampVariation(variation)]
}

// IsBase reports whether p is one of the first-generation prompts.
func IsBase(p string) bool {
	for _, b := range basePrompts {
		if b == p {
			return true
		}
	}
	return false
}
