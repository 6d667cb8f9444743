// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     trigger
// Description: RMS energy scorer
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package trigger

import "math"

// EnergyScorer maps the RMS level of the window onto [0, 1]. Levels at or
// below the noise floor score 0, levels at or above the speech level score
// 1, with linear interpolation between. It is a model-free stand-in that
// makes the pipeline usable for loudness-triggered activation.
type EnergyScorer struct {
	// NoiseFloor is the RMS level of ambient silence
	NoiseFloor float64

	// SpeechLevel is the RMS level of confident speech
	SpeechLevel float64
}

// NewEnergyScorer returns an energy scorer tuned for 16kHz speech capture
func NewEnergyScorer() *EnergyScorer {
	return &EnergyScorer{
		NoiseFloor:  0.008,
		SpeechLevel: 0.015,
	}
}

// Score returns the normalized RMS level of the window
func (s *EnergyScorer) Score(window []float32, sampleRate int) (float64, error) {
	if len(window) == 0 {
		return 0, nil
	}

	var sum float64
	for _, v := range window {
		sum += float64(v) * float64(v)
	}
	level := math.Sqrt(sum / float64(len(window)))

	if level <= s.NoiseFloor {
		return 0, nil
	}
	if level >= s.SpeechLevel {
		return 1, nil
	}
	return (level - s.NoiseFloor) / (s.SpeechLevel - s.NoiseFloor), nil
}
