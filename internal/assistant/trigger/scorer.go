// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     trigger
// Description: Pluggable trigger scorer interface
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package trigger

import "fmt"

// Scorer scores a fixed-length window of mono audio for the trigger phrase.
// Implementations must be pure with respect to the window: no mutation,
// confidence in [0, 1].
type Scorer interface {
	Score(window []float32, sampleRate int) (float64, error)
}

// NewScorer builds a scorer by configuration name: "stub", "energy" or "vad"
func NewScorer(name string, sampleRate, vadMode int) (Scorer, error) {
	switch name {
	case "stub":
		return StubScorer{}, nil
	case "energy", "":
		return NewEnergyScorer(), nil
	case "vad":
		return NewVADScorer(sampleRate, vadMode)
	default:
		return nil, fmt.Errorf("unknown scorer %q", name)
	}
}

// StubScorer returns a fixed confidence for every window. The zero value
// never triggers anything; it stands in for a trained keyword model.
type StubScorer struct {
	Confidence float64
}

// Score returns the configured confidence regardless of the window
func (s StubScorer) Score(window []float32, sampleRate int) (float64, error) {
	return s.Confidence, nil
}
