// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     trigger
// Description: WebRTC VAD scorer
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package trigger

import (
	"fmt"

	webrtcvad "github.com/maxhawkins/go-webrtcvad"
)

// VADScorer scores a window by the ratio of voiced sub-frames reported by
// the WebRTC voice activity detector. It detects speech rather than a
// specific phrase, which makes it a useful trigger on quiet setups.
type VADScorer struct {
	vad        *webrtcvad.VAD
	sampleRate int
	mode       int
}

// NewVADScorer creates a WebRTC VAD scorer. Mode 0-3 sets aggressiveness,
// higher filters more non-speech.
func NewVADScorer(sampleRate, mode int) (*VADScorer, error) {
	validRates := []int{8000, 16000, 32000, 48000}
	validRate := false
	for _, r := range validRates {
		if sampleRate == r {
			validRate = true
			break
		}
	}
	if !validRate {
		return nil, fmt.Errorf("invalid sample rate %d for VAD, must be one of %v", sampleRate, validRates)
	}

	vad, err := webrtcvad.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC VAD: %w", err)
	}

	if mode < 0 {
		mode = 0
	}
	if mode > 3 {
		mode = 3
	}
	if err := vad.SetMode(mode); err != nil {
		return nil, fmt.Errorf("failed to set VAD mode: %w", err)
	}

	return &VADScorer{
		vad:        vad,
		sampleRate: sampleRate,
		mode:       mode,
	}, nil
}

// Score returns the fraction of 20ms sub-frames of the window that the
// VAD classifies as voiced.
func (s *VADScorer) Score(window []float32, sampleRate int) (float64, error) {
	if sampleRate != s.sampleRate {
		return 0, fmt.Errorf("window sample rate %d does not match VAD rate %d", sampleRate, s.sampleRate)
	}

	// 20ms sub-frames
	frameSize := s.sampleRate / 50
	if len(window) < frameSize {
		return 0, nil
	}

	voiced, total := 0, 0
	for off := 0; off+frameSize <= len(window); off += frameSize {
		frameBytes := int16ToBytes(window[off : off+frameSize])

		active, err := s.vad.Process(s.sampleRate, frameBytes)
		if err != nil {
			return 0, fmt.Errorf("VAD processing failed: %w", err)
		}

		total++
		if active {
			voiced++
		}
	}

	if total == 0 {
		return 0, nil
	}
	return float64(voiced) / float64(total), nil
}

// Mode returns the configured aggressiveness mode
func (s *VADScorer) Mode() int {
	return s.mode
}

// int16ToBytes converts float samples to 16-bit little-endian PCM bytes
func int16ToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > 1.0 {
			v = 1.0
		}
		if v < -1.0 {
			v = -1.0
		}
		s := int16(v * 32767)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
