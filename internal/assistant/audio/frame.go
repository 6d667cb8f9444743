// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     audio
// Description: Frame types and channel mixdown
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package audio

// Frame is one multi-channel block of samples from a single capture tick.
// A Frame is immutable once produced; subscribers receive it read-only.
type Frame struct {
	// Channels holds one sample slice per channel, all of equal length
	Channels [][]float32

	// SampleRate is the capture sample rate in Hz
	SampleRate int

	// Index is the monotonically increasing capture tick counter
	Index uint64
}

// SampleCount returns the number of samples per channel
func (f Frame) SampleCount() int {
	if len(f.Channels) == 0 {
		return 0
	}
	return len(f.Channels[0])
}

// MonoFrame is the single-channel mixdown of a Frame, samples in [-1, 1]
type MonoFrame struct {
	Samples    []float32
	SampleRate int
	Index      uint64
}

// Mixdown reduces a multi-channel frame to mono by averaging all channels
// per sample and normalizing to peak amplitude. An all-zero frame stays
// all-zero; there is no division by a zero peak.
func Mixdown(f Frame) MonoFrame {
	n := f.SampleCount()
	mono := MonoFrame{
		Samples:    make([]float32, n),
		SampleRate: f.SampleRate,
		Index:      f.Index,
	}
	if n == 0 || len(f.Channels) == 0 {
		return mono
	}

	scale := 1.0 / float32(len(f.Channels))
	var peak float32
	for i := 0; i < n; i++ {
		var sum float32
		for _, ch := range f.Channels {
			sum += ch[i]
		}
		v := sum * scale
		mono.Samples[i] = v
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	if peak > 0 {
		inv := 1.0 / peak
		for i := range mono.Samples {
			mono.Samples[i] *= inv
		}
	}

	return mono
}

// Deinterleave splits an interleaved sample buffer into per-channel slices.
// The buffer length must be a multiple of the channel count.
func Deinterleave(buf []float32, channels int) [][]float32 {
	if channels < 1 {
		return nil
	}
	n := len(buf) / channels
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			out[c][i] = buf[i*channels+c]
		}
	}
	return out
}

// Level returns the mean absolute amplitude of a mono frame, a cheap
// loudness measure for metering.
func Level(m MonoFrame) float64 {
	if len(m.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range m.Samples {
		if s < 0 {
			s = -s
		}
		sum += float64(s)
	}
	return sum / float64(len(m.Samples))
}
