// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     audio
// Description: WAV file decoding into capture-sized frames
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// ReadWAVFrames decodes a PCM WAV file into frames of frameSize samples per
// channel, the same shape the capture source produces. The final partial
// frame is discarded. Returns the frames and the file's sample rate.
func ReadWAVFrames(path string, frameSize int) ([]Frame, int, error) {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode wav data: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, fmt.Errorf("wav file has no channels: %s", path)
	}
	sampleRate := buf.Format.SampleRate

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	// Interleaved ints -> normalized float32
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	perChannel := len(samples) / channels
	var frames []Frame
	for off := 0; off+frameSize <= perChannel; off += frameSize {
		chunk := samples[off*channels : (off+frameSize)*channels]
		frames = append(frames, Frame{
			Channels:   Deinterleave(chunk, channels),
			SampleRate: sampleRate,
			Index:      uint64(len(frames)),
		})
	}

	return frames, sampleRate, nil
}
