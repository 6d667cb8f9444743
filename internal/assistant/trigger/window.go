// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     trigger
// Description: Fixed-capacity sliding sample window
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package trigger

// Window is a fixed-capacity sliding buffer of mono samples. It always
// holds exactly capacity samples, zero-padded until real audio has filled
// it once. Pushing discards the oldest samples and appends the newest at
// the tail, so index 0 is always the oldest sample.
//
// Window is not safe for concurrent use; it is owned by the gate's
// detection worker.
type Window struct {
	samples []float32
}

// NewWindow creates a zero-filled window of the given capacity
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		samples: make([]float32, capacity),
	}
}

// Push slides the window left by len(incoming) and writes the incoming
// samples into the freed tail. Incoming data longer than the capacity
// keeps only its newest samples.
func (w *Window) Push(incoming []float32) {
	n := len(incoming)
	if n == 0 {
		return
	}
	size := len(w.samples)

	if n >= size {
		copy(w.samples, incoming[n-size:])
		return
	}

	copy(w.samples, w.samples[n:])
	copy(w.samples[size-n:], incoming)
}

// Samples returns the window contents, oldest first. The slice is the
// window's backing array; callers must not retain it across Push calls.
func (w *Window) Samples() []float32 {
	return w.samples
}

// Len returns the window capacity, which is also its constant length
func (w *Window) Len() int {
	return len(w.samples)
}

// Reset zeroes the window
func (w *Window) Reset() {
	for i := range w.samples {
		w.samples[i] = 0
	}
}
