// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     assistant
// Description: Downstream interaction workflow boundary
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package assistant

import (
	"context"
	"time"

	"github.com/tvoss/hark/internal/assistant/trigger"
)

// Progress is how a workflow reports interaction stages back to the
// coordinator, which maps them onto state transitions.
type Progress interface {
	// ProcessingStarted reports that the request is being worked on
	ProcessingStarted()

	// ResponseReady reports that a response has been produced
	ResponseReady()

	// ResponseDelivered reports that the interaction is complete
	ResponseDelivered()
}

// Workflow is the boundary to the language-understanding and skill layer.
// Run is invoked on its own goroutine per detection and must honor ctx.
type Workflow interface {
	Run(ctx context.Context, ev trigger.Event, progress Progress)
}

// SimulatedWorkflow walks the full interaction cycle on fixed delays.
// It stands in for the real speech/LLM pipeline so the state machine can
// be exercised end to end.
type SimulatedWorkflow struct {
	ListenDelay  time.Duration
	ProcessDelay time.Duration
	RespondDelay time.Duration
}

// Run reports the interaction stages after the configured delays,
// stopping early if the context is cancelled.
func (w *SimulatedWorkflow) Run(ctx context.Context, ev trigger.Event, progress Progress) {
	if !sleepCtx(ctx, w.ListenDelay) {
		return
	}
	progress.ProcessingStarted()

	if !sleepCtx(ctx, w.ProcessDelay) {
		return
	}
	progress.ResponseReady()

	if !sleepCtx(ctx, w.RespondDelay) {
		return
	}
	progress.ResponseDelivered()
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
