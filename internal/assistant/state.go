// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     assistant
// Description: Assistant lifecycle state machine
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package assistant

import (
	"reflect"
	"sync"
	"time"

	"github.com/tvoss/hark/pkg/core/logging"
)

// State represents the current state of the assistant
type State int

const (
	// StateIdle - waiting for a trigger
	StateIdle State = iota

	// StateListening - trigger fired, capturing user speech
	StateListening

	// StateProcessing - downstream workflow is working on the request
	StateProcessing

	// StateResponding - delivering the response
	StateResponding

	// StateError - unrecoverable component failure
	StateError
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateResponding:
		return "responding"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transition records one applied state change
type Transition struct {
	From      State
	To        State
	Timestamp time.Time
}

// StateChangeListener is called synchronously after every applied transition
type StateChangeListener func(oldState, newState State)

type listenerEntry struct {
	key uintptr
	fn  StateChangeListener
}

// maxHistory bounds the retained transition record
const maxHistory = 128

// StateMachine is the single authoritative assistant state. Transitions
// are validated against a fixed table, recorded, and fanned out to
// listeners in registration order with per-listener failure isolation.
type StateMachine struct {
	mu        sync.RWMutex
	current   State
	stateTime time.Time
	history   []Transition
	listeners []listenerEntry
	log       *logging.Logger
}

// NewStateMachine creates a state machine starting in Idle
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current:   StateIdle,
		stateTime: time.Now(),
		log:       logging.New("assistant"),
	}
}

// Current returns the current state
func (sm *StateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.current
}

// StateDuration returns how long the machine has been in the current state
func (sm *StateMachine) StateDuration() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.stateTime)
}

// Transition changes to a new state, returning whether the transition was
// valid and applied. Listeners run synchronously on the caller's
// goroutine, in registration order; one failing listener does not stop
// the others and never unwinds the applied transition.
func (sm *StateMachine) Transition(newState State) bool {
	sm.mu.Lock()
	oldState := sm.current

	if !isValidTransition(oldState, newState) {
		sm.mu.Unlock()
		sm.log.Warn("rejected state transition", "from", oldState, "to", newState)
		return false
	}

	sm.applyLocked(oldState, newState)
	listeners := make([]listenerEntry, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	sm.log.Info("state changed", "from", oldState, "to", newState)
	for _, l := range listeners {
		sm.notify(l, oldState, newState)
	}

	return true
}

// applyLocked records the transition and updates the state. Caller holds sm.mu.
func (sm *StateMachine) applyLocked(oldState, newState State) {
	sm.current = newState
	sm.stateTime = time.Now()
	sm.history = append(sm.history, Transition{
		From:      oldState,
		To:        newState,
		Timestamp: sm.stateTime,
	})
	if len(sm.history) > maxHistory {
		sm.history = sm.history[len(sm.history)-maxHistory:]
	}
}

func (sm *StateMachine) notify(l listenerEntry, oldState, newState State) {
	defer func() {
		if r := recover(); r != nil {
			sm.log.Error("state listener failed", "from", oldState, "to", newState, "error", r)
		}
	}()
	l.fn(oldState, newState)
}

// AddListener registers a state change listener. Listeners are notified
// in registration order; registering the same function twice is a no-op.
func (sm *StateMachine) AddListener(fn StateChangeListener) {
	if fn == nil {
		return
	}
	key := reflect.ValueOf(fn).Pointer()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, l := range sm.listeners {
		if l.key == key {
			return
		}
	}
	sm.listeners = append(sm.listeners, listenerEntry{key: key, fn: fn})
}

// RemoveListener removes a previously registered listener
func (sm *StateMachine) RemoveListener(fn StateChangeListener) {
	if fn == nil {
		return
	}
	key := reflect.ValueOf(fn).Pointer()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, l := range sm.listeners {
		if l.key == key {
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			return
		}
	}
}

// History returns a copy of the recorded transitions, oldest first
func (sm *StateMachine) History() []Transition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]Transition, len(sm.history))
	copy(out, sm.history)
	return out
}

// Reset forces the machine back to Idle regardless of the current state,
// notifying listeners if the state actually changed.
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	oldState := sm.current
	if oldState == StateIdle {
		sm.mu.Unlock()
		return
	}
	sm.applyLocked(oldState, StateIdle)
	listeners := make([]listenerEntry, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	sm.log.Info("state reset", "from", oldState)
	for _, l := range listeners {
		sm.notify(l, oldState, StateIdle)
	}
}

// isValidTransition checks the transition table. Error is reachable from
// every state; Idle is the only way out of Error.
func isValidTransition(from, to State) bool {
	if to == StateError {
		return from != StateError
	}

	switch from {
	case StateIdle:
		return to == StateListening
	case StateListening:
		return to == StateProcessing || to == StateIdle
	case StateProcessing:
		return to == StateResponding || to == StateIdle
	case StateResponding:
		return to == StateIdle
	case StateError:
		return to == StateIdle
	default:
		return false
	}
}
