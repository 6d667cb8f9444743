// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     assistant
// Description: Coordinator wiring capture, trigger gate and state machine
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tvoss/hark/internal/assistant/audio"
	"github.com/tvoss/hark/internal/assistant/trigger"
	"github.com/tvoss/hark/pkg/core/config"
	"github.com/tvoss/hark/pkg/core/logging"
)

// AudioProducer is the capture surface the coordinator drives
type AudioProducer interface {
	Start() error
	Stop() error
	Close() error
	Subscribe(audio.SubscriberFunc)
	Unsubscribe(audio.SubscriberFunc)
}

// TriggerGate is the detection surface the coordinator drives
type TriggerGate interface {
	Start(trigger.DetectFunc) error
	Stop()
	ProcessAudio(audio.MonoFrame)
	State() trigger.State
	SetSensitivity(threshold float64)
}

// Option customizes a Coordinator
type Option func(*Coordinator)

// WithWorkflow replaces the default simulated interaction workflow
func WithWorkflow(w Workflow) Option {
	return func(c *Coordinator) {
		if w != nil {
			c.workflow = w
		}
	}
}

// WithSourceFactory replaces how the coordinator constructs its audio
// source; used to substitute a test double.
func WithSourceFactory(f func(audio.Config) AudioProducer) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.newSource = f
		}
	}
}

// WithGateFactory replaces how the coordinator constructs its trigger gate
func WithGateFactory(f func(trigger.Config, trigger.Scorer) TriggerGate) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.newGate = f
		}
	}
}

// WithAudioTap registers an extra subscriber on the capture fan-out, e.g.
// a level meter. The tap receives every frame the gate receives.
func WithAudioTap(fn audio.SubscriberFunc) Option {
	return func(c *Coordinator) {
		c.audioTap = fn
	}
}

// Coordinator owns the capture source and the trigger gate for its
// lifetime, wires the mono fan-out into the gate, and reacts to
// detections by advancing the assistant state machine and dispatching
// the downstream workflow.
type Coordinator struct {
	mu        sync.Mutex
	cfg       *config.Config
	log       *logging.Logger
	sm        *StateMachine
	workflow  Workflow
	newSource func(audio.Config) AudioProducer
	newGate   func(trigger.Config, trigger.Scorer) TriggerGate

	source   AudioProducer
	gate     TriggerGate
	feedFn   audio.SubscriberFunc
	audioTap audio.SubscriberFunc
	running  bool
	cancel   context.CancelFunc
	wf       sync.WaitGroup
}

// NewCoordinator creates a coordinator from the application configuration
func NewCoordinator(cfg *config.Config, opts ...Option) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}

	c := &Coordinator{
		cfg: cfg,
		log: logging.New("assistant"),
		sm:  NewStateMachine(),
		workflow: &SimulatedWorkflow{
			ListenDelay:  cfg.Workflow.ListenDelay.Duration,
			ProcessDelay: cfg.Workflow.ProcessDelay.Duration,
			RespondDelay: cfg.Workflow.RespondDelay.Duration,
		},
		newSource: func(ac audio.Config) AudioProducer { return audio.NewSource(ac) },
		newGate: func(tc trigger.Config, s trigger.Scorer) TriggerGate {
			return trigger.NewGate(tc, s)
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start constructs and wires the audio source and trigger gate, then
// begins capture. Any construction or start failure moves the assistant
// to Error and is returned to the caller.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.log.Warn("assistant already running")
		return nil
	}

	scorer, err := trigger.NewScorer(c.cfg.Trigger.Scorer, c.cfg.Audio.SampleRate, c.cfg.Trigger.VADMode)
	if err != nil {
		c.sm.Transition(StateError)
		return fmt.Errorf("failed to build scorer: %w", err)
	}

	gate := c.newGate(trigger.Config{
		SampleRate:     c.cfg.Audio.SampleRate,
		Threshold:      c.cfg.Trigger.Threshold,
		WindowDuration: secondsToDuration(c.cfg.Trigger.WindowSeconds),
		Cooldown:       secondsToDuration(c.cfg.Trigger.CooldownSeconds),
		QueueSize:      c.cfg.Trigger.QueueSize,
		PollTimeout:    c.cfg.Audio.PollTimeout.Duration,
		JoinTimeout:    c.cfg.Audio.JoinTimeout.Duration,
	}, scorer)

	source := c.newSource(audio.Config{
		SampleRate:  c.cfg.Audio.SampleRate,
		Channels:    c.cfg.Audio.Channels,
		FrameSize:   c.cfg.Audio.FrameSize,
		DeviceName:  c.cfg.Audio.DeviceName,
		QueueSize:   c.cfg.Audio.QueueSize,
		PollTimeout: c.cfg.Audio.PollTimeout.Duration,
		JoinTimeout: c.cfg.Audio.JoinTimeout.Duration,
	})

	ctx, cancel := context.WithCancel(context.Background())

	c.source = source
	c.gate = gate
	c.cancel = cancel

	// The feed closure captures the gate directly so the capture worker
	// never takes the coordinator mutex on the hot path.
	c.feedFn = func(mono audio.MonoFrame, _ audio.Frame) {
		gate.ProcessAudio(mono)
	}
	source.Subscribe(c.feedFn)
	if c.audioTap != nil {
		source.Subscribe(c.audioTap)
	}

	if err := gate.Start(c.onDetect(ctx)); err != nil {
		c.teardownLocked()
		c.sm.Transition(StateError)
		return fmt.Errorf("failed to start trigger gate: %w", err)
	}

	if err := source.Start(); err != nil {
		c.teardownLocked()
		c.sm.Transition(StateError)
		return fmt.Errorf("failed to start audio capture: %w", err)
	}

	c.running = true
	c.log.Info("assistant started",
		"scorer", c.cfg.Trigger.Scorer,
		"threshold", c.cfg.Trigger.Threshold)

	return nil
}

// Stop unwinds the pipeline: the capture device first so no callback can
// fire into a stopped detector, then the gate, then any in-flight
// workflows. The assistant always returns to Idle.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		c.log.Warn("assistant is not running")
		return
	}
	c.running = false
	c.teardownLocked()
	c.mu.Unlock()

	// Bounded wait for workflow goroutines cancelled above
	done := make(chan struct{})
	go func() {
		c.wf.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.cfg.Audio.JoinTimeout.Duration):
		c.log.Warn("interaction workflow did not exit within join timeout")
	}

	c.sm.Reset()
	c.log.Info("assistant stopped")
}

// teardownLocked cancels in-flight workflows and stops and clears the
// owned components, device before detector. Caller holds c.mu.
func (c *Coordinator) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.source != nil {
		if c.feedFn != nil {
			c.source.Unsubscribe(c.feedFn)
		}
		if c.audioTap != nil {
			c.source.Unsubscribe(c.audioTap)
		}
		if err := c.source.Stop(); err != nil {
			c.log.Warn("failed to stop audio capture", "error", err)
		}
		if err := c.source.Close(); err != nil {
			c.log.Warn("failed to close audio capture", "error", err)
		}
		c.source = nil
	}
	if c.gate != nil {
		c.gate.Stop()
		c.gate = nil
	}
	c.feedFn = nil
}

// onDetect returns the detection callback for one pipeline run. The
// callback transitions Idle to Listening and hands the interaction to the
// workflow on its own goroutine, so the detection worker is never blocked
// by downstream latency.
func (c *Coordinator) onDetect(ctx context.Context) trigger.DetectFunc {
	return func(ev trigger.Event) {
		c.log.Info("wake trigger", "confidence", ev.Confidence, "event", ev.ID)

		if !c.sm.Transition(StateListening) {
			// Mid-interaction detection; the gate's cooldown already
			// throttled it, nothing to do here
			return
		}

		c.wf.Add(1)
		go func() {
			defer c.wf.Done()
			c.workflow.Run(ctx, ev, c)
		}()
	}
}

// ProcessingStarted implements Progress
func (c *Coordinator) ProcessingStarted() {
	c.sm.Transition(StateProcessing)
}

// ResponseReady implements Progress
func (c *Coordinator) ResponseReady() {
	c.sm.Transition(StateResponding)
}

// ResponseDelivered implements Progress
func (c *Coordinator) ResponseDelivered() {
	c.sm.Transition(StateIdle)
}

// State returns the current assistant state
func (c *Coordinator) State() State {
	return c.sm.Current()
}

// History returns the recorded state transitions
func (c *Coordinator) History() []Transition {
	return c.sm.History()
}

// AddStateListener registers a state change listener
func (c *Coordinator) AddStateListener(fn StateChangeListener) {
	c.sm.AddListener(fn)
}

// RemoveStateListener removes a state change listener
func (c *Coordinator) RemoveStateListener(fn StateChangeListener) {
	c.sm.RemoveListener(fn)
}

// IsRunning returns whether the pipeline is running
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
