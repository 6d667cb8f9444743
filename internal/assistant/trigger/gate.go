// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     trigger
// Description: Wake-word trigger gate with sliding window and cooldown
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package trigger

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tvoss/hark/internal/assistant/audio"
	"github.com/tvoss/hark/pkg/core/logging"
)

// State represents the gate's detection state
type State int

const (
	// StateInactive - the gate is not running
	StateInactive State = iota

	// StateListening - scoring incoming audio
	StateListening

	// StateDetected - trigger fired, cooling down
	StateDetected
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateListening:
		return "listening"
	case StateDetected:
		return "detected"
	default:
		return "unknown"
	}
}

// Event is one positive trigger detection
type Event struct {
	ID         uuid.UUID
	Confidence float64
	Timestamp  time.Time
}

// DetectFunc is invoked synchronously on the detection worker for every
// trigger event.
type DetectFunc func(Event)

const (
	// DefaultThreshold is the default trigger confidence threshold
	DefaultThreshold = 0.8

	// DefaultWindowDuration is the default sliding window span
	DefaultWindowDuration = 1500 * time.Millisecond

	// DefaultCooldown is the default hold after a detection during which
	// no further event can fire
	DefaultCooldown = time.Second
)

// Config holds configuration for the trigger gate
type Config struct {
	SampleRate     int
	Threshold      float64
	WindowDuration time.Duration
	Cooldown       time.Duration
	QueueSize      int
	PollTimeout    time.Duration
	JoinTimeout    time.Duration
}

// DefaultGateConfig returns default gate configuration
func DefaultGateConfig() Config {
	return Config{
		SampleRate:     audio.DefaultSampleRate,
		Threshold:      DefaultThreshold,
		WindowDuration: DefaultWindowDuration,
		Cooldown:       DefaultCooldown,
		QueueSize:      audio.DefaultQueueSize,
		PollTimeout:    audio.DefaultPollTimeout,
		JoinTimeout:    audio.DefaultJoinTimeout,
	}
}

// Gate maintains a sliding window of mono audio, scores it with a
// pluggable Scorer and raises a detection event when the confidence
// crosses the threshold outside the cooldown hold.
//
// The window keeps absorbing audio during cooldown; only scoring and
// event emission are suppressed until the hold elapses. The alternative
// of sleeping through the hold (and letting frames pile up in the queue)
// was rejected so a command spoken right after the wake word stays in
// the window and Stop remains responsive.
//
// The hold is measured in absorbed audio time, not wall time: it ends
// once Cooldown's worth of samples has passed through the window after a
// detection. For live capture the two clocks coincide; for faster than
// real-time feeds (offline replay) it suppresses exactly Cooldown seconds
// of audio instead of swallowing most of the stream.
type Gate struct {
	mu         sync.RWMutex
	cfg        Config
	scorer     Scorer
	log        *logging.Logger
	state      State
	threshold  float64
	queue      chan audio.MonoFrame
	running    bool
	stop       chan struct{}
	workerDone chan struct{}
	onDetect   DetectFunc
	processed  uint64
}

// NewGate creates a trigger gate using the given scorer
func NewGate(cfg Config, scorer Scorer) *Gate {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = DefaultWindowDuration
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = audio.DefaultQueueSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = audio.DefaultPollTimeout
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = audio.DefaultJoinTimeout
	}
	if scorer == nil {
		scorer = StubScorer{}
	}

	return &Gate{
		cfg:       cfg,
		scorer:    scorer,
		log:       logging.New("trigger"),
		state:     StateInactive,
		threshold: cfg.Threshold,
	}
}

// Start launches the detection worker and begins consuming frames fed via
// ProcessAudio. Calling Start while running is a no-op with a warning.
func (g *Gate) Start(onDetect DetectFunc) error {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		g.log.Warn("trigger gate already running")
		return nil
	}
	g.onDetect = onDetect
	g.queue = make(chan audio.MonoFrame, g.cfg.QueueSize)
	g.stop = make(chan struct{})
	g.workerDone = make(chan struct{})
	g.running = true
	g.state = StateListening
	queue, stop, done := g.queue, g.stop, g.workerDone
	g.mu.Unlock()

	go g.run(queue, stop, done)

	g.log.Info("trigger gate started",
		"threshold", g.Threshold(),
		"window", g.cfg.WindowDuration,
		"cooldown", g.cfg.Cooldown)

	return nil
}

// Stop signals the worker to exit and joins it with a bounded timeout.
// The gate always ends up Inactive, even if the join times out.
func (g *Gate) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		g.log.Warn("trigger gate is not running")
		return
	}
	g.running = false
	close(g.stop)
	done := g.workerDone
	g.mu.Unlock()

	select {
	case <-done:
	case <-time.After(g.cfg.JoinTimeout):
		g.log.Warn("detection worker did not exit within join timeout", "timeout", g.cfg.JoinTimeout)
	}

	g.mu.Lock()
	g.state = StateInactive
	g.mu.Unlock()

	g.log.Info("trigger gate stopped")
}

// ProcessAudio enqueues a mono frame for the detection worker. It never
// blocks: a full queue drops the frame with a warning, and a stopped gate
// ignores the frame entirely.
func (g *Gate) ProcessAudio(frame audio.MonoFrame) {
	g.mu.RLock()
	queue := g.queue
	running := g.running
	g.mu.RUnlock()

	if !running || queue == nil {
		return
	}

	select {
	case queue <- frame:
	default:
		g.log.Warn("detection queue full, dropping frame", "index", frame.Index)
	}
}

// SetSensitivity updates the trigger threshold. Out-of-range values are
// rejected with a logged error and leave the threshold unchanged.
func (g *Gate) SetSensitivity(threshold float64) {
	if threshold < 0 || threshold > 1 {
		g.log.Error("invalid threshold value", "threshold", threshold)
		return
	}

	g.mu.Lock()
	g.threshold = threshold
	g.mu.Unlock()
	g.log.Info("detection threshold updated", "threshold", threshold)
}

// Threshold returns the current trigger threshold
func (g *Gate) Threshold() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.threshold
}

// State returns the current detection state
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Processed returns the number of frames the detection worker has
// consumed from the queue, cooldown-suppressed frames included. Feeders
// that enqueue a known number of frames can poll it to drain the gate
// before stopping.
func (g *Gate) Processed() uint64 {
	return atomic.LoadUint64(&g.processed)
}

// IsRunning returns whether the detection worker is running
func (g *Gate) IsRunning() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.running
}

func (g *Gate) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// run is the detection worker. It owns the sliding window and the
// cooldown hold; both are touched by no other goroutine.
func (g *Gate) run(queue chan audio.MonoFrame, stop, done chan struct{}) {
	defer close(done)

	window := NewWindow(int(float64(g.cfg.SampleRate) * g.cfg.WindowDuration.Seconds()))
	cooldownSamples := int(float64(g.cfg.SampleRate) * g.cfg.Cooldown.Seconds())
	holdRemaining := 0

	for {
		select {
		case <-stop:
			return

		case frame := <-queue:
			window.Push(frame.Samples)
			atomic.AddUint64(&g.processed, 1)

			if holdRemaining > 0 {
				holdRemaining -= len(frame.Samples)
				if holdRemaining > 0 {
					// Still holding: the window absorbed the audio, no scoring
					continue
				}
				holdRemaining = 0
				g.setState(StateListening)
			}

			confidence := g.score(window.Samples())
			if confidence > g.Threshold() {
				ev := Event{
					ID:         uuid.New(),
					Confidence: confidence,
					Timestamp:  time.Now(),
				}
				g.setState(StateDetected)
				g.log.Info("trigger detected", "confidence", confidence, "event", ev.ID)
				g.emit(ev)
				holdRemaining = cooldownSamples
			}

		case <-time.After(g.cfg.PollTimeout):
			// Idle tick so shutdown is observed within one poll interval
		}
	}
}

// score runs the scorer over the full window, treating any failure as
// zero confidence so the worker never dies on a bad model.
func (g *Gate) score(window []float32) (confidence float64) {
	defer func() {
		if r := recover(); r != nil {
			g.log.Error("scorer panicked", "error", r)
			confidence = 0
		}
	}()

	confidence, err := g.scorer.Score(window, g.cfg.SampleRate)
	if err != nil {
		g.log.Error("scorer failed", "error", err)
		return 0
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// emit delivers the event to the detection callback, containing a panic
// so the worker loop keeps going.
func (g *Gate) emit(ev Event) {
	g.mu.RLock()
	onDetect := g.onDetect
	g.mu.RUnlock()

	if onDetect == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.log.Error("detection callback failed", "event", ev.ID, "error", r)
		}
	}()
	onDetect(ev)
}
