// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     audio
// Description: Microphone capture using PortAudio
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package audio

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/tvoss/hark/pkg/core/logging"
)

const (
	// DefaultSampleRate is the default capture sample rate (16kHz)
	DefaultSampleRate = 16000

	// DefaultFrameSize is the default number of samples per capture tick
	DefaultFrameSize = 1024

	// DefaultChannels is single-channel capture
	DefaultChannels = 1

	// DefaultQueueSize bounds the frame queue between the hardware
	// callback and the consumer worker
	DefaultQueueSize = 100

	// DefaultPollTimeout bounds each consumer dequeue wait
	DefaultPollTimeout = 100 * time.Millisecond

	// DefaultJoinTimeout bounds the worker join during Stop
	DefaultJoinTimeout = 2 * time.Second
)

// Config holds configuration for audio capture
type Config struct {
	SampleRate  int
	Channels    int
	FrameSize   int
	DeviceName  string // name hint for the input device (empty = default)
	QueueSize   int
	PollTimeout time.Duration
	JoinTimeout time.Duration
}

// DefaultConfig returns default capture configuration
func DefaultConfig() Config {
	return Config{
		SampleRate:  DefaultSampleRate,
		Channels:    DefaultChannels,
		FrameSize:   DefaultFrameSize,
		QueueSize:   DefaultQueueSize,
		PollTimeout: DefaultPollTimeout,
		JoinTimeout: DefaultJoinTimeout,
	}
}

// SubscriberFunc receives the mono mixdown and the raw multi-channel frame
// for one capture tick. Both are read-only after delivery.
type SubscriberFunc func(mono MonoFrame, raw Frame)

type subscriber struct {
	key uintptr
	fn  SubscriberFunc
}

// Source captures audio frames from a microphone, mixes them down to mono
// and fans them out to subscribers in registration order.
//
// The hardware callback never blocks: frames go through a bounded queue
// with drop-on-full, and a consumer worker does the mixdown and fan-out.
type Source struct {
	mu          sync.RWMutex
	cfg         Config
	log         *logging.Logger
	stream      *portaudio.Stream
	queue       chan Frame
	subs        []subscriber
	running     bool
	initialized bool
	stop        chan struct{}
	workerDone  chan struct{}
	frameIndex  uint64
	dropped     uint64
}

// NewSource creates a capture source. The audio device is not touched
// until Start.
func NewSource(cfg Config) *Source {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels < 1 {
		cfg.Channels = DefaultChannels
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}

	return &Source{
		cfg: cfg,
		log: logging.New("audio"),
	}
}

// Start opens the input device and begins producing frames. Calling Start
// on a running source is a no-op with a warning.
func (s *Source) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("audio capture already running")
		return nil
	}

	if !s.initialized {
		if err := portaudio.Initialize(); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
		s.initialized = true
	}

	device, err := selectInputDevice(s.cfg.DeviceName)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: s.cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(s.cfg.SampleRate),
		FramesPerBuffer: s.cfg.FrameSize,
	}

	stream, err := portaudio.OpenStream(params, s.onHardwareFrame)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to open audio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to start audio stream: %w", err)
	}

	s.stream = stream
	s.beginLocked()
	s.mu.Unlock()

	s.log.Info("audio capture started",
		"device", device.Name,
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels,
		"frame_size", s.cfg.FrameSize)

	return nil
}

// beginLocked arms the queue and launches the consumer worker.
// Caller holds s.mu.
func (s *Source) beginLocked() {
	s.queue = make(chan Frame, s.cfg.QueueSize)
	s.stop = make(chan struct{})
	s.workerDone = make(chan struct{})
	s.running = true
	go s.run(s.queue, s.stop, s.workerDone)
}

// onHardwareFrame runs in the PortAudio callback context. It copies the
// hardware buffers and enqueues the frame without ever blocking.
func (s *Source) onHardwareFrame(in [][]float32) {
	frame := Frame{
		Channels:   make([][]float32, len(in)),
		SampleRate: s.cfg.SampleRate,
		Index:      atomic.AddUint64(&s.frameIndex, 1) - 1,
	}
	for c := range in {
		ch := make([]float32, len(in[c]))
		copy(ch, in[c])
		frame.Channels[c] = ch
	}
	s.enqueue(frame)
}

// enqueue pushes a frame into the bounded queue, dropping the frame if the
// consumer has fallen behind.
func (s *Source) enqueue(f Frame) {
	s.mu.RLock()
	queue := s.queue
	running := s.running
	s.mu.RUnlock()

	if !running || queue == nil {
		return
	}

	select {
	case queue <- f:
	default:
		n := atomic.AddUint64(&s.dropped, 1)
		s.log.Warn("capture queue full, dropping frame", "index", f.Index, "dropped_total", n)
	}
}

// run is the consumer worker: dequeue with a bounded wait, mix down,
// fan out to subscribers in registration order.
func (s *Source) run(queue chan Frame, stop, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-stop:
			return
		case frame := <-queue:
			s.dispatch(frame)
		case <-time.After(s.cfg.PollTimeout):
			// Idle tick so shutdown is observed within one poll interval
		}
	}
}

func (s *Source) dispatch(raw Frame) {
	mono := Mixdown(raw)

	s.mu.RLock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		s.deliver(sub, mono, raw)
	}
}

// deliver invokes one subscriber, containing a panic so the remaining
// subscribers and the worker loop keep going.
func (s *Source) deliver(sub subscriber, mono MonoFrame, raw Frame) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("subscriber failed", "frame", raw.Index, "error", r)
		}
	}()
	sub.fn(mono, raw)
}

// Stop signals the capture worker to exit and joins it with a bounded
// timeout. The source always ends up stopped, even if the join times out.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.log.Warn("audio capture is not running")
		return nil
	}
	s.running = false
	close(s.stop)
	done := s.workerDone
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(s.cfg.JoinTimeout):
		s.log.Warn("capture worker did not exit within join timeout", "timeout", s.cfg.JoinTimeout)
	}

	if stream != nil {
		if err := stream.Stop(); err != nil {
			s.log.Warn("failed to stop audio stream", "error", err)
		}
		if err := stream.Close(); err != nil {
			s.log.Warn("failed to close audio stream", "error", err)
		}
	}

	s.log.Info("audio capture stopped", "dropped_frames", atomic.LoadUint64(&s.dropped))
	return nil
}

// Close stops capture and releases the PortAudio session
func (s *Source) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		s.initialized = false
	}
	return nil
}

// Subscribe registers a frame callback. Subscribers are notified in
// registration order; registering the same function twice is a no-op.
func (s *Source) Subscribe(fn SubscriberFunc) {
	if fn == nil {
		return
	}
	key := reflect.ValueOf(fn).Pointer()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.key == key {
			return
		}
	}
	s.subs = append(s.subs, subscriber{key: key, fn: fn})
}

// Unsubscribe removes a previously registered callback; unknown callbacks
// are ignored.
func (s *Source) Unsubscribe(fn SubscriberFunc) {
	if fn == nil {
		return
	}
	key := reflect.ValueOf(fn).Pointer()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.key == key {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// IsRunning returns whether capture is currently running
func (s *Source) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Dropped returns the number of frames dropped at the queue
func (s *Source) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// SampleRate returns the configured sample rate
func (s *Source) SampleRate() int {
	return s.cfg.SampleRate
}

// FrameSize returns the configured samples per capture tick
func (s *Source) FrameSize() int {
	return s.cfg.FrameSize
}
