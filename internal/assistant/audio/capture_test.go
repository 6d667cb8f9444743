package audio

import (
	"sync"
	"testing"
	"time"
)

// startWorker arms the queue and consumer loop without touching any
// audio hardware.
func startWorker(s *Source) {
	s.mu.Lock()
	s.beginLocked()
	s.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.PollTimeout = 10 * time.Millisecond
	cfg.JoinTimeout = 500 * time.Millisecond
	return cfg
}

func monoFrame(samples ...float32) Frame {
	return Frame{Channels: [][]float32{samples}, SampleRate: DefaultSampleRate}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestEnqueue_DropsNewestWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 2
	s := NewSource(cfg)

	// Arm the queue without a consumer so it fills up
	s.mu.Lock()
	s.queue = make(chan Frame, cfg.QueueSize)
	s.running = true
	s.mu.Unlock()

	s.enqueue(Frame{Index: 0})
	s.enqueue(Frame{Index: 1})
	s.enqueue(Frame{Index: 2}) // dropped

	if got := s.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
	if got := len(s.queue); got != 2 {
		t.Fatalf("queue length = %d, want 2", got)
	}

	// The frames that survived are the oldest two, in order
	first := <-s.queue
	second := <-s.queue
	if first.Index != 0 || second.Index != 1 {
		t.Errorf("queued frames = %d, %d, want 0, 1", first.Index, second.Index)
	}
}

func TestEnqueue_NotRunningIsNoop(t *testing.T) {
	s := NewSource(testConfig())
	// Must not panic or block with no queue armed
	s.enqueue(Frame{Index: 0})
	if got := s.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}
}

func TestFanOut_RegistrationOrder(t *testing.T) {
	s := NewSource(testConfig())

	var mu sync.Mutex
	var order []string

	s.Subscribe(func(mono MonoFrame, raw Frame) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	s.Subscribe(func(mono MonoFrame, raw Frame) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})

	startWorker(s)
	defer s.Stop()

	s.enqueue(monoFrame(0.1, 0.2))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
}

func TestFanOut_SubscriberReceivesMixdown(t *testing.T) {
	s := NewSource(testConfig())

	var mu sync.Mutex
	var got MonoFrame
	var gotRaw Frame
	received := false

	s.Subscribe(func(mono MonoFrame, raw Frame) {
		mu.Lock()
		got = mono
		gotRaw = raw
		received = true
		mu.Unlock()
	})

	startWorker(s)
	defer s.Stop()

	s.enqueue(Frame{
		Channels:   [][]float32{{0.2, 0.4}, {0.2, 0.4}},
		SampleRate: DefaultSampleRate,
		Index:      3,
	})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return received
	})

	mu.Lock()
	defer mu.Unlock()
	if gotRaw.Index != 3 {
		t.Errorf("raw index = %d, want 3", gotRaw.Index)
	}
	if len(got.Samples) != 2 {
		t.Fatalf("mono length = %d, want 2", len(got.Samples))
	}
	// Averages {0.2, 0.4} normalize to {0.5, 1.0}
	if got.Samples[0] != 0.5 || got.Samples[1] != 1.0 {
		t.Errorf("mono samples = %v, want [0.5 1.0]", got.Samples)
	}
}

func TestFanOut_PanickingSubscriberIsIsolated(t *testing.T) {
	s := NewSource(testConfig())

	var mu sync.Mutex
	count := 0

	s.Subscribe(func(mono MonoFrame, raw Frame) {
		panic("subscriber blew up")
	})
	s.Subscribe(func(mono MonoFrame, raw Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	startWorker(s)
	defer s.Stop()

	s.enqueue(monoFrame(0.1))
	s.enqueue(monoFrame(0.2))

	// The second subscriber sees every frame and the worker survives
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 2
	})
}

func TestSubscribe_DuplicateIsNoop(t *testing.T) {
	s := NewSource(testConfig())

	var mu sync.Mutex
	count := 0
	fn := func(mono MonoFrame, raw Frame) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	s.Subscribe(fn)
	s.Subscribe(fn)

	if got := len(s.subs); got != 1 {
		t.Fatalf("subscriber count = %d, want 1", got)
	}

	startWorker(s)
	defer s.Stop()

	s.enqueue(monoFrame(0.5))

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	})

	// A short settle to catch a double delivery
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("delivery count = %d, want 1", count)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := NewSource(testConfig())

	fn := func(mono MonoFrame, raw Frame) {}
	other := func(mono MonoFrame, raw Frame) { _ = raw }

	s.Subscribe(fn)
	s.Subscribe(other)
	s.Unsubscribe(fn)

	if got := len(s.subs); got != 1 {
		t.Errorf("subscriber count = %d, want 1", got)
	}

	// Removing an unknown callback is a no-op
	s.Unsubscribe(fn)
	if got := len(s.subs); got != 1 {
		t.Errorf("subscriber count after double remove = %d, want 1", got)
	}
}

func TestStop_JoinsWorkerWithinTimeout(t *testing.T) {
	s := NewSource(testConfig())
	startWorker(s)

	start := time.Now()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > s.cfg.JoinTimeout+100*time.Millisecond {
		t.Errorf("Stop took %v, want under join timeout %v plus overhead", elapsed, s.cfg.JoinTimeout)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestStop_NotRunningIsNoop(t *testing.T) {
	s := NewSource(testConfig())
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on stopped source error: %v", err)
	}
}

func TestFramesDeliveredInCaptureOrder(t *testing.T) {
	s := NewSource(testConfig())

	var mu sync.Mutex
	var indices []uint64

	s.Subscribe(func(mono MonoFrame, raw Frame) {
		mu.Lock()
		indices = append(indices, raw.Index)
		mu.Unlock()
	})

	startWorker(s)
	defer s.Stop()

	const n = 20
	for i := uint64(0); i < n; i++ {
		s.enqueue(Frame{Channels: [][]float32{{0.1}}, SampleRate: DefaultSampleRate, Index: i})
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(indices) == n
	})

	mu.Lock()
	defer mu.Unlock()
	for i := uint64(0); i < n; i++ {
		if indices[i] != i {
			t.Fatalf("indices[%d] = %d, frames reordered", i, indices[i])
		}
	}
}
