package assistant

import (
	"testing"
)

func TestStateMachine_InitialState(t *testing.T) {
	sm := NewStateMachine()
	if got := sm.Current(); got != StateIdle {
		t.Errorf("Current() = %v, want idle", got)
	}
	if got := len(sm.History()); got != 0 {
		t.Errorf("History() length = %d, want 0", got)
	}
}

func TestStateMachine_ValidCycle(t *testing.T) {
	sm := NewStateMachine()

	steps := []State{StateListening, StateProcessing, StateResponding, StateIdle}
	for _, s := range steps {
		if !sm.Transition(s) {
			t.Fatalf("Transition(%v) rejected", s)
		}
	}

	if got := sm.Current(); got != StateIdle {
		t.Errorf("Current() = %v, want idle", got)
	}

	hist := sm.History()
	if len(hist) != 4 {
		t.Fatalf("History() length = %d, want 4", len(hist))
	}
	if hist[0].From != StateIdle || hist[0].To != StateListening {
		t.Errorf("first transition = %v->%v, want idle->listening", hist[0].From, hist[0].To)
	}
	if hist[3].From != StateResponding || hist[3].To != StateIdle {
		t.Errorf("last transition = %v->%v, want responding->idle", hist[3].From, hist[3].To)
	}
}

func TestStateMachine_RejectsInvalidTransition(t *testing.T) {
	sm := NewStateMachine()

	if sm.Transition(StateResponding) {
		t.Error("Transition(responding) from idle was accepted")
	}
	if got := sm.Current(); got != StateIdle {
		t.Errorf("Current() = %v after rejected transition, want idle", got)
	}
	if got := len(sm.History()); got != 0 {
		t.Errorf("History() length = %d after rejected transition, want 0", got)
	}
}

func TestStateMachine_ErrorReachableFromEverywhere(t *testing.T) {
	for _, from := range []State{StateIdle, StateListening, StateProcessing, StateResponding} {
		if !isValidTransition(from, StateError) {
			t.Errorf("error not reachable from %v", from)
		}
	}
	// Idle is the only way out of error
	if isValidTransition(StateError, StateListening) {
		t.Error("error->listening accepted")
	}
	if !isValidTransition(StateError, StateIdle) {
		t.Error("error->idle rejected")
	}
}

func TestStateMachine_ListenersInRegistrationOrder(t *testing.T) {
	sm := NewStateMachine()

	var order []string
	var pairs [][2]State

	sm.AddListener(func(oldState, newState State) {
		order = append(order, "first")
		pairs = append(pairs, [2]State{oldState, newState})
	})
	sm.AddListener(func(oldState, newState State) {
		order = append(order, "second")
	})

	sm.Transition(StateListening)

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v, want [first second]", order)
	}
	if len(pairs) != 1 || pairs[0] != [2]State{StateIdle, StateListening} {
		t.Errorf("pairs = %v, want [[idle listening]]", pairs)
	}
}

func TestStateMachine_FailingListenerIsIsolated(t *testing.T) {
	sm := NewStateMachine()

	calls := 0
	sm.AddListener(func(oldState, newState State) {
		panic("listener failure")
	})
	sm.AddListener(func(oldState, newState State) {
		calls++
	})

	if !sm.Transition(StateListening) {
		t.Fatal("Transition rejected")
	}

	if calls != 1 {
		t.Errorf("later listener calls = %d, want 1", calls)
	}
	if got := sm.Current(); got != StateListening {
		t.Errorf("Current() = %v, want listening (transition not corrupted)", got)
	}
	hist := sm.History()
	if len(hist) != 1 || hist[0].To != StateListening {
		t.Errorf("History() = %v, want one idle->listening record", hist)
	}
}

func TestStateMachine_DuplicateListenerIsNoop(t *testing.T) {
	sm := NewStateMachine()

	calls := 0
	fn := func(oldState, newState State) { calls++ }

	sm.AddListener(fn)
	sm.AddListener(fn)
	sm.Transition(StateListening)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStateMachine_RemoveListener(t *testing.T) {
	sm := NewStateMachine()

	calls := 0
	fn := func(oldState, newState State) { calls++ }

	sm.AddListener(fn)
	sm.RemoveListener(fn)
	sm.Transition(StateListening)

	if calls != 0 {
		t.Errorf("calls = %d after removal, want 0", calls)
	}
}

func TestStateMachine_Reset(t *testing.T) {
	sm := NewStateMachine()
	sm.Transition(StateListening)
	sm.Transition(StateProcessing)

	var got [2]State
	sm.AddListener(func(oldState, newState State) {
		got = [2]State{oldState, newState}
	})

	sm.Reset()

	if sm.Current() != StateIdle {
		t.Errorf("Current() = %v after Reset, want idle", sm.Current())
	}
	if got != [2]State{StateProcessing, StateIdle} {
		t.Errorf("listener saw %v, want [processing idle]", got)
	}

	// Reset from idle does not notify again
	got = [2]State{}
	sm.Reset()
	if got != ([2]State{}) {
		t.Errorf("listener notified on idle Reset: %v", got)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateListening, "listening"},
		{StateProcessing, "processing"},
		{StateResponding, "responding"},
		{StateError, "error"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
