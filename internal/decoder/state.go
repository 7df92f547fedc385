package decoder

import "sync/atomic"

// State is the lifecycle state of a Coordinator.
//
//	Uninitialized -> Initializing       Init admitted
//	Initializing  -> Initialized        engine ready
//	Initializing  -> Uninitialized      init failed
//	Initialized   -> Processing         worker picked up an operation
//	Processing    -> Initialized        operation finished
//	non-terminal  -> Releasing          Release
//	Releasing     -> Released           teardown done
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
	StateProcessing
	StateReleasing
	StateReleased
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateInitializing:  "initializing",
	StateInitialized:   "initialized",
	StateProcessing:    "processing",
	StateReleasing:     "releasing",
	StateReleased:      "released",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// shuttingDown reports whether s is Releasing or Released. Every outcome
// produced in these states is a cancellation.
func (s State) shuttingDown() bool { return s == StateReleasing || s == StateReleased }

var transitions = map[State][]State{
	StateUninitialized: {StateInitializing, StateReleasing},
	StateInitializing:  {StateInitialized, StateUninitialized, StateReleasing},
	StateInitialized:   {StateProcessing, StateReleasing},
	StateProcessing:    {StateInitialized, StateReleasing},
	StateReleasing:     {StateReleased},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateCell holds a State and only moves it along legal edges.
type stateCell struct{ v atomic.Int32 }

func (c *stateCell) load() State { return State(c.v.Load()) }

// swap moves the cell from -> to. It refuses edges missing from the
// transition table and fails if the current state is not from.
func (c *stateCell) swap(from, to State) bool {
	if !CanTransition(from, to) {
		return false
	}
	return c.v.CompareAndSwap(int32(from), int32(to))
}

// beginRelease moves any non-terminal state to Releasing and returns the
// state it replaced. ok is false when a release already started.
func (c *stateCell) beginRelease() (prev State, ok bool) {
	for {
		cur := c.load()
		if cur.shuttingDown() {
			return cur, false
		}
		if c.swap(cur, StateReleasing) {
			return cur, true
		}
	}
}
