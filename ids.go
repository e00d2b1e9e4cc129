package botix

import "sync/atomic"

// StateID identifies a MovingState.
type StateID uint64

// TransitionID identifies a MovingTransition.
type TransitionID uint64

// IDAllocator hands out monotonically increasing state and transition ids.
// It is safe for concurrent use. Every id drawn from one allocator is unique
// for the allocator's lifetime; graphs that share states must share the
// allocator that built them.
type IDAllocator struct {
	states      atomic.Uint64
	transitions atomic.Uint64
}

// NewIDAllocator returns an allocator whose first ids are 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// NextStateID reserves the next state id.
func (a *IDAllocator) NextStateID() StateID {
	return StateID(a.states.Add(1) - 1)
}

// NextTransitionID reserves the next transition id.
func (a *IDAllocator) NextTransitionID() TransitionID {
	return TransitionID(a.transitions.Add(1) - 1)
}
