package botix

import (
	"fmt"
	"sort"
	"time"
)

// DefaultCheckInterval is the breaker polling cadence of a new transition.
const DefaultCheckInterval = 10 * time.Millisecond

// MovingTransition is a timed edge from one or more source states to a set of
// labelled destinations. With more than one destination the label is picked
// at run time by a BranchResolver.
type MovingTransition struct {
	id            TransitionID
	duration      time.Duration
	breaker       Predicate
	checkInterval time.Duration
	from          []*MovingState
	to            map[string]*MovingState
}

// NewTransition starts a transition lasting duration. A negative duration is
// rejected with ErrInvalidDuration and no id is consumed.
func NewTransition(ids *IDAllocator, duration time.Duration) (*MovingTransition, error) {
	if duration < 0 {
		return nil, fmt.Errorf("new transition (%s): %w", duration, ErrInvalidDuration)
	}
	return &MovingTransition{
		id:            ids.NextTransitionID(),
		duration:      duration,
		checkInterval: DefaultCheckInterval,
		to:            make(map[string]*MovingState),
	}, nil
}

// WithBreaker sets the predicate polled while the transition waits.
func (t *MovingTransition) WithBreaker(p Predicate) *MovingTransition {
	t.breaker = p
	return t
}

// WithCheckInterval overrides the breaker polling cadence.
func (t *MovingTransition) WithCheckInterval(d time.Duration) *MovingTransition {
	t.checkInterval = d
	return t
}

// WithFromState adds a source state. Adding the same state twice is a no-op.
func (t *MovingTransition) WithFromState(s *MovingState) *MovingTransition {
	for _, have := range t.from {
		if have.id == s.id {
			return t
		}
	}
	t.from = append(t.from, s)
	return t
}

// WithToState maps label to a destination, replacing any previous mapping.
func (t *MovingTransition) WithToState(label string, s *MovingState) *MovingTransition {
	t.to[label] = s
	return t
}

// ID returns the transition identifier.
func (t *MovingTransition) ID() TransitionID { return t.id }

// Duration returns how long the transition waits.
func (t *MovingTransition) Duration() time.Duration { return t.duration }

// Breaker returns the attached predicate, or nil.
func (t *MovingTransition) Breaker() Predicate { return t.breaker }

// CheckInterval returns the breaker polling cadence.
func (t *MovingTransition) CheckInterval() time.Duration { return t.checkInterval }

// FromStates returns the source states in insertion order.
func (t *MovingTransition) FromStates() []*MovingState {
	return append([]*MovingState(nil), t.from...)
}

// ToStates returns a copy of the label to destination mapping.
func (t *MovingTransition) ToStates() map[string]*MovingState {
	out := make(map[string]*MovingState, len(t.to))
	for k, v := range t.to {
		out[k] = v
	}
	return out
}

// ToState looks up the destination for label.
func (t *MovingTransition) ToState(label string) (*MovingState, bool) {
	s, ok := t.to[label]
	return s, ok
}

// Labels returns the destination labels sorted.
func (t *MovingTransition) Labels() []string {
	labels := make([]string, 0, len(t.to))
	for k := range t.to {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return labels
}

// HasSource reports whether id is one of the source states.
func (t *MovingTransition) HasSource(id StateID) bool {
	for _, s := range t.from {
		if s.id == id {
			return true
		}
	}
	return false
}

func (t *MovingTransition) String() string {
	return fmt.Sprintf("Transition%d(%.3fs)", t.id, t.duration.Seconds())
}
