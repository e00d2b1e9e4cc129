// Package builder offers shortcuts for the graph shapes that come up most:
// linear chains of states and single-source branch points.
package builder

import (
	"fmt"
	"time"

	"github.com/comalice/botix" // the core package
)

// DefaultLabel is the destination label used by Chain and Link.
const DefaultLabel = "next"

// TransOption configures a transition built by this package.
type TransOption func(*botix.MovingTransition)

// WithBreaker attaches a breaker predicate.
func WithBreaker(p botix.Predicate) TransOption {
	return func(t *botix.MovingTransition) { t.WithBreaker(p) }
}

// WithBreakerFunc attaches a plain function as breaker.
func WithBreakerFunc(f func() bool) TransOption {
	return WithBreaker(botix.PredicateFunc(f))
}

// WithCheckInterval overrides the polling cadence.
func WithCheckInterval(d time.Duration) TransOption {
	return func(t *botix.MovingTransition) { t.WithCheckInterval(d) }
}

// Link builds a single transition from one state to another.
func Link(ids *botix.IDAllocator, from, to *botix.MovingState, d time.Duration, opts ...TransOption) (*botix.MovingTransition, error) {
	t, err := botix.NewTransition(ids, d)
	if err != nil {
		return nil, err
	}
	t.WithFromState(from).WithToState(DefaultLabel, to)
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Chain links states in order; durations[i] is the wait from states[i] to
// states[i+1]. Options apply to every transition.
func Chain(ids *botix.IDAllocator, states []*botix.MovingState, durations []time.Duration, opts ...TransOption) ([]*botix.MovingTransition, error) {
	if len(states) < 2 {
		return nil, fmt.Errorf("chain needs at least two states, got %d", len(states))
	}
	if len(durations) != len(states)-1 {
		return nil, fmt.Errorf("chain of %d states needs %d durations, got %d", len(states), len(states)-1, len(durations))
	}
	out := make([]*botix.MovingTransition, 0, len(durations))
	for i, d := range durations {
		t, err := Link(ids, states[i], states[i+1], d, opts...)
		if err != nil {
			return nil, fmt.Errorf("chain link %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Branch builds a transition from one state to several labelled destinations.
func Branch(ids *botix.IDAllocator, from *botix.MovingState, d time.Duration, to map[string]*botix.MovingState, opts ...TransOption) (*botix.MovingTransition, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("branch from %s has no destinations", from)
	}
	t, err := botix.NewTransition(ids, d)
	if err != nil {
		return nil, err
	}
	t.WithFromState(from)
	for label, s := range to {
		t.WithToState(label, s)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Merge builds a fan-in transition from several sources into one destination.
func Merge(ids *botix.IDAllocator, from []*botix.MovingState, to *botix.MovingState, d time.Duration, opts ...TransOption) (*botix.MovingTransition, error) {
	if len(from) == 0 {
		return nil, fmt.Errorf("merge into %s has no sources", to)
	}
	t, err := botix.NewTransition(ids, d)
	if err != nil {
		return nil, err
	}
	for _, s := range from {
		t.WithFromState(s)
	}
	t.WithToState(DefaultLabel, to)
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}
