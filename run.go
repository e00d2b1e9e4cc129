package botix

import (
	"fmt"
	"time"
)

// Observer is notified as a run progresses. Callbacks run synchronously on
// the run's goroutine and must not block.
type Observer interface {
	StateEntered(s *MovingState)
	TransitionFinished(t *MovingTransition, elapsed time.Duration, tripped bool)
}

// Report summarizes a finished run.
type Report struct {
	// Visited lists the states entered, in order.
	Visited []StateID
	// Taken lists the transitions completed, in order.
	Taken []TransitionID
	// Final is the last state entered.
	Final StateID
	// Stopped is set when the run-level stop predicate ended the run.
	Stopped bool
}

// Run sequences the controller from the start state until an end state.
func (b *Botix) Run() (Report, error) {
	return b.RunUntil(nil)
}

// RunUntil is Run with a run-level stop predicate. stop is polled alongside
// every transition breaker; when it trips the run ends after the current
// state's exit hooks, without moving on.
func (b *Botix) RunUntil(stop Predicate) (Report, error) {
	var report Report
	if err := b.Validate(); err != nil {
		return report, err
	}
	outgoing, err := b.outgoing()
	if err != nil {
		return report, err
	}

	current := b.startState()
	for {
		if err := b.enter(current); err != nil {
			return report, err
		}
		report.Visited = append(report.Visited, current.id)
		report.Final = current.id

		t, ok := outgoing[current.id]
		if !ok {
			b.log.Info().Stringer("state", current).Msg("end state reached")
			return report, nil
		}

		stopped, tripped, elapsed := b.wait(t, stop)
		runHooks(current.afterExiting)
		for _, o := range b.observers {
			o.TransitionFinished(t, elapsed, tripped)
		}
		if stopped {
			report.Stopped = true
			b.log.Info().Stringer("state", current).Msg("run stopped")
			return report, nil
		}
		report.Taken = append(report.Taken, t.id)

		next, err := b.destination(t)
		if err != nil {
			return report, err
		}
		if next == nil {
			b.log.Warn().Stringer("transition", t).Msg("transition has no destination, ending run")
			return report, nil
		}
		current = next
	}
}

func (b *Botix) enter(s *MovingState) error {
	if b.controller == nil {
		b.log.Warn().Stringer("state", s).Msg("no controller, speed update skipped")
	} else if err := b.controller.SetMotorsSpeed(s.pattern.Floats()); err != nil {
		return fmt.Errorf("enter %s: %w", s, err)
	}
	for _, o := range b.observers {
		o.StateEntered(s)
	}
	runHooks(s.beforeEntering)
	return nil
}

func (b *Botix) wait(t *MovingTransition, stop Predicate) (stopped, tripped bool, elapsed time.Duration) {
	breaker := t.breaker
	if breaker == nil {
		b.log.Debug().Stringer("transition", t).Msg("no breaker attached")
	}
	var combined Predicate
	switch {
	case stop == nil:
		combined = breaker
	case breaker == nil:
		combined = PredicateFunc(func() bool {
			stopped = stop.Call()
			return stopped
		})
	default:
		combined = PredicateFunc(func() bool {
			if stop.Call() {
				stopped = true
				return true
			}
			return breaker.Call()
		})
	}

	start := time.Now()
	if combined == nil {
		b.waiter.WithBreaker(t.duration, t.checkInterval, nil)
	} else {
		tripped = b.waiter.WithBreaker(t.duration, t.checkInterval, combined) && !stopped
	}
	return stopped, tripped, time.Since(start)
}

func (b *Botix) destination(t *MovingTransition) (*MovingState, error) {
	switch len(t.to) {
	case 0:
		return nil, nil
	case 1:
		for _, s := range t.to {
			return s, nil
		}
	}
	if b.resolver == nil {
		return nil, fmt.Errorf("%s with labels %v: %w", t, t.Labels(), ErrNoResolver)
	}
	label, err := b.resolver.Resolve(t)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", t, err)
	}
	s, ok := t.to[label]
	if !ok {
		return nil, fmt.Errorf("%s label %q: %w", t, label, ErrUnknownBranch)
	}
	b.log.Debug().Stringer("transition", t).Str("label", label).Msg("branch resolved")
	return s, nil
}

// outgoing indexes the pool by source state.
func (b *Botix) outgoing() (map[StateID]*MovingTransition, error) {
	idx := make(map[StateID]*MovingTransition)
	for _, t := range b.transitions {
		for _, s := range t.from {
			if prev, ok := idx[s.id]; ok && prev.id != t.id {
				return nil, fmt.Errorf("%s in %s and %s: %w", s, prev, t, ErrAmbiguousTransition)
			}
			idx[s.id] = t
		}
	}
	return idx, nil
}

func (b *Botix) startState() *MovingState {
	start := b.StartStates()[0]
	for _, t := range b.transitions {
		for _, s := range t.from {
			if s.id == start {
				return s
			}
		}
	}
	return nil
}
