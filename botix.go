// Package botix models robot locomotion as a directed graph of wheel-speed
// states joined by timed, interruptible transitions, and sequences a motor
// controller through that graph.
//
// States and transitions are built with fluent builders and collected in a
// Botix registry:
//
//	ids := botix.NewIDAllocator()
//	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
//	forward, stop := f.Straight(200), f.Halt()
//	t, _ := botix.NewTransition(ids, 2*time.Second)
//	t.WithFromState(forward).WithToState("next", stop)
//
//	b := botix.New(controller)
//	b.AddTransition(t)
//	if err := b.Validate(); err != nil { ... }
//	report, err := b.Run()
//
// A registry is not safe for concurrent use. Wrap it (see package realtime)
// when more than one goroutine needs it.
package botix

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comalice/botix/delay"
)

// Controller accepts one speed per motor.
type Controller interface {
	SetMotorsSpeed(speeds []float64) error
}

// BranchResolver picks the destination label of a transition with more than
// one destination.
type BranchResolver interface {
	Resolve(t *MovingTransition) (string, error)
}

// ResolverFunc adapts a plain function to BranchResolver.
type ResolverFunc func(t *MovingTransition) (string, error)

func (f ResolverFunc) Resolve(t *MovingTransition) (string, error) { return f(t) }

// Botix owns a pool of transitions and drives a Controller through them.
type Botix struct {
	controller  Controller
	resolver    BranchResolver
	observers   []Observer
	waiter      *delay.Waiter
	log         zerolog.Logger
	transitions []*MovingTransition
}

// Option configures a Botix.
type Option func(*Botix)

// WithLogger sets the registry logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Botix) { b.log = l }
}

// WithResolver sets the collaborator that picks branch labels.
func WithResolver(r BranchResolver) Option {
	return func(b *Botix) { b.resolver = r }
}

// WithObserver registers o for run notifications.
func WithObserver(o Observer) Option {
	return func(b *Botix) {
		if o != nil {
			b.observers = append(b.observers, o)
		}
	}
}

// WithWaiter replaces the waiter used for transition delays.
func WithWaiter(w *delay.Waiter) Option {
	return func(b *Botix) { b.waiter = w }
}

// New creates a registry driving controller. A nil controller is allowed;
// runs then only sequence hooks and waits, logging every skipped speed update.
func New(controller Controller, opts ...Option) *Botix {
	b := &Botix{
		controller: controller,
		log:        log.Logger.With().Str("component", "botix").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.waiter == nil {
		b.waiter = delay.New(delay.WithLogger(b.log))
	}
	return b
}

// Controller returns the driven controller.
func (b *Botix) Controller() Controller { return b.controller }

// AddTransition appends t to the pool.
func (b *Botix) AddTransition(t *MovingTransition) *Botix {
	b.transitions = append(b.transitions, t)
	return b
}

// RemoveTransition drops every pooled transition with the given id.
func (b *Botix) RemoveTransition(id TransitionID) *Botix {
	kept := b.transitions[:0]
	for _, t := range b.transitions {
		if t.id != id {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(b.transitions); i++ {
		b.transitions[i] = nil
	}
	b.transitions = kept
	return b
}

// ExtendTransitions appends ts to the pool in order.
func (b *Botix) ExtendTransitions(ts ...*MovingTransition) *Botix {
	b.transitions = append(b.transitions, ts...)
	return b
}

// ClearTransitions empties the pool.
func (b *Botix) ClearTransitions() *Botix {
	b.transitions = nil
	return b
}

// Transitions returns the pool in insertion order.
func (b *Botix) Transitions() []*MovingTransition {
	return append([]*MovingTransition(nil), b.transitions...)
}

// States returns every state referenced by the pool, sorted by id.
func (b *Botix) States() []*MovingState {
	seen := make(map[StateID]*MovingState)
	for _, t := range b.transitions {
		for _, s := range t.from {
			seen[s.id] = s
		}
		for _, s := range t.to {
			seen[s.id] = s
		}
	}
	out := make([]*MovingState, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// StartStates returns the ids of states no transition leads into.
func (b *Botix) StartStates() []StateID {
	indegree := make(map[StateID]int)
	for _, t := range b.transitions {
		for _, s := range t.from {
			if _, ok := indegree[s.id]; !ok {
				indegree[s.id] = 0
			}
		}
		for _, s := range t.to {
			indegree[s.id]++
		}
	}
	return zeroDegree(indegree)
}

// EndStates returns the ids of states no transition leaves.
func (b *Botix) EndStates() []StateID {
	outdegree := make(map[StateID]int)
	for _, t := range b.transitions {
		for _, s := range t.from {
			outdegree[s.id]++
		}
		for _, s := range t.to {
			if _, ok := outdegree[s.id]; !ok {
				outdegree[s.id] = 0
			}
		}
	}
	return zeroDegree(outdegree)
}

// Validate checks that the pool has exactly one start state.
func (b *Botix) Validate() error {
	starts := b.StartStates()
	if len(starts) != 1 {
		return &StructureError{Starts: starts}
	}
	return nil
}

func zeroDegree(degree map[StateID]int) []StateID {
	ids := make([]StateID, 0)
	for id, d := range degree {
		if d == 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
