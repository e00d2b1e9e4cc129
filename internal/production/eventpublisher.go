package production

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comalice/botix"
)

// dropLogEvery limits drop warnings to the first drop and every n-th one
// after it.
const dropLogEvery = 100

// EventKind tells run events apart.
type EventKind string

const (
	StateEntered       EventKind = "state_entered"
	TransitionFinished EventKind = "transition_finished"
)

// RunEvent is one step of a graph run.
type RunEvent struct {
	Kind       EventKind
	RunID      string
	State      botix.StateID
	Speeds     [botix.WheelCount]int
	Transition botix.TransitionID
	Elapsed    time.Duration
	Tripped    bool
	At         time.Time
}

// ChannelPublisher forwards run events to a channel. It implements
// botix.Observer. Publishing never blocks the run: when the channel is full
// the event is dropped and counted.
type ChannelPublisher struct {
	mu      sync.RWMutex
	ch      chan<- RunEvent
	runID   string
	closed  bool
	dropped atomic.Uint64
	log     zerolog.Logger
}

// PublisherOption configures a ChannelPublisher.
type PublisherOption func(*ChannelPublisher)

// WithPublisherLogger sets the logger used for drop warnings.
func WithPublisherLogger(l zerolog.Logger) PublisherOption {
	return func(p *ChannelPublisher) { p.log = l }
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- RunEvent, opts ...PublisherOption) *ChannelPublisher {
	p := &ChannelPublisher{
		ch:  ch,
		log: log.Logger.With().Str("component", "publisher").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetRunID tags subsequent events.
func (p *ChannelPublisher) SetRunID(id string) {
	p.mu.Lock()
	p.runID = id
	p.mu.Unlock()
}

func (p *ChannelPublisher) StateEntered(s *botix.MovingState) {
	p.publish(RunEvent{Kind: StateEntered, State: s.ID(), Speeds: s.Speeds(), At: time.Now()})
}

func (p *ChannelPublisher) TransitionFinished(t *botix.MovingTransition, elapsed time.Duration, tripped bool) {
	p.publish(RunEvent{Kind: TransitionFinished, Transition: t.ID(), Elapsed: elapsed, Tripped: tripped, At: time.Now()})
}

func (p *ChannelPublisher) publish(e RunEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop(e, "publisher closed")
		return
	}
	e.RunID = p.runID
	select {
	case p.ch <- e:
	default:
		p.drop(e, "event channel full")
	}
}

func (p *ChannelPublisher) drop(e RunEvent, reason string) {
	n := p.dropped.Add(1)
	if n == 1 || n%dropLogEvery == 0 {
		p.log.Warn().
			Str("reason", reason).
			Str("kind", string(e.Kind)).
			Str("run_id", e.RunID).
			Uint64("dropped", n).
			Msg("run event dropped")
	}
}

// Dropped returns the number of events lost to backpressure or after Close.
func (p *ChannelPublisher) Dropped() uint64 { return p.dropped.Load() }

// Close closes the output channel. Later events are dropped.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

var _ botix.Observer = (*ChannelPublisher)(nil)
