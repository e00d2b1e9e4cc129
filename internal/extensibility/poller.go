package extensibility

import (
	"sync"
	"time"
)

// Sink receives sampled values.
type Sink interface {
	Set(key string, value any)
}

// Poller samples a reading into a sink on a fixed period so expression
// breakers see fresh sensor values.
type Poller struct {
	key    string
	sample func() float64
	sink   Sink
	period time.Duration

	start  sync.Once
	once   sync.Once
	stop   chan struct{}
	done   chan struct{}
	ticker *time.Ticker
}

// NewPoller stores sample() under key every period once started. A
// non-positive period falls back to 10ms.
func NewPoller(key string, sample func() float64, sink Sink, period time.Duration) *Poller {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	return &Poller{
		key:    key,
		sample: sample,
		sink:   sink,
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start takes one sample immediately and then polls in the background.
// Later calls do nothing.
func (p *Poller) Start() {
	p.start.Do(func() {
		p.sink.Set(p.key, p.sample())
		p.ticker = time.NewTicker(p.period)
		go p.run()
	})
}

func (p *Poller) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ticker.C:
			p.sink.Set(p.key, p.sample())
		case <-p.stop:
			p.ticker.Stop()
			return
		}
	}
}

// Stop ends polling and waits for the goroutine. Stop is idempotent and
// must only be called after Start.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}
