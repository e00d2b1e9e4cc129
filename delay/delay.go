// Package delay implements the blocking, pollable waits used to honor a
// transition's duration while still allowing an early exit.
//
// Waits are synchronous: they block the calling goroutine and spawn nothing.
// The only way to end one early is the breaker.
package delay

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval replaces non-positive polling intervals.
const DefaultInterval = 10 * time.Millisecond

// Breaker ends a wait early when it returns true.
type Breaker interface {
	Call() bool
}

// Func adapts a plain function to Breaker.
type Func func() bool

func (f Func) Call() bool { return f() }

// Waiter performs timed waits. The zero value is not usable; use New.
type Waiter struct {
	log   zerolog.Logger
	sleep func(time.Duration)
	now   func() time.Time
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithLogger sets the logger used for wait diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Waiter) { w.log = l }
}

// WithClock replaces the sleep and clock functions. Tests use it to run
// waits without wall-clock time.
func WithClock(sleep func(time.Duration), now func() time.Time) Option {
	return func(w *Waiter) {
		w.sleep = sleep
		w.now = now
	}
}

// New returns a Waiter on the wall clock logging to the global logger.
func New(opts ...Option) *Waiter {
	w := &Waiter{
		log:   log.Logger.With().Str("component", "delay").Logger(),
		sleep: time.Sleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var std = New()

// WithBreaker waits on the package default Waiter.
func WithBreaker(d, interval time.Duration, breaker Breaker) bool {
	return std.WithBreaker(d, interval, breaker)
}

// Delay sleeps on the package default Waiter.
func Delay(d time.Duration) { std.Delay(d) }

// Delay blocks for d.
func (w *Waiter) Delay(d time.Duration) {
	w.log.Debug().Dur("delay", d).Msg("simple delay")
	if d > 0 {
		w.sleep(d)
	}
}

// WithBreaker blocks for d, polling breaker every interval. The breaker is
// checked once before any sleep; a true result returns immediately. Without
// an early trip the total wait is d rounded up to a multiple of interval.
// It reports whether the breaker ended the wait.
func (w *Waiter) WithBreaker(d, interval time.Duration, breaker Breaker) bool {
	interval = w.interval(interval)
	if breaker == nil {
		w.log.Debug().Dur("delay", d).Msg("no breaker attached, waiting full delay")
		w.Delay(d)
		return false
	}
	w.log.Debug().Dur("delay", d).Dur("interval", interval).Msg("delay with breaker")

	start := w.now()
	if breaker.Call() {
		w.log.Debug().Msg("breaker tripped immediately, skipping delay")
		return true
	}
	checks := 0
	for w.now().Sub(start) < d {
		w.sleep(interval)
		checks++
		if breaker.Call() {
			w.log.Debug().
				Dur("elapsed", w.now().Sub(start)).
				Int("checks", checks).
				Msg("breaker tripped")
			return true
		}
	}
	w.log.Debug().Dur("elapsed", w.now().Sub(start)).Int("checks", checks).Msg("delay completed")
	return false
}

// Match polls breaker for the whole of d and returns its latest value. There
// is no early exit: unlike WithBreaker, any value is a legal result, so the
// wait always runs to term. With d == 0 the first value is returned.
func Match[T any](w *Waiter, d, interval time.Duration, breaker func() T) T {
	interval = w.interval(interval)
	w.log.Debug().Dur("delay", d).Dur("interval", interval).Msg("delay with breaker match")

	start := w.now()
	last := breaker()
	checks := 0
	for w.now().Sub(start) < d {
		w.sleep(interval)
		checks++
		last = breaker()
	}
	w.log.Debug().Dur("elapsed", w.now().Sub(start)).Int("checks", checks).Msg("delay with breaker match completed")
	return last
}

func (w *Waiter) interval(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	w.log.Warn().Dur("interval", d).Dur("default", DefaultInterval).Msg("non-positive check interval, using default")
	return DefaultInterval
}
