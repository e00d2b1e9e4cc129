package delay

import (
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) now() time.Time { return c.t }

func newFakeWaiter() (*Waiter, *fakeClock) {
	c := &fakeClock{t: time.Unix(0, 0)}
	return New(WithLogger(zerolog.New(io.Discard)), WithClock(c.sleep, c.now)), c
}

func TestWithBreakerNeverTripsWaitsFullDelay(t *testing.T) {
	w := New(WithLogger(zerolog.New(io.Discard)))

	start := time.Now()
	tripped := w.WithBreaker(200*time.Millisecond, 50*time.Millisecond, Func(func() bool { return false }))
	elapsed := time.Since(start)

	assert.False(t, tripped)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.LessOrEqual(t, elapsed, 250*time.Millisecond)
}

func TestWithBreakerAlwaysTrueReturnsImmediately(t *testing.T) {
	w := New(WithLogger(zerolog.New(io.Discard)))

	start := time.Now()
	tripped := w.WithBreaker(200*time.Millisecond, 50*time.Millisecond, Func(func() bool { return true }))
	elapsed := time.Since(start)

	assert.True(t, tripped)
	assert.Less(t, elapsed, 20*time.Millisecond)
}

func TestWithBreakerRoundsUpToInterval(t *testing.T) {
	w, c := newFakeWaiter()
	calls := 0

	tripped := w.WithBreaker(210*time.Millisecond, 50*time.Millisecond, Func(func() bool {
		calls++
		return false
	}))

	assert.False(t, tripped)
	assert.Len(t, c.slept, 5, "210ms at 50ms cadence sleeps five times")
	assert.Equal(t, 6, calls, "one immediate check plus one per sleep")
}

func TestWithBreakerTripsMidway(t *testing.T) {
	w, c := newFakeWaiter()
	calls := 0

	tripped := w.WithBreaker(time.Second, 100*time.Millisecond, Func(func() bool {
		calls++
		return calls == 4
	}))

	assert.True(t, tripped)
	assert.Len(t, c.slept, 3)
}

func TestWithBreakerNilBreakerSleepsOnce(t *testing.T) {
	w, c := newFakeWaiter()

	tripped := w.WithBreaker(300*time.Millisecond, 10*time.Millisecond, nil)

	assert.False(t, tripped)
	assert.Equal(t, []time.Duration{300 * time.Millisecond}, c.slept)
}

func TestWithBreakerZeroDelayChecksOnce(t *testing.T) {
	w, c := newFakeWaiter()
	calls := 0

	w.WithBreaker(0, 10*time.Millisecond, Func(func() bool {
		calls++
		return false
	}))

	assert.Equal(t, 1, calls)
	assert.Empty(t, c.slept)
}

func TestWithBreakerNonPositiveIntervalUsesDefault(t *testing.T) {
	w, c := newFakeWaiter()

	w.WithBreaker(30*time.Millisecond, 0, Func(func() bool { return false }))

	assert.Len(t, c.slept, 3)
	for _, d := range c.slept {
		assert.Equal(t, DefaultInterval, d)
	}
}

func TestMatchRunsFullDelayAndReturnsLastValue(t *testing.T) {
	w, c := newFakeWaiter()
	calls := 0

	got := Match(w, 100*time.Millisecond, 25*time.Millisecond, func() int {
		calls++
		return calls
	})

	// no fast exit even though the first value is non-zero
	assert.Len(t, c.slept, 4)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, got)
}

func TestMatchZeroDelayReturnsFirstValue(t *testing.T) {
	w, c := newFakeWaiter()

	got := Match(w, 0, 10*time.Millisecond, func() string { return "left" })

	assert.Equal(t, "left", got)
	assert.Empty(t, c.slept)
}

func TestMatchWallClock(t *testing.T) {
	w := New(WithLogger(zerolog.New(io.Discard)))

	start := time.Now()
	got := Match(w, 60*time.Millisecond, 20*time.Millisecond, func() bool { return true })

	assert.True(t, got)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
