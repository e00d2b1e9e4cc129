// Package testutil provides fakes for the collaborators the graph engine
// and motor controller talk to.
package testutil

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/comalice/botix"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("testutil: injected failure")

// RecordingController records every speed vector it is given.
type RecordingController struct {
	mu     sync.Mutex
	Calls  [][]float64
	FailOn int // 1-based call number that fails; 0 never fails
}

func (c *RecordingController) SetMotorsSpeed(speeds []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, append([]float64(nil), speeds...))
	if c.FailOn != 0 && len(c.Calls) == c.FailOn {
		return ErrInjected
	}
	return nil
}

// Snapshot returns a copy of the recorded calls.
func (c *RecordingController) Snapshot() [][]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]float64, len(c.Calls))
	copy(out, c.Calls)
	return out
}

// RecordingTransport is an io.WriteCloser that keeps everything written.
type RecordingTransport struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	Fail   bool
	Closed bool
}

func (t *RecordingTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Fail {
		return 0, ErrInjected
	}
	t.writes++
	return t.buf.Write(p)
}

func (t *RecordingTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return nil
}

// String returns everything written so far.
func (t *RecordingTransport) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// Writes returns the number of successful Write calls.
func (t *RecordingTransport) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Journal collects named events in order; hooks from it append their name.
type Journal struct {
	mu      sync.Mutex
	entries []string
}

// Hook returns a hook that appends name to the journal.
func (j *Journal) Hook(name string) botix.Hook {
	return botix.HookFunc(func() { j.Add(name) })
}

// Add appends an entry.
func (j *Journal) Add(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, name)
}

// Entries returns a copy of the journal.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

// TripAfter returns a predicate that reports true from its n-th call on.
func TripAfter(n int) botix.Predicate {
	var mu sync.Mutex
	calls := 0
	return botix.PredicateFunc(func() bool {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return calls >= n
	})
}

// Never is a predicate that never trips.
var Never botix.Predicate = botix.PredicateFunc(func() bool { return false })

// Always is a predicate that trips on the first call.
var Always botix.Predicate = botix.PredicateFunc(func() bool { return true })

// Step is one observer notification.
type Step struct {
	Transition botix.TransitionID
	Tripped    bool
	Elapsed    time.Duration
}

// RecordingObserver implements botix.Observer.
type RecordingObserver struct {
	mu       sync.Mutex
	Entered  []botix.StateID
	Finished []Step
}

func (o *RecordingObserver) StateEntered(s *botix.MovingState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Entered = append(o.Entered, s.ID())
}

func (o *RecordingObserver) TransitionFinished(t *botix.MovingTransition, elapsed time.Duration, tripped bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Finished = append(o.Finished, Step{Transition: t.ID(), Tripped: tripped, Elapsed: elapsed})
}
