// Package benchmarks provides shared helpers for benchmark tests.
package benchmarks

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/comalice/botix"
	"github.com/comalice/botix/builder"
	"github.com/comalice/botix/delay"
)

// Quiet discards log output so benchmarks measure the engine only.
var Quiet = zerolog.New(io.Discard)

// InstantWaiter advances a fake clock instead of sleeping.
func InstantWaiter() *delay.Waiter {
	now := time.Unix(0, 0)
	return delay.New(
		delay.WithLogger(Quiet),
		delay.WithClock(func(d time.Duration) { now = now.Add(d) }, func() time.Time { return now }),
	)
}

// GenChain builds a registry over a linear chain of n states linked by
// zero-length transitions.
func GenChain(n int, c botix.Controller) *botix.Botix {
	if n < 2 {
		n = 2
	}
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	states := make([]*botix.MovingState, n)
	for i := range states {
		states[i] = f.Straight(i % 200)
	}
	ts, err := builder.Chain(ids, states, make([]time.Duration, n-1))
	if err != nil {
		panic(err)
	}
	return botix.New(c, botix.WithLogger(Quiet), botix.WithWaiter(InstantWaiter())).ExtendTransitions(ts...)
}

// GenChainYAML renders an n-state chain blueprint.
func GenChainYAML(n int) []byte {
	if n < 2 {
		n = 2
	}
	var b strings.Builder
	fmt.Fprintf(&b, "id: chain_%d\nstates:\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  - {id: s%d, kind: straight, speed: %d}\n", i, i%200)
	}
	b.WriteString("transitions:\n")
	for i := 0; i < n-1; i++ {
		fmt.Fprintf(&b, "  - {from: [s%d], target: s%d, duration: 10ms}\n", i, i+1)
	}
	return []byte(b.String())
}

// Discard is a controller that accepts every speed vector.
type Discard struct{}

func (Discard) SetMotorsSpeed([]float64) error { return nil }
