package botix_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/comalice/botix"
)

func mustTransition(t *testing.T, ids *botix.IDAllocator, d time.Duration) *botix.MovingTransition {
	t.Helper()
	tr, err := botix.NewTransition(ids, d)
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestNewTransitionRejectsNegativeDuration(t *testing.T) {
	tr, err := botix.NewTransition(botix.NewIDAllocator(), -time.Second)
	if !errors.Is(err, botix.ErrInvalidDuration) {
		t.Fatalf("err = %v, want ErrInvalidDuration", err)
	}
	if tr != nil {
		t.Error("a rejected transition must not be returned")
	}
}

func TestTransitionBuilder(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	a, b, c := f.Straight(10), f.Halt(), f.Turn(botix.TurnLeft, 10)

	tr := mustTransition(t, ids, 1500*time.Millisecond)
	if tr.CheckInterval() != botix.DefaultCheckInterval {
		t.Errorf("default interval = %v", tr.CheckInterval())
	}
	tr.WithFromState(a).WithFromState(a).
		WithToState("x", b).WithToState("x", c).
		WithCheckInterval(time.Millisecond).
		WithBreaker(botix.PredicateFunc(func() bool { return true }))

	if n := len(tr.FromStates()); n != 1 {
		t.Errorf("duplicate source kept, %d sources", n)
	}
	if !tr.HasSource(a.ID()) || tr.HasSource(b.ID()) {
		t.Error("HasSource disagrees with the source list")
	}
	if n := len(tr.ToStates()); n != 1 {
		t.Errorf("%d destinations, want 1", n)
	}
	if got, _ := tr.ToState("x"); !got.Equal(c) {
		t.Errorf("label x -> %v, want overwritten %v", got, c)
	}
	if tr.CheckInterval() != time.Millisecond {
		t.Errorf("interval = %v", tr.CheckInterval())
	}
	if tr.Breaker() == nil || !tr.Breaker().Call() {
		t.Error("breaker not attached")
	}
	if tr.String() != "Transition0(1.500s)" {
		t.Errorf("String() = %q", tr.String())
	}
}

func TestStartStatesLinearChain(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())

	const n = 5
	states := make([]*botix.MovingState, n+1)
	for i := range states {
		states[i] = f.Straight(i * 10)
	}
	b := botix.New(nil)
	for i := 0; i < n; i++ {
		b.AddTransition(mustTransition(t, ids, 0).WithFromState(states[i]).WithToState("next", states[i+1]))
	}

	if diff := cmp.Diff([]botix.StateID{states[0].ID()}, b.StartStates()); diff != "" {
		t.Errorf("start states (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]botix.StateID{states[n].ID()}, b.EndStates()); diff != "" {
		t.Errorf("end states (-want +got):\n%s", diff)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestAddingTransitionIntoStartRemovesIt(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	a, b, c := f.Halt(), f.Halt(), f.Halt()

	reg := botix.New(nil).AddTransition(mustTransition(t, ids, 0).WithFromState(a).WithToState("n", b))
	if diff := cmp.Diff([]botix.StateID{a.ID()}, reg.StartStates()); diff != "" {
		t.Fatalf("start states (-want +got):\n%s", diff)
	}

	reg.AddTransition(mustTransition(t, ids, 0).WithFromState(c).WithToState("n", a))
	if diff := cmp.Diff([]botix.StateID{c.ID()}, reg.StartStates()); diff != "" {
		t.Errorf("start states after retarget (-want +got):\n%s", diff)
	}
}

func TestValidateReportsMissingAndMultipleStarts(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	a, b, c, d := f.Halt(), f.Halt(), f.Halt(), f.Halt()

	empty := botix.New(nil)
	err := empty.Validate()
	var se *botix.StructureError
	if !errors.As(err, &se) || len(se.Starts) != 0 {
		t.Fatalf("empty pool Validate() = %v", err)
	}
	if !errors.Is(err, botix.ErrInvalidStructure) {
		t.Error("StructureError should match ErrInvalidStructure")
	}

	two := botix.New(nil).
		AddTransition(mustTransition(t, ids, 0).WithFromState(a).WithToState("n", c)).
		AddTransition(mustTransition(t, ids, 0).WithFromState(b).WithToState("n", c))
	err = two.Validate()
	if !errors.As(err, &se) {
		t.Fatalf("Validate() = %v, want StructureError", err)
	}
	if diff := cmp.Diff([]botix.StateID{a.ID(), b.ID()}, se.Starts); diff != "" {
		t.Errorf("starts (-want +got):\n%s", diff)
	}

	cycle := botix.New(nil).
		AddTransition(mustTransition(t, ids, 0).WithFromState(c).WithToState("n", d)).
		AddTransition(mustTransition(t, ids, 0).WithFromState(d).WithToState("n", c))
	if err := cycle.Validate(); !errors.Is(err, botix.ErrInvalidStructure) {
		t.Errorf("pure cycle Validate() = %v, want ErrInvalidStructure", err)
	}
}

func TestFanInCountsOncePerTransition(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	a, b, c := f.Halt(), f.Halt(), f.Halt()

	// c is named under two labels of the same transition
	reg := botix.New(nil).AddTransition(mustTransition(t, ids, 0).
		WithFromState(a).WithFromState(b).
		WithToState("l", c).WithToState("r", c))

	if diff := cmp.Diff([]botix.StateID{a.ID(), b.ID()}, reg.StartStates()); diff != "" {
		t.Errorf("start states (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]botix.StateID{c.ID()}, reg.EndStates()); diff != "" {
		t.Errorf("end states (-want +got):\n%s", diff)
	}
}

func TestPoolMutationKeepsDegreesFresh(t *testing.T) {
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	a, b, c := f.Halt(), f.Halt(), f.Halt()
	ab := mustTransition(t, ids, 0).WithFromState(a).WithToState("n", b)
	bc := mustTransition(t, ids, 0).WithFromState(b).WithToState("n", c)

	reg := botix.New(nil).ExtendTransitions(ab, bc)
	if got := reg.EndStates(); len(got) != 1 || got[0] != c.ID() {
		t.Fatalf("end states = %v", got)
	}

	reg.RemoveTransition(bc.ID())
	if got := reg.EndStates(); len(got) != 1 || got[0] != b.ID() {
		t.Errorf("end states after remove = %v, want [%d]", got, b.ID())
	}
	if n := len(reg.Transitions()); n != 1 {
		t.Errorf("pool size = %d", n)
	}
	if n := len(reg.States()); n != 2 {
		t.Errorf("referenced states = %d, want 2", n)
	}

	reg.ClearTransitions()
	if got := reg.StartStates(); len(got) != 0 {
		t.Errorf("start states after clear = %v", got)
	}
}

func TestIDAllocatorConcurrentUse(t *testing.T) {
	ids := botix.NewIDAllocator()
	const workers, per = 8, 200

	var mu sync.Mutex
	seen := make(map[botix.StateID]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]botix.StateID, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, botix.NewMovingState(ids, botix.UniformSpeed(0)).ID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Errorf("got %d ids, want %d", len(seen), workers*per)
	}
}

func TestSeparateAllocatorsAreIndependent(t *testing.T) {
	a, b := botix.NewIDAllocator(), botix.NewIDAllocator()
	if a.NextStateID() != 0 || b.NextStateID() != 0 {
		t.Error("fresh allocators should start at 0")
	}
	if a.NextTransitionID() != 0 || a.NextTransitionID() != 1 {
		t.Error("transition ids should count independently of state ids")
	}
}
