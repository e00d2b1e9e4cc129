package production

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/comalice/botix"
	"github.com/comalice/botix/testutil"
)

// lineGraph builds fwd -> turn -> stop with a breaker on the first leg.
func lineGraph(t *testing.T) (*botix.Botix, []*botix.MovingState) {
	t.Helper()
	ids := botix.NewIDAllocator()
	f := botix.NewFactory(ids, botix.DefaultMovementConfig())
	fwd, turn, stop := f.Straight(100), f.Turn(botix.TurnLeft, 50), f.Halt()

	t1, err := botix.NewTransition(ids, 1500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	t2, err := botix.NewTransition(ids, 500*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	t1.WithFromState(fwd).WithToState("next", turn).WithBreaker(testutil.Never)
	t2.WithFromState(turn).WithToState("next", stop)

	b := botix.New(nil, botix.WithLogger(zerolog.New(io.Discard))).ExtendTransitions(t1, t2)
	return b, []*botix.MovingState{fwd, turn, stop}
}

func TestVisualizer_ExportPlantUML(t *testing.T) {
	b, _ := lineGraph(t)
	names := map[botix.StateID]string{0: "forward", 1: "turn"}
	v := &Visualizer{Name: func(id botix.StateID) string { return names[id] }}

	got := v.ExportPlantUML(b)
	want := `@startuml
state "forward" as S0 : uniform 100
state "turn" as S1 : left_right -50, 50
state "State2" as S2 : uniform 0
[*] --> S0
S0 --> S1 : next (1.5s) [breaker]
S1 --> S2 : next (500ms)
S2 --> [*]
@enduml
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("plantuml (-want +got):\n%s", diff)
	}

	v.Arrow = botix.ArrowRight
	if !strings.Contains(v.ExportPlantUML(b), "S0 -right-> S1") {
		t.Error("arrow style not applied")
	}
}

func TestVisualizer_ExportDOT(t *testing.T) {
	b, states := lineGraph(t)
	dot := (&Visualizer{}).ExportDOT(b, states[1].ID())

	for _, want := range []string{
		"digraph Botix {",
		`"S0" [label="State0\n100" peripheries=2];`,
		`"S1" [label="State1\n-50, 50" style=filled fillcolor=lightgreen];`,
		`"S0" -> "S1" [label="next (1.5s) [breaker]"];`,
		`"S1" -> "S2" [label="next (500ms)"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
}

func TestSnapshot(t *testing.T) {
	b, states := lineGraph(t)
	snap := Snapshot("line", b, nil)

	if diff := cmp.Diff([]botix.StateID{states[0].ID()}, snap.Start); diff != "" {
		t.Errorf("start (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]botix.StateID{states[2].ID()}, snap.End); diff != "" {
		t.Errorf("end (-want +got):\n%s", diff)
	}
	if len(snap.States) != 3 || snap.States[1].Speeds != [4]int{-50, -50, 50, 50} {
		t.Errorf("states = %+v", snap.States)
	}
	tr := snap.Transitions[0]
	if tr.Duration != "1.5s" || tr.CheckInterval != "10ms" || !tr.Breaker || tr.To["next"] != states[1].ID() {
		t.Errorf("transition = %+v", tr)
	}
}

func TestFilePersister_RoundTrip(t *testing.T) {
	b, _ := lineGraph(t)
	snap := Snapshot("line", b, func(id botix.StateID) string { return "s" })

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			p, err := NewFilePersister(t.TempDir(), format)
			if err != nil {
				t.Fatalf("NewFilePersister failed: %v", err)
			}
			ctx := context.Background()
			if err := p.Save(ctx, snap); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if _, err := os.Stat(p.Path("line")); err != nil {
				t.Fatalf("snapshot file: %v", err)
			}
			got, err := p.Load(ctx, "line")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(snap, got); diff != "" {
				t.Errorf("round trip (-want +got):\n%s", diff)
			}

			if _, err := p.Load(ctx, "missing"); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("missing load err = %v", err)
			}
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			if err := p.Save(cancelled, snap); !errors.Is(err, context.Canceled) {
				t.Errorf("cancelled save err = %v", err)
			}
		})
	}

	if _, err := NewFilePersister(t.TempDir(), "xml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("unknown format err = %v", err)
	}
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, GraphSnapshot{}, "ini"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v", err)
	}
}

func TestChannelPublisher(t *testing.T) {
	b, states := lineGraph(t)
	ch := make(chan RunEvent, 3)
	var logs bytes.Buffer
	p := NewChannelPublisher(ch, WithPublisherLogger(zerolog.New(&logs)))
	p.SetRunID("run-1")

	for _, s := range states {
		p.StateEntered(s)
	}
	p.TransitionFinished(b.Transitions()[0], time.Second, true) // channel full

	if p.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", p.Dropped())
	}
	if out := logs.String(); !strings.Contains(out, `"message":"run event dropped"`) || !strings.Contains(out, `"reason":"event channel full"`) {
		t.Errorf("first drop not logged: %s", out)
	}
	first := <-ch
	if first.Kind != StateEntered || first.RunID != "run-1" || first.State != states[0].ID() {
		t.Errorf("first event = %+v", first)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	p.StateEntered(states[0])
	if p.Dropped() != 2 {
		t.Errorf("events after close should be dropped, dropped = %d", p.Dropped())
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	n := 0
	for range ch {
		n++
	}
	if n != 2 {
		t.Errorf("drained %d events, want 2", n)
	}
}

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	if _, err := r.Latest(ctx, "line"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty latest err = %v", err)
	}
	if err := r.Register(ctx, GraphSnapshot{ID: "line"}); !errors.Is(err, ErrNoVersion) {
		t.Errorf("unversioned err = %v", err)
	}

	for _, v := range []string{"v1", "v2", "v3"} {
		if err := r.Register(ctx, GraphSnapshot{ID: "line", Version: v}); err != nil {
			t.Fatalf("register %s: %v", v, err)
		}
	}
	if err := r.Register(ctx, GraphSnapshot{ID: "line", Version: "v2"}); !errors.Is(err, ErrExists) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := r.Register(ctx, GraphSnapshot{ID: "arc", Version: "v1"}); err != nil {
		t.Fatal(err)
	}

	latest, err := r.Latest(ctx, "line")
	if err != nil || latest.Version != "v3" {
		t.Errorf("latest = %+v, %v", latest, err)
	}
	if s, err := r.Version(ctx, "line", "v1"); err != nil || s.Version != "v1" {
		t.Errorf("version v1 = %+v, %v", s, err)
	}
	if _, err := r.Version(ctx, "line", "v9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing version err = %v", err)
	}

	versions, err := r.ListVersions(ctx, "line")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"v3", "v2", "v1"}, versions); diff != "" {
		t.Errorf("versions (-want +got):\n%s", diff)
	}
	graphs, _ := r.ListGraphs(ctx)
	if diff := cmp.Diff([]string{"arc", "line"}, graphs); diff != "" {
		t.Errorf("graphs (-want +got):\n%s", diff)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := r.ListGraphs(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled err = %v", err)
	}
}
