package production

import (
	"time"

	"github.com/comalice/botix"
)

// GraphSnapshot is the structural view of a registry: states, transitions
// and derived start/end sets. Hooks and breakers are recorded as counts and
// flags only.
type GraphSnapshot struct {
	ID          string               `json:"id" yaml:"id"`
	Version     string               `json:"version,omitempty" yaml:"version,omitempty"`
	CreatedAt   time.Time            `json:"created_at" yaml:"created_at"`
	Start       []botix.StateID      `json:"start" yaml:"start,flow"`
	End         []botix.StateID      `json:"end" yaml:"end,flow"`
	States      []StateSnapshot      `json:"states" yaml:"states"`
	Transitions []TransitionSnapshot `json:"transitions" yaml:"transitions"`
}

type StateSnapshot struct {
	ID     botix.StateID         `json:"id" yaml:"id"`
	Name   string                `json:"name,omitempty" yaml:"name,omitempty"`
	Kind   string                `json:"kind" yaml:"kind"`
	Speeds [botix.WheelCount]int `json:"speeds" yaml:"speeds,flow"`
	Entry  int                   `json:"entry_hooks,omitempty" yaml:"entry_hooks,omitempty"`
	Exit   int                   `json:"exit_hooks,omitempty" yaml:"exit_hooks,omitempty"`
}

type TransitionSnapshot struct {
	ID            botix.TransitionID       `json:"id" yaml:"id"`
	Duration      string                   `json:"duration" yaml:"duration"`
	CheckInterval string                   `json:"check_interval" yaml:"check_interval"`
	Breaker       bool                     `json:"breaker,omitempty" yaml:"breaker,omitempty"`
	From          []botix.StateID          `json:"from" yaml:"from,flow"`
	To            map[string]botix.StateID `json:"to,omitempty" yaml:"to,omitempty"`
}

// Snapshot captures b under id. name may be nil.
func Snapshot(id string, b *botix.Botix, name Namer) GraphSnapshot {
	snap := GraphSnapshot{
		ID:        id,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Start:     b.StartStates(),
		End:       b.EndStates(),
	}
	for _, s := range b.States() {
		ss := StateSnapshot{
			ID:     s.ID(),
			Kind:   s.Kind().String(),
			Speeds: s.Speeds(),
			Entry:  len(s.BeforeEntering()),
			Exit:   len(s.AfterExiting()),
		}
		if name != nil {
			ss.Name = name(s.ID())
		}
		snap.States = append(snap.States, ss)
	}
	for _, t := range b.Transitions() {
		ts := TransitionSnapshot{
			ID:            t.ID(),
			Duration:      t.Duration().String(),
			CheckInterval: t.CheckInterval().String(),
			Breaker:       t.Breaker() != nil,
		}
		for _, s := range t.FromStates() {
			ts.From = append(ts.From, s.ID())
		}
		if labels := t.Labels(); len(labels) > 0 {
			ts.To = make(map[string]botix.StateID, len(labels))
			for _, l := range labels {
				s, _ := t.ToState(l)
				ts.To[l] = s.ID()
			}
		}
		snap.Transitions = append(snap.Transitions, ts)
	}
	return snap
}
