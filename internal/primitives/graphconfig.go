package primitives

import (
	"errors"
	"fmt"

	"github.com/comalice/botix"
)

var (
	ErrUnknownState = errors.New("unknown state")
	ErrNoResolver   = errors.New("hook or breaker names need a resolver")
)

// Resolver turns blueprint names into hooks and breakers.
type Resolver interface {
	Hook(name string) (botix.Hook, error)
	Breaker(ref string) (botix.Predicate, error)
}

// GraphConfig is the complete blueprint of one state graph.
type GraphConfig struct {
	Version     string                `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	ID          string                `json:"id" yaml:"id" toml:"id"`
	Movement    *botix.MovementConfig `json:"movement,omitempty" yaml:"movement,omitempty" toml:"movement,omitempty"`
	States      []*StateConfig        `json:"states" yaml:"states" toml:"states"`
	Transitions []*TransitionConfig   `json:"transitions" yaml:"transitions" toml:"transitions"`
}

// Validate validates the whole blueprint:
// - non-empty ID, at least one state and one transition
// - unique state IDs, each state valid
// - every transition valid, referencing declared states only
//
// Start and end structure is left to botix.Botix.Validate on the built graph.
func (g *GraphConfig) Validate() error {
	if g.ID == "" {
		return errors.New("graph ID is required")
	}
	if len(g.States) == 0 {
		return errors.New("states list is required and cannot be empty")
	}
	if len(g.Transitions) == 0 {
		return errors.New("transitions list is required and cannot be empty")
	}
	if g.Movement != nil && g.Movement.TrackWidth <= 0 {
		return fmt.Errorf("movement track width must be positive, got %g", g.Movement.TrackWidth)
	}

	seen := make(map[string]bool, len(g.States))
	for i, s := range g.States {
		if s == nil {
			return fmt.Errorf("state %d is empty", i)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("state %d validation failed: %w", i, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate state ID %q", s.ID)
		}
		seen[s.ID] = true
	}

	for i, t := range g.Transitions {
		if t == nil {
			return fmt.Errorf("transition %d is empty", i)
		}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transition %d validation failed: %w", i, err)
		}
		for _, f := range t.From {
			if !seen[f] {
				return fmt.Errorf("transition %d source %q: %w", i, f, ErrUnknownState)
			}
		}
		for label, to := range t.Destinations() {
			if !seen[to] {
				return fmt.Errorf("transition %d destination %s=%q: %w", i, label, to, ErrUnknownState)
			}
		}
	}
	return nil
}

// FindState returns the state declared under id.
func (g *GraphConfig) FindState(id string) (*StateConfig, error) {
	for _, s := range g.States {
		if s != nil && s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", id, ErrUnknownState)
}

// MovementConfig returns the declared geometry or the default one.
func (g *GraphConfig) MovementConfig(fallback botix.MovementConfig) botix.MovementConfig {
	if g.Movement != nil {
		return *g.Movement
	}
	return fallback
}
