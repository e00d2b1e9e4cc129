package primitives

import (
	"fmt"

	"github.com/comalice/botix"
)

// Graph is a built blueprint: live states keyed by name, and transitions in
// declaration order.
type Graph struct {
	ID          string
	States      map[string]*botix.MovingState
	Transitions []*botix.MovingTransition

	names map[botix.StateID]string
}

// Name returns the blueprint name of a built state, or "" for unknown ids.
func (g *Graph) Name(id botix.StateID) string { return g.names[id] }

// Names maps every built state id to its blueprint name.
func (g *Graph) Names() map[botix.StateID]string {
	out := make(map[botix.StateID]string, len(g.names))
	for k, v := range g.names {
		out[k] = v
	}
	return out
}

// Build validates cfg and builds it. States are created in declaration order
// so identities follow the file. r may be nil when no hooks or breakers are
// named.
func Build(cfg *GraphConfig, ids *botix.IDAllocator, fallback botix.MovementConfig, r Resolver) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("graph %q: %w", cfg.ID, err)
	}
	f := botix.NewFactory(ids, cfg.MovementConfig(fallback))

	g := &Graph{
		ID:     cfg.ID,
		States: make(map[string]*botix.MovingState, len(cfg.States)),
		names:  make(map[botix.StateID]string, len(cfg.States)),
	}
	for _, sc := range cfg.States {
		s, err := sc.Build(f, r)
		if err != nil {
			return nil, fmt.Errorf("graph %q: %w", cfg.ID, err)
		}
		g.States[sc.ID] = s
		g.names[s.ID()] = sc.ID
	}
	for i, tc := range cfg.Transitions {
		t, err := tc.Build(ids, g.States, r)
		if err != nil {
			return nil, fmt.Errorf("graph %q transition %d: %w", cfg.ID, i, err)
		}
		g.Transitions = append(g.Transitions, t)
	}
	return g, nil
}
