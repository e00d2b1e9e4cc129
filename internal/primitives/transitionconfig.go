package primitives

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/comalice/botix"
	"github.com/comalice/botix/builder"
)

// TransitionConfig declares a timed transition by state name. Target is
// shorthand for a single destination under the default label.
type TransitionConfig struct {
	From          []string          `json:"from" yaml:"from" toml:"from"`
	To            map[string]string `json:"to,omitempty" yaml:"to,omitempty" toml:"to,omitempty"`
	Target        string            `json:"target,omitempty" yaml:"target,omitempty" toml:"target,omitempty"`
	Duration      Duration          `json:"duration" yaml:"duration" toml:"duration"`
	Breaker       string            `json:"breaker,omitempty" yaml:"breaker,omitempty" toml:"breaker,omitempty"`
	CheckInterval Duration          `json:"check_interval,omitempty" yaml:"check_interval,omitempty" toml:"check_interval,omitempty"`
}

// Destinations merges Target and To into one label map.
func (t *TransitionConfig) Destinations() map[string]string {
	out := make(map[string]string, len(t.To)+1)
	for k, v := range t.To {
		out[k] = v
	}
	if t.Target != "" {
		out[builder.DefaultLabel] = t.Target
	}
	return out
}

// Validate checks field values. References are checked by GraphConfig.
func (t *TransitionConfig) Validate() error {
	if len(t.From) == 0 {
		return errors.New("transition needs at least one source state")
	}
	for _, f := range t.From {
		if strings.TrimSpace(f) == "" {
			return errors.New("empty source state name")
		}
	}
	if t.Target != "" && t.To[builder.DefaultLabel] != "" && t.To[builder.DefaultLabel] != t.Target {
		return fmt.Errorf("target %q conflicts with to.%s %q", t.Target, builder.DefaultLabel, t.To[builder.DefaultLabel])
	}
	for label := range t.To {
		if strings.TrimSpace(label) == "" {
			return errors.New("empty destination label")
		}
	}
	if t.Duration < 0 {
		return fmt.Errorf("negative duration %v: %w", t.Duration, botix.ErrInvalidDuration)
	}
	if t.CheckInterval < 0 {
		return fmt.Errorf("negative check interval %v", t.CheckInterval)
	}
	return nil
}

// Build creates the transition, linking the named states from states and
// resolving the breaker through r.
func (t *TransitionConfig) Build(ids *botix.IDAllocator, states map[string]*botix.MovingState, r Resolver) (*botix.MovingTransition, error) {
	tr, err := botix.NewTransition(ids, t.Duration.Std())
	if err != nil {
		return nil, err
	}
	if t.CheckInterval > 0 {
		tr.WithCheckInterval(t.CheckInterval.Std())
	}
	if t.Breaker != "" {
		if r == nil {
			return nil, fmt.Errorf("breaker %q: %w", t.Breaker, ErrNoResolver)
		}
		p, err := r.Breaker(t.Breaker)
		if err != nil {
			return nil, fmt.Errorf("breaker %q: %w", t.Breaker, err)
		}
		tr.WithBreaker(p)
	}
	for _, name := range t.From {
		s, ok := states[name]
		if !ok {
			return nil, fmt.Errorf("source %q: %w", name, ErrUnknownState)
		}
		tr.WithFromState(s)
	}
	dests := t.Destinations()
	labels := make([]string, 0, len(dests))
	for l := range dests {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		s, ok := states[dests[l]]
		if !ok {
			return nil, fmt.Errorf("destination %q: %w", dests[l], ErrUnknownState)
		}
		tr.WithToState(l, s)
	}
	return tr, nil
}
