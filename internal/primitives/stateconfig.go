package primitives

import (
	"errors"
	"fmt"

	"github.com/comalice/botix"
)

// StateKind names the factory used to build a state.
type StateKind string

const (
	Halt         StateKind = "halt"
	Straight     StateKind = "straight"
	Turn         StateKind = "turn"
	Differential StateKind = "differential"
	Drift        StateKind = "drift"
	Uniform      StateKind = "uniform"
	LeftRight    StateKind = "left_right"
	PerWheel     StateKind = "per_wheel"
)

// StateConfig declares one state. Which fields apply depends on Kind:
// Speed for straight, turn, drift and uniform (the outer speed for
// differential), Speeds for left_right and per_wheel, Direction for turn and
// differential, Radius for differential and Axis for drift.
type StateConfig struct {
	ID         string    `json:"id" yaml:"id" toml:"id"`
	Kind       StateKind `json:"kind" yaml:"kind" toml:"kind"`
	Speed      int       `json:"speed,omitempty" yaml:"speed,omitempty" toml:"speed,omitempty"`
	Speeds     []int     `json:"speeds,omitempty" yaml:"speeds,omitempty" toml:"speeds,omitempty"`
	Direction  string    `json:"direction,omitempty" yaml:"direction,omitempty" toml:"direction,omitempty"`
	Radius     float64   `json:"radius,omitempty" yaml:"radius,omitempty" toml:"radius,omitempty"`
	Axis       string    `json:"axis,omitempty" yaml:"axis,omitempty" toml:"axis,omitempty"`
	Multiplier float64   `json:"multiplier,omitempty" yaml:"multiplier,omitempty" toml:"multiplier,omitempty"`
	Entry      []string  `json:"entry,omitempty" yaml:"entry,omitempty" toml:"entry,omitempty"`
	Exit       []string  `json:"exit,omitempty" yaml:"exit,omitempty" toml:"exit,omitempty"`
}

// NewStateConfig creates a StateConfig with ID and Kind.
func NewStateConfig(id string, kind StateKind) *StateConfig {
	return &StateConfig{ID: id, Kind: kind}
}

// WithSpeed sets the scalar speed.
func (s *StateConfig) WithSpeed(speed int) *StateConfig {
	s.Speed = speed
	return s
}

// WithSpeeds sets the left/right or per-wheel speeds.
func (s *StateConfig) WithSpeeds(speeds ...int) *StateConfig {
	s.Speeds = speeds
	return s
}

// WithDirection sets the turn direction.
func (s *StateConfig) WithDirection(dir string) *StateConfig {
	s.Direction = dir
	return s
}

// AddEntry adds an entry hook name.
func (s *StateConfig) AddEntry(name string) *StateConfig {
	s.Entry = append(s.Entry, name)
	return s
}

// AddExit adds an exit hook name.
func (s *StateConfig) AddExit(name string) *StateConfig {
	s.Exit = append(s.Exit, name)
	return s
}

// Validate checks that the fields Kind needs are present and well formed.
func (s *StateConfig) Validate() error {
	if s.ID == "" {
		return errors.New("state ID is required")
	}
	switch s.Kind {
	case Halt, Straight, Uniform:
	case Turn:
		if _, err := botix.ParseTurnDirection(s.Direction); err != nil {
			return fmt.Errorf("state %s: %w", s.ID, err)
		}
	case Differential:
		if _, err := botix.ParseTurnDirection(s.Direction); err != nil {
			return fmt.Errorf("state %s: %w", s.ID, err)
		}
		if s.Radius <= 0 {
			return fmt.Errorf("differential state %s requires a positive radius", s.ID)
		}
	case Drift:
		if _, err := botix.ParseFixedAxis(s.Axis); err != nil {
			return fmt.Errorf("state %s: %w", s.ID, err)
		}
	case LeftRight:
		if len(s.Speeds) != 2 {
			return fmt.Errorf("left_right state %s requires 2 speeds, got %d", s.ID, len(s.Speeds))
		}
	case PerWheel:
		if len(s.Speeds) != botix.WheelCount {
			return fmt.Errorf("per_wheel state %s requires %d speeds, got %d", s.ID, botix.WheelCount, len(s.Speeds))
		}
	default:
		return fmt.Errorf("invalid state kind %q for state %s", s.Kind, s.ID)
	}
	if s.Multiplier < 0 {
		return fmt.Errorf("state %s: negative multiplier %g", s.ID, s.Multiplier)
	}
	return nil
}

// Build creates the state through f and attaches its hooks. Validate must
// have succeeded.
func (s *StateConfig) Build(f *botix.Factory, r Resolver) (*botix.MovingState, error) {
	var st *botix.MovingState
	switch s.Kind {
	case Halt:
		st = f.Halt()
	case Straight:
		st = f.Straight(s.Speed)
	case Uniform:
		st = f.State(botix.UniformSpeed(s.Speed))
	case Turn:
		dir, _ := botix.ParseTurnDirection(s.Direction)
		st = f.Turn(dir, s.Speed)
	case Differential:
		dir, _ := botix.ParseTurnDirection(s.Direction)
		st = f.Differential(dir, s.Radius, s.Speed)
	case Drift:
		axis, _ := botix.ParseFixedAxis(s.Axis)
		st = f.Drift(axis, s.Speed)
	case LeftRight:
		st = f.State(botix.LeftRightSpeed(s.Speeds[0], s.Speeds[1]))
	case PerWheel:
		st = f.State(botix.PerWheelSpeed(s.Speeds[0], s.Speeds[1], s.Speeds[2], s.Speeds[3]))
	default:
		return nil, fmt.Errorf("invalid state kind %q for state %s", s.Kind, s.ID)
	}
	if s.Multiplier != 0 {
		st.WithMultiplier(s.Multiplier)
	}

	entry, err := resolveHooks(r, s.Entry)
	if err != nil {
		return nil, fmt.Errorf("state %s entry: %w", s.ID, err)
	}
	exit, err := resolveHooks(r, s.Exit)
	if err != nil {
		return nil, fmt.Errorf("state %s exit: %w", s.ID, err)
	}
	return st.WithBeforeEntering(entry...).WithAfterExiting(exit...), nil
}

func resolveHooks(r Resolver, names []string) ([]botix.Hook, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if r == nil {
		return nil, ErrNoResolver
	}
	hooks := make([]botix.Hook, 0, len(names))
	for _, n := range names {
		h, err := r.Hook(n)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}
