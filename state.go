package botix

import "fmt"

// MovingState is a node of the locomotion graph: a fixed speed pattern plus
// the hooks run around it. Identity is the id alone; two states with equal
// patterns are still different states.
type MovingState struct {
	id             StateID
	pattern        SpeedPattern
	beforeEntering []Hook
	afterExiting   []Hook
}

// NewMovingState builds a state with an id drawn from ids.
func NewMovingState(ids *IDAllocator, pattern SpeedPattern) *MovingState {
	return &MovingState{
		id:      ids.NextStateID(),
		pattern: pattern,
	}
}

// ID returns the state identifier.
func (s *MovingState) ID() StateID { return s.id }

// Pattern returns the current speed pattern.
func (s *MovingState) Pattern() SpeedPattern { return s.pattern }

// Kind returns the layout of the current speed pattern.
func (s *MovingState) Kind() PatternKind { return s.pattern.kind }

// Speeds returns the per-wheel speeds of the current pattern.
func (s *MovingState) Speeds() [WheelCount]int { return s.pattern.Array() }

// BeforeEntering returns a copy of the entry hooks.
func (s *MovingState) BeforeEntering() []Hook { return append([]Hook(nil), s.beforeEntering...) }

// AfterExiting returns a copy of the exit hooks.
func (s *MovingState) AfterExiting() []Hook { return append([]Hook(nil), s.afterExiting...) }

// WithMultiplier scales the pattern in place, truncating toward zero.
// The state keeps its id.
func (s *MovingState) WithMultiplier(factor float64) *MovingState {
	s.pattern = s.pattern.Scale(factor)
	return s
}

// WithBeforeEntering appends hooks run, in order, when the state is entered.
func (s *MovingState) WithBeforeEntering(hooks ...Hook) *MovingState {
	for _, h := range hooks {
		if h != nil {
			s.beforeEntering = append(s.beforeEntering, h)
		}
	}
	return s
}

// WithAfterExiting appends hooks run, in order, when the state is left.
func (s *MovingState) WithAfterExiting(hooks ...Hook) *MovingState {
	for _, h := range hooks {
		if h != nil {
			s.afterExiting = append(s.afterExiting, h)
		}
	}
	return s
}

// Equal reports whether s and o are the same state.
func (s *MovingState) Equal(o *MovingState) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.id == o.id
}

func (s *MovingState) String() string {
	return fmt.Sprintf("State%d(%s)", s.id, s.pattern)
}

// Factory builds the common locomotion states for one chassis.
type Factory struct {
	ids *IDAllocator
	cfg MovementConfig
}

// NewFactory binds an allocator and a chassis geometry.
func NewFactory(ids *IDAllocator, cfg MovementConfig) *Factory {
	return &Factory{ids: ids, cfg: cfg}
}

// IDs returns the allocator the factory draws from.
func (f *Factory) IDs() *IDAllocator { return f.ids }

// Config returns the chassis geometry.
func (f *Factory) Config() MovementConfig { return f.cfg }

// State wraps an arbitrary pattern.
func (f *Factory) State(p SpeedPattern) *MovingState {
	return NewMovingState(f.ids, p)
}

// Halt stops every wheel.
func (f *Factory) Halt() *MovingState {
	return f.State(UniformSpeed(0))
}

// Straight drives every wheel at speed.
func (f *Factory) Straight(speed int) *MovingState {
	return f.State(UniformSpeed(speed))
}

// Turn spins in place toward dir.
func (f *Factory) Turn(dir TurnDirection, speed int) *MovingState {
	if dir == TurnRight {
		return f.State(LeftRightSpeed(speed, -speed))
	}
	return f.State(LeftRightSpeed(-speed, speed))
}

// Differential follows an arc of the given radius toward dir with the outer
// side at outerSpeed.
func (f *Factory) Differential(dir TurnDirection, radius float64, outerSpeed int) *MovingState {
	inner := int(radius / (radius + f.cfg.TrackWidth) * float64(outerSpeed))
	if dir == TurnRight {
		return f.State(LeftRightSpeed(outerSpeed, inner))
	}
	return f.State(LeftRightSpeed(inner, outerSpeed))
}

// Drift pivots around the fixed wheel. The diagonally opposite wheel runs at
// speed times the diagonal multiplier.
func (f *Factory) Drift(axis FixedAxis, speed int) *MovingState {
	d := int(float64(speed) * f.cfg.DiagonalMultiplier)
	var p SpeedPattern
	switch axis {
	case RearLeft:
		p = PerWheelSpeed(speed, 0, speed, d)
	case RearRight:
		p = PerWheelSpeed(d, speed, 0, speed)
	case FrontRight:
		p = PerWheelSpeed(speed, d, speed, 0)
	default:
		p = PerWheelSpeed(0, speed, d, speed)
	}
	return f.State(p)
}
