package botix

import (
	"fmt"
	"math"
)

// PatternKind tags the layout of a SpeedPattern.
type PatternKind uint8

const (
	// Uniform drives every wheel at the same speed.
	Uniform PatternKind = iota
	// LeftRight drives the left and right sides independently.
	LeftRight
	// PerWheel drives every wheel independently.
	PerWheel
)

func (k PatternKind) String() string {
	switch k {
	case Uniform:
		return "uniform"
	case LeftRight:
		return "left_right"
	case PerWheel:
		return "per_wheel"
	default:
		return fmt.Sprintf("PatternKind(%d)", uint8(k))
	}
}

// Wheel order used by Array and by the motor controller.
const (
	FrontLeftWheel = iota
	RearLeftWheel
	FrontRightWheel
	RearRightWheel
	WheelCount
)

// SpeedPattern is a wheel-speed assignment. It is a plain value; the zero
// value is Uniform(0).
type SpeedPattern struct {
	kind   PatternKind
	speeds [WheelCount]int
}

// UniformSpeed returns a pattern driving all wheels at speed.
func UniformSpeed(speed int) SpeedPattern {
	return SpeedPattern{kind: Uniform, speeds: [WheelCount]int{speed, speed, speed, speed}}
}

// LeftRightSpeed returns a pattern driving each side at its own speed.
func LeftRightSpeed(left, right int) SpeedPattern {
	return SpeedPattern{kind: LeftRight, speeds: [WheelCount]int{left, left, right, right}}
}

// PerWheelSpeed returns a pattern with an explicit speed for every wheel.
func PerWheelSpeed(frontLeft, rearLeft, frontRight, rearRight int) SpeedPattern {
	return SpeedPattern{kind: PerWheel, speeds: [WheelCount]int{frontLeft, rearLeft, frontRight, rearRight}}
}

// Kind reports which layout the pattern uses.
func (p SpeedPattern) Kind() PatternKind { return p.kind }

// Array flattens the pattern to [front_left, rear_left, front_right, rear_right].
func (p SpeedPattern) Array() [WheelCount]int { return p.speeds }

// Speed returns the common speed of a Uniform pattern.
func (p SpeedPattern) Speed() int { return p.speeds[FrontLeftWheel] }

// Left returns the left side speed.
func (p SpeedPattern) Left() int { return p.speeds[FrontLeftWheel] }

// Right returns the right side speed.
func (p SpeedPattern) Right() int { return p.speeds[FrontRightWheel] }

// Floats converts the flattened pattern into the vector a Controller accepts.
func (p SpeedPattern) Floats() []float64 {
	out := make([]float64, WheelCount)
	for i, v := range p.speeds {
		out[i] = float64(v)
	}
	return out
}

// Scale multiplies every component by factor, truncating toward zero and
// saturating to the int32 range. A NaN product becomes 0. The layout is
// preserved.
func (p SpeedPattern) Scale(factor float64) SpeedPattern {
	out := SpeedPattern{kind: p.kind}
	for i, v := range p.speeds {
		out.speeds[i] = saturate(float64(v) * factor)
	}
	return out
}

func saturate(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}

func (p SpeedPattern) String() string {
	s := p.speeds
	switch p.kind {
	case Uniform:
		return fmt.Sprintf("%d", s[FrontLeftWheel])
	case LeftRight:
		return fmt.Sprintf("%d, %d", s[FrontLeftWheel], s[FrontRightWheel])
	default:
		return fmt.Sprintf("[%d, %d, %d, %d]", s[0], s[1], s[2], s[3])
	}
}
