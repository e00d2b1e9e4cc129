package botix

import (
	"fmt"
	"strings"
)

// MovementConfig holds the chassis geometry used by the derived state factories.
type MovementConfig struct {
	// TrackWidth is the distance between the wheels sharing an axle.
	TrackWidth float64 `json:"track_width" yaml:"track_width" toml:"track_width"`
	// DiagonalMultiplier scales the wheel opposite the fixed axis in a drift.
	DiagonalMultiplier float64 `json:"diagonal_multiplier" yaml:"diagonal_multiplier" toml:"diagonal_multiplier"`
}

// DefaultMovementConfig returns the stock chassis geometry.
func DefaultMovementConfig() MovementConfig {
	return MovementConfig{
		TrackWidth:         100.0,
		DiagonalMultiplier: 1.53,
	}
}

// TurnDirection selects the side a turn or arc bends toward.
type TurnDirection uint8

const (
	TurnLeft TurnDirection = iota
	TurnRight
)

func (d TurnDirection) String() string {
	if d == TurnRight {
		return "right"
	}
	return "left"
}

// ParseTurnDirection accepts "left" or "right" (case-insensitive).
func ParseTurnDirection(s string) (TurnDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return TurnLeft, nil
	case "right":
		return TurnRight, nil
	}
	return 0, fmt.Errorf("turn direction %q: must be one of [left, right]", s)
}

// FixedAxis names the wheel held still during a drift.
type FixedAxis uint8

const (
	FrontLeft FixedAxis = iota
	RearLeft
	RearRight
	FrontRight
)

var fixedAxisNames = map[FixedAxis]string{
	FrontLeft:  "front_left",
	RearLeft:   "rear_left",
	RearRight:  "rear_right",
	FrontRight: "front_right",
}

func (a FixedAxis) String() string {
	if n, ok := fixedAxisNames[a]; ok {
		return n
	}
	return fmt.Sprintf("FixedAxis(%d)", uint8(a))
}

// ParseFixedAxis accepts the snake_case wheel names used in blueprints.
func ParseFixedAxis(s string) (FixedAxis, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for axis, name := range fixedAxisNames {
		if name == want {
			return axis, nil
		}
	}
	return 0, fmt.Errorf("fixed axis %q: must be one of [front_left, rear_left, rear_right, front_right]", s)
}

// ArrowStyle is the PlantUML arrow used when exporting transitions.
type ArrowStyle uint8

const (
	ArrowDown ArrowStyle = iota
	ArrowLeft
	ArrowRight
	ArrowUp
)

var arrowGlyphs = map[ArrowStyle]string{
	ArrowDown:  "-->",
	ArrowLeft:  "-left->",
	ArrowRight: "-right->",
	ArrowUp:    "-up->",
}

// String returns the arrow glyph, "-->" for unknown values.
func (a ArrowStyle) String() string {
	if g, ok := arrowGlyphs[a]; ok {
		return g
	}
	return arrowGlyphs[ArrowDown]
}

// ParseArrowStyle accepts "up", "down", "left" or "right".
func ParseArrowStyle(s string) (ArrowStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "":
		return ArrowDown, nil
	case "left":
		return ArrowLeft, nil
	case "right":
		return ArrowRight, nil
	case "up":
		return ArrowUp, nil
	}
	return ArrowDown, fmt.Errorf("arrow style %q: must be one of [up, down, left, right]", s)
}
