package bdmc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnsupportedBaudrate = errors.New("unsupported baudrate")

// Parity of the serial line.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "none"
	case ParityOdd:
		return "odd"
	case ParityEven:
		return "even"
	default:
		return fmt.Sprintf("Parity(%d)", int(p))
	}
}

// ParseParity accepts "none", "odd" or "even".
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "n":
		return ParityNone, nil
	case "odd", "o":
		return ParityOdd, nil
	case "even", "e":
		return ParityEven, nil
	}
	return ParityNone, fmt.Errorf("unknown parity %q", s)
}

// SerialConfig holds the line settings for the controller port.
type SerialConfig struct {
	Baudrate int
	DataBits int
	Parity   Parity
	StopBits int
	// Timeout bounds a blocking read. Writes are not affected.
	Timeout time.Duration
}

// DefaultSerialConfig returns 115200 8N1 with a two second read timeout.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		Baudrate: 115200,
		DataBits: 8,
		Parity:   ParityNone,
		StopBits: 1,
		Timeout:  2 * time.Second,
	}
}

// Validate checks the settings a termios line can express.
func (c SerialConfig) Validate() error {
	if _, ok := baudrates[c.Baudrate]; !ok {
		return fmt.Errorf("%d: %w", c.Baudrate, ErrUnsupportedBaudrate)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("data bits %d out of range 5..8", c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("stop bits %d, want 1 or 2", c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParityEven {
		return fmt.Errorf("invalid parity %d", int(c.Parity))
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %v", c.Timeout)
	}
	return nil
}

// baudrates lists the rates accepted by Validate. The platform files map
// them to their line speed constants.
var baudrates = map[int]struct{}{
	9600: {}, 19200: {}, 38400: {}, 57600: {},
	115200: {}, 230400: {}, 460800: {}, 921600: {},
}
