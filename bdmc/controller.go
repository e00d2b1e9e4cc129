// Package bdmc drives a closed-loop brushless DC motor controller over a
// serial line. Speed vectors become framed ASCII commands of the form
// "<motor id>v<signed speed>\r", one per motor, sent in a single write.
//
// A controller without an attached transport stays usable: speed and command
// calls are logged and dropped, so a control loop can run on a bench with no
// hardware connected.
package bdmc

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comalice/botix/delay"
)

var (
	ErrDuplicateMotor   = errors.New("motor ids must be unique")
	ErrInvalidDirection = errors.New("motor direction must be 1 or -1")
	ErrSpeedCount       = errors.New("speed count must equal motor count")
	ErrNoMotors         = errors.New("at least one motor is required")
)

// Direction is the sign applied to a motor's speed, 1 or -1.
type Direction int8

const (
	Forward Direction = 1
	Reverse Direction = -1
)

// MotorInfo identifies one motor on the bus.
type MotorInfo struct {
	ID        int       `yaml:"id" toml:"id"`
	Direction Direction `yaml:"direction" toml:"direction"`
}

// ClassicMotors is the stock four-wheel layout: ids 1 to 4, all forward, in
// front-left, rear-left, front-right, rear-right order.
func ClassicMotors() []MotorInfo {
	return []MotorInfo{
		{ID: 1, Direction: Forward},
		{ID: 2, Direction: Forward},
		{ID: 3, Direction: Forward},
		{ID: 4, Direction: Forward},
	}
}

// CloseLoopController frames speed and configuration commands for the
// motor driver and writes them to the attached transport.
type CloseLoopController struct {
	mu        sync.Mutex
	transport io.WriteCloser
	port      string

	motors []MotorInfo
	ctx    *Context
	cfg    SerialConfig
	log    zerolog.Logger
	waiter *delay.Waiter

	initialPort string
}

// Option configures a CloseLoopController.
type Option func(*CloseLoopController)

// WithMotors replaces the classic four-motor layout.
func WithMotors(m []MotorInfo) Option {
	return func(c *CloseLoopController) { c.motors = append([]MotorInfo(nil), m...) }
}

// WithSerialConfig sets the line settings used by Open.
func WithSerialConfig(cfg SerialConfig) Option {
	return func(c *CloseLoopController) { c.cfg = cfg }
}

// WithContext shares an existing context store.
func WithContext(ctx *Context) Option {
	return func(c *CloseLoopController) { c.ctx = ctx }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *CloseLoopController) { c.log = l }
}

// WithPort opens the serial device at path during New.
func WithPort(path string) Option {
	return func(c *CloseLoopController) { c.initialPort = path }
}

// WithTransport attaches an already open transport.
func WithTransport(w io.WriteCloser) Option {
	return func(c *CloseLoopController) { c.transport = w }
}

// New validates the motor layout and builds a controller. Duplicate motor
// ids or directions other than ±1 fail without returning a controller.
func New(opts ...Option) (*CloseLoopController, error) {
	c := &CloseLoopController{
		motors: ClassicMotors(),
		cfg:    DefaultSerialConfig(),
		log:    log.Logger.With().Str("component", "bdmc").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ctx == nil {
		c.ctx = NewContext()
	}
	c.waiter = delay.New(delay.WithLogger(c.log))

	if err := validateMotors(c.motors); err != nil {
		c.log.Error().Err(err).Interface("motors", c.motors).Msg("invalid motor layout")
		return nil, err
	}
	c.log.Info().Int("motors", len(c.motors)).Int("baudrate", c.cfg.Baudrate).Msg("controller created")

	if c.initialPort != "" {
		if err := c.Open(c.initialPort); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateMotors(motors []MotorInfo) error {
	if len(motors) == 0 {
		return ErrNoMotors
	}
	seen := make(map[int]bool, len(motors))
	for _, m := range motors {
		if m.Direction != Forward && m.Direction != Reverse {
			return fmt.Errorf("motor %d direction %d: %w", m.ID, m.Direction, ErrInvalidDirection)
		}
		if seen[m.ID] {
			return fmt.Errorf("motor %d: %w", m.ID, ErrDuplicateMotor)
		}
		seen[m.ID] = true
	}
	return nil
}

// Open opens the serial device at path with the configured line settings
// and attaches it, closing any previous transport.
func (c *CloseLoopController) Open(path string) error {
	c.log.Info().Str("port", path).Int("baudrate", c.cfg.Baudrate).Msg("opening serial port")
	port, err := openSerial(path, c.cfg)
	if err != nil {
		c.log.Error().Err(err).Str("port", path).Msg("failed to open serial port")
		return fmt.Errorf("open %s: %w", path, err)
	}
	c.attach(port, path)
	c.log.Info().Str("port", path).Msg("serial port opened")
	return nil
}

// Attach uses w as the transport, closing any previous one.
func (c *CloseLoopController) Attach(w io.WriteCloser) {
	c.attach(w, "")
}

func (c *CloseLoopController) attach(w io.WriteCloser, path string) {
	c.mu.Lock()
	prev := c.transport
	c.transport, c.port = w, path
	c.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			c.log.Warn().Err(err).Msg("closing replaced transport")
		}
	}
}

// Close detaches and closes the transport. Closing a detached controller
// only logs.
func (c *CloseLoopController) Close() error {
	c.mu.Lock()
	t := c.transport
	c.transport, c.port = nil, ""
	c.mu.Unlock()
	if t == nil {
		c.log.Warn().Msg("close called with no transport attached")
		return nil
	}
	c.log.Info().Msg("closing transport")
	return t.Close()
}

// Attached reports whether a transport is attached.
func (c *CloseLoopController) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// Port returns the path of the opened serial device, or "".
func (c *CloseLoopController) Port() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port
}

// Context returns the shared key/value store.
func (c *CloseLoopController) Context() *Context { return c.ctx }

// SerialConfig returns the configured line settings.
func (c *CloseLoopController) SerialConfig() SerialConfig { return c.cfg }

// Motors returns a copy of the motor layout.
func (c *CloseLoopController) Motors() []MotorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MotorInfo(nil), c.motors...)
}

// MotorIDs returns the motor ids in layout order.
func (c *CloseLoopController) MotorIDs() []int {
	motors := c.Motors()
	ids := make([]int, len(motors))
	for i, m := range motors {
		ids[i] = m.ID
	}
	return ids
}

// MotorDirections returns the motor directions in layout order.
func (c *CloseLoopController) MotorDirections() []Direction {
	motors := c.Motors()
	dirs := make([]Direction, len(motors))
	for i, m := range motors {
		dirs[i] = m.Direction
	}
	return dirs
}

// SetMotors replaces the motor layout after validating it.
func (c *CloseLoopController) SetMotors(motors []MotorInfo) error {
	if err := validateMotors(motors); err != nil {
		return err
	}
	c.mu.Lock()
	c.motors = append([]MotorInfo(nil), motors...)
	c.mu.Unlock()
	c.log.Info().Int("motors", len(motors)).Msg("motor layout updated")
	return nil
}

// FormatSpeeds frames one speed command per motor. Speeds are multiplied by
// the motor direction, truncated toward zero and saturated to the int32
// range. NaN is sent as 0.
func FormatSpeeds(motors []MotorInfo, speeds []float64) ([]byte, error) {
	if len(speeds) != len(motors) {
		return nil, fmt.Errorf("%d speeds for %d motors: %w", len(speeds), len(motors), ErrSpeedCount)
	}
	var b strings.Builder
	for i, m := range motors {
		b.WriteString(strconv.Itoa(m.ID))
		b.WriteByte('v')
		b.WriteString(strconv.FormatInt(int64(saturate(speeds[i]*float64(m.Direction))), 10))
		b.WriteByte('\r')
	}
	return []byte(b.String()), nil
}

func saturate(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

func finite(speeds []float64) bool {
	for _, v := range speeds {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SetMotorsSpeed sends one speed per motor in a single write.
func (c *CloseLoopController) SetMotorsSpeed(speeds []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !finite(speeds) {
		c.log.Warn().Floats64("speeds", speeds).Msg("non-finite speed saturated")
	}

	cmd, err := FormatSpeeds(c.motors, speeds)
	if err != nil {
		c.log.Error().Err(err).Floats64("speeds", speeds).Msg("rejected speed vector")
		return err
	}
	if c.transport == nil {
		c.log.Warn().Floats64("speeds", speeds).Msg("no transport attached, speed command dropped")
		return nil
	}
	if _, err := c.transport.Write(cmd); err != nil {
		c.log.Error().Err(err).Msg("failed to send motor speed command")
		return fmt.Errorf("write speed command: %w", err)
	}
	c.log.Debug().Str("cmd", printable(cmd)).Msg("motor speeds set")
	return nil
}

// SendCmd writes a pre-framed command as is.
func (c *CloseLoopController) SendCmd(cmd []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport == nil {
		c.log.Warn().Str("cmd", printable(cmd)).Msg("no transport attached, command dropped")
		return nil
	}
	if _, err := c.transport.Write(cmd); err != nil {
		c.log.Error().Err(err).Str("cmd", printable(cmd)).Msg("failed to send command")
		return fmt.Errorf("write command %q: %w", printable(cmd), err)
	}
	c.log.Debug().Str("cmd", printable(cmd)).Msg("command sent")
	return nil
}

// SendCmds writes each command in order and stops at the first failure.
func (c *CloseLoopController) SendCmds(cmds ...[]byte) error {
	for _, cmd := range cmds {
		if err := c.SendCmd(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Delay blocks for d.
func (c *CloseLoopController) Delay(d time.Duration) {
	c.waiter.Delay(d)
}

// DelayWithBreaker blocks for up to d, polling breaker every interval.
// It reports whether the breaker ended the wait.
func (c *CloseLoopController) DelayWithBreaker(d, interval time.Duration, breaker delay.Breaker) bool {
	return c.waiter.WithBreaker(d, interval, breaker)
}

func printable(cmd []byte) string {
	return strings.TrimSpace(strings.ReplaceAll(string(cmd), "\r", " "))
}
