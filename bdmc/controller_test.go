package bdmc

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/botix/testutil"
)

func quiet() Option { return WithLogger(zerolog.New(io.Discard)) }

func TestNewDefaults(t *testing.T) {
	c, err := New(quiet())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4}, c.MotorIDs())
	assert.Equal(t, []Direction{Forward, Forward, Forward, Forward}, c.MotorDirections())
	assert.Equal(t, DefaultSerialConfig(), c.SerialConfig())
	assert.False(t, c.Attached())
	assert.NotNil(t, c.Context())
}

func TestNewRejectsBadLayouts(t *testing.T) {
	_, err := New(quiet(), WithMotors([]MotorInfo{{ID: 1, Direction: Forward}, {ID: 1, Direction: Reverse}}))
	assert.ErrorIs(t, err, ErrDuplicateMotor)

	_, err = New(quiet(), WithMotors([]MotorInfo{{ID: 1, Direction: 2}}))
	assert.ErrorIs(t, err, ErrInvalidDirection)

	_, err = New(quiet(), WithMotors(nil))
	assert.ErrorIs(t, err, ErrNoMotors)
}

func TestSetMotorsSpeedFraming(t *testing.T) {
	tr := &testutil.RecordingTransport{}
	c, err := New(quiet(), WithTransport(tr), WithMotors([]MotorInfo{
		{ID: 1, Direction: Forward},
		{ID: 2, Direction: Reverse},
		{ID: 3, Direction: Forward},
		{ID: 4, Direction: Reverse},
	}))
	require.NoError(t, err)

	require.NoError(t, c.SetMotorsSpeed([]float64{100, 100, -50.9, 0}))
	assert.Equal(t, "1v100\r2v-100\r3v-50\r4v0\r", tr.String())
	assert.Equal(t, 1, tr.Writes(), "all motors go out in one write")
}

func TestFormatSpeedsSaturates(t *testing.T) {
	motors := []MotorInfo{{ID: 1, Direction: Forward}, {ID: 2, Direction: Reverse}}

	cmd, err := FormatSpeeds(motors, []float64{math.NaN(), math.Inf(1)})
	require.NoError(t, err)
	assert.Equal(t, "1v0\r2v-2147483648\r", string(cmd))

	cmd, err = FormatSpeeds(motors, []float64{1e12, -1e12})
	require.NoError(t, err)
	assert.Equal(t, "1v2147483647\r2v2147483647\r", string(cmd))

	cmd, err = FormatSpeeds(motors, []float64{math.Inf(-1), 12.7})
	require.NoError(t, err)
	assert.Equal(t, "1v-2147483648\r2v-12\r", string(cmd))
}

func TestSetMotorsSpeedNonFiniteIsSentSaturated(t *testing.T) {
	tr := &testutil.RecordingTransport{}
	c, err := New(quiet(), WithTransport(tr), WithMotors([]MotorInfo{{ID: 1, Direction: Forward}}))
	require.NoError(t, err)

	require.NoError(t, c.SetMotorsSpeed([]float64{math.NaN()}))
	assert.Equal(t, "1v0\r", tr.String())
}

func TestSetMotorsSpeedLengthMismatch(t *testing.T) {
	tr := &testutil.RecordingTransport{}
	c, err := New(quiet(), WithTransport(tr))
	require.NoError(t, err)

	err = c.SetMotorsSpeed([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrSpeedCount)
	assert.Zero(t, tr.Writes())
}

func TestNoTransportDegradesToLogging(t *testing.T) {
	c, err := New(quiet())
	require.NoError(t, err)

	assert.NoError(t, c.SetMotorsSpeed([]float64{1, 2, 3, 4}))
	assert.NoError(t, c.SendCmd(CmdReset))
	assert.NoError(t, c.Close())
	// a length mismatch is still an error without hardware
	assert.ErrorIs(t, c.SetMotorsSpeed([]float64{1}), ErrSpeedCount)
}

func TestWriteFailurePropagates(t *testing.T) {
	tr := &testutil.RecordingTransport{Fail: true}
	c, err := New(quiet(), WithTransport(tr))
	require.NoError(t, err)

	assert.ErrorIs(t, c.SetMotorsSpeed([]float64{0, 0, 0, 0}), testutil.ErrInjected)
	assert.ErrorIs(t, c.SendCmd(CmdFullStop), testutil.ErrInjected)
}

func TestSendCmds(t *testing.T) {
	tr := &testutil.RecordingTransport{}
	c, err := New(quiet(), WithTransport(tr))
	require.NoError(t, err)

	require.NoError(t, c.SendCmds(CmdPositionEchoOff, CmdVelocityEchoOff, Addressed(2, CmdFullStop)))
	assert.Equal(t, "NPOFF\rNVOFF\r2v0\r", tr.String())
	assert.Equal(t, 3, tr.Writes())
}

func TestAttachClosesPrevious(t *testing.T) {
	first, second := &testutil.RecordingTransport{}, &testutil.RecordingTransport{}
	c, err := New(quiet(), WithTransport(first))
	require.NoError(t, err)

	c.Attach(second)
	assert.True(t, first.Closed)
	assert.False(t, second.Closed)

	require.NoError(t, c.Close())
	assert.True(t, second.Closed)
	assert.False(t, c.Attached())
}

func TestSetMotorsValidates(t *testing.T) {
	c, err := New(quiet())
	require.NoError(t, err)

	err = c.SetMotors([]MotorInfo{{ID: 7, Direction: Forward}, {ID: 7, Direction: Forward}})
	assert.True(t, errors.Is(err, ErrDuplicateMotor))
	assert.Equal(t, []int{1, 2, 3, 4}, c.MotorIDs(), "layout unchanged after rejection")

	require.NoError(t, c.SetMotors([]MotorInfo{{ID: 5, Direction: Reverse}, {ID: 6, Direction: Forward}}))
	assert.Equal(t, []int{5, 6}, c.MotorIDs())
}

func TestOpenMissingPort(t *testing.T) {
	c, err := New(quiet())
	require.NoError(t, err)

	err = c.Open(filepath.Join(t.TempDir(), "ttyUSB9"))
	assert.Error(t, err)
	assert.False(t, c.Attached())

	_, err = New(quiet(), WithPort(filepath.Join(t.TempDir(), "nope")))
	assert.Error(t, err)
}

func TestDelayWithBreaker(t *testing.T) {
	c, err := New(quiet())
	require.NoError(t, err)

	start := time.Now()
	tripped := c.DelayWithBreaker(time.Hour, time.Millisecond, testutil.Always)
	assert.True(t, tripped)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSerialConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultSerialConfig().Validate())

	bad := DefaultSerialConfig()
	bad.Baudrate = 12345
	assert.ErrorIs(t, bad.Validate(), ErrUnsupportedBaudrate)

	bad = DefaultSerialConfig()
	bad.StopBits = 3
	assert.Error(t, bad.Validate())

	p, err := ParseParity("Even")
	require.NoError(t, err)
	assert.Equal(t, ParityEven, p)
	_, err = ParseParity("mark")
	assert.Error(t, err)
}

func TestScannerFindsUSBDevices(t *testing.T) {
	root := t.TempDir()
	sys, dev := filepath.Join(root, "sys"), filepath.Join(root, "dev")

	// ttyUSB0 hangs off a USB device 1a86:7523, ttyS0 is a plain UART
	usb := filepath.Join(sys, "devices", "usb1", "1-1")
	iface := filepath.Join(usb, "1-1:1.0")
	require.NoError(t, os.MkdirAll(iface, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(usb, "idVendor"), []byte("1a86\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(usb, "idProduct"), []byte("7523\n"), 0o644))

	uart := filepath.Join(sys, "devices", "platform", "serial8250")
	require.NoError(t, os.MkdirAll(uart, 0o755))

	for name, target := range map[string]string{"ttyUSB0": iface, "ttyS0": uart} {
		cls := filepath.Join(sys, "class", "tty", name)
		require.NoError(t, os.MkdirAll(cls, 0o755))
		require.NoError(t, os.Symlink(target, filepath.Join(cls, "device")))
	}
	require.NoError(t, os.MkdirAll(dev, 0o755))
	for _, name := range []string{"ttyUSB0", "ttyS0", "null"} {
		require.NoError(t, os.WriteFile(filepath.Join(dev, name), nil, 0o644))
	}

	s := Scanner{SysRoot: sys, DevRoot: dev}
	ports, err := s.SerialPorts()
	require.NoError(t, err)
	require.Len(t, ports, 2)
	assert.Equal(t, "ttyS0", ports[0].Name)
	assert.False(t, ports[0].USB)
	assert.Equal(t, PortInfo{Path: filepath.Join(dev, "ttyUSB0"), Name: "ttyUSB0", VendorID: 0x1a86, ProductID: 0x7523, USB: true}, ports[1])

	all, err := s.FindUSBTTY(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	match, err := s.FindUSBTTY(0x1a86, 0x7523)
	require.NoError(t, err)
	assert.Len(t, match, 1)

	none, err := s.FindUSBTTY(0x0403, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
