//go:build linux

package bdmc

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var linuxBaud = map[int]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

var dataBits = map[int]uint32{5: unix.CS5, 6: unix.CS6, 7: unix.CS7, 8: unix.CS8}

func openSerial(path string, cfg SerialConfig) (io.WriteCloser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	rc, err := f.SyscallConn()
	if err != nil {
		f.Close()
		return nil, err
	}
	var ioctlErr error
	if err := rc.Control(func(fd uintptr) { ioctlErr = configureTermios(int(fd), cfg) }); err != nil {
		f.Close()
		return nil, err
	}
	if ioctlErr != nil {
		f.Close()
		return nil, fmt.Errorf("configure line: %w", ioctlErr)
	}
	return f, nil
}

// configureTermios puts the line in raw mode with the requested framing.
func configureTermios(fd int, cfg SerialConfig) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	baud := linuxBaud[cfg.Baudrate]

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CBAUD | unix.CRTSCTS
	t.Cflag |= dataBits[cfg.DataBits] | unix.CREAD | unix.CLOCAL | baud
	switch cfg.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	}
	if cfg.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}
	t.Ispeed, t.Ospeed = baud, baud

	// VTIME counts tenths of a second and saturates at 25.5s.
	tenths := cfg.Timeout.Milliseconds() / 100
	if tenths > 255 {
		tenths = 255
	}
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = uint8(tenths)

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
