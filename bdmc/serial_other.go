//go:build !linux

package bdmc

import (
	"errors"
	"io"
)

var ErrSerialUnsupported = errors.New("serial ports are only supported on linux")

func openSerial(path string, cfg SerialConfig) (io.WriteCloser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return nil, ErrSerialUnsupported
}
