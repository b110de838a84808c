package channel

import (
	"errors"
	"fmt"
	"io/fs"

	"go.bug.st/serial"
)

// ErrDeviceNotFound is returned by OpenSerial when the device node does not
// exist.
var ErrDeviceNotFound = errors.New("channel: device not found")

// OpenSerial opens the serial device at path (8N1, DefaultBaudRate unless
// WithBaudRate is given) and wraps it in a Channel.
func OpenSerial(path string, opts ...Option) (*Channel, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: o.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		var portErr *serial.PortError
		if errors.Is(err, fs.ErrNotExist) || (errors.As(err, &portErr) && portErr.Code() == serial.PortNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, path)
		}

		return nil, fmt.Errorf("channel: open %s: %w", path, err)
	}

	o.logger.Debug("serial port opened", "device", path, "baud", o.baudRate)

	return New(port, append(opts, WithName(path))...), nil
}
