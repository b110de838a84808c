package channel

import (
	"github.com/arloliu/go-fwextract/logger"
)

// DefaultBaudRate is the line speed of the extraction firmware's UART.
const DefaultBaudRate = 115200

type options struct {
	name      string
	queueSize int
	baudRate  int
	logger    logger.Logger
}

func defaultOptions() options {
	return options{
		name:      "channel",
		queueSize: DefaultQueueSize,
		baudRate:  DefaultBaudRate,
		logger:    logger.GetLogger(),
	}
}

// Option configures a Channel.
type Option interface {
	apply(*options)
}

type optFunc func(*options)

func (f optFunc) apply(o *options) { f(o) }

// WithName sets the name used in log records and errors.
func WithName(name string) Option {
	return optFunc(func(o *options) {
		if name != "" {
			o.name = name
		}
	})
}

// WithQueueSize sets the receive queue capacity. Values below 1 are ignored.
func WithQueueSize(size int) Option {
	return optFunc(func(o *options) {
		if size > 0 {
			o.queueSize = size
		}
	})
}

// WithBaudRate sets the line speed used by OpenSerial. Values below 1 are
// ignored.
func WithBaudRate(baud int) Option {
	return optFunc(func(o *options) {
		if baud > 0 {
			o.baudRate = baud
		}
	})
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}
