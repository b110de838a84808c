package session

import (
	"fmt"
	"time"

	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
)

// Default configuration values.
const (
	DefaultStartAddress = 0x00
	DefaultLength       = 0x10000

	DefaultInactivityTimeout = 1 * time.Second        // end-of-data detection
	DefaultSettleDelay       = 100 * time.Millisecond // wait before each command write
)

// Configuration limits.
const (
	// MaxStartAddress is the highest start address the host accepts.
	MaxStartAddress = 0x10000

	MinInactivityTimeout = 100 * time.Millisecond
	MaxInactivityTimeout = 10 * time.Second

	MaxSettleDelay = 5 * time.Second

	// WordSize is the target's read granularity. The target aligns the start
	// address down and the length up to it.
	WordSize = 4
)

// Config holds the parameters of one extraction run.
//
// A Config is read-only once built.
type Config struct {
	startAddress uint32
	length       uint32
	byteOrder    protocol.ByteOrder

	inactivityTimeout time.Duration
	settleDelay       time.Duration

	logger logger.Logger
}

// NewConfig creates a Config. Options are applied in order; the first
// rejected option aborts with an error that matches ErrConfigRejected.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		startAddress:      DefaultStartAddress,
		length:            DefaultLength,
		byteOrder:         protocol.LittleEndian,
		inactivityTimeout: DefaultInactivityTimeout,
		settleDelay:       DefaultSettleDelay,
		logger:            logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// StartAddress returns the first address to read.
func (cfg *Config) StartAddress() uint32 { return cfg.startAddress }

// Length returns the number of bytes to read.
func (cfg *Config) Length() uint32 { return cfg.length }

// ByteOrder returns the word byte order.
func (cfg *Config) ByteOrder() protocol.ByteOrder { return cfg.byteOrder }

// InactivityTimeout returns the read deadline that signals end of data.
func (cfg *Config) InactivityTimeout() time.Duration { return cfg.inactivityTimeout }

// SettleDelay returns the pause before each command write.
func (cfg *Config) SettleDelay() time.Duration { return cfg.settleDelay }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// IsWordAligned reports whether start address and length are multiples of
// WordSize, i.e. the target will read exactly the configured range.
func (cfg *Config) IsWordAligned() bool {
	return cfg.startAddress%WordSize == 0 && cfg.length%WordSize == 0
}

// String renders the configuration for logs.
func (cfg *Config) String() string {
	return fmt.Sprintf("start=0x%X length=0x%X byteorder=%s", cfg.startAddress, cfg.length, cfg.byteOrder)
}

// --- ConfigOption ---

// ConfigOption is a functional option for configuring a Config.
type ConfigOption interface {
	apply(*Config) error
}

type configOptFunc func(*Config) error

func (f configOptFunc) apply(cfg *Config) error { return f(cfg) }

// WithStartAddress sets the first address to read. Must be <= MaxStartAddress.
func WithStartAddress(addr uint32) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if addr > MaxStartAddress {
			return &ConfigError{Field: "start", Value: fmt.Sprintf("0x%X", addr), Reason: "start address is too large"}
		}
		cfg.startAddress = addr

		return nil
	})
}

// WithLength sets the number of bytes to read. Must be positive.
func WithLength(n uint32) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if n == 0 {
			return &ConfigError{Field: "length", Value: "0x0", Reason: "length must be positive"}
		}
		cfg.length = n

		return nil
	})
}

// WithByteOrder sets the word byte order.
func WithByteOrder(order protocol.ByteOrder) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if order != protocol.LittleEndian && order != protocol.BigEndian {
			return &ConfigError{Field: "byteorder", Value: fmt.Sprint(uint8(order)), Reason: "choose little or big"}
		}
		cfg.byteOrder = order

		return nil
	})
}

// WithInactivityTimeout sets the read deadline that signals end of data.
// Range: 100ms–10s.
func WithInactivityTimeout(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < MinInactivityTimeout || d > MaxInactivityTimeout {
			return &ConfigError{
				Field:  "inactivity-timeout",
				Value:  d.String(),
				Reason: fmt.Sprintf("out of range [%v, %v]", MinInactivityTimeout, MaxInactivityTimeout),
			}
		}
		cfg.inactivityTimeout = d

		return nil
	})
}

// WithSettleDelay sets the pause before each command write. Range: 0–5s.
func WithSettleDelay(d time.Duration) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if d < 0 || d > MaxSettleDelay {
			return &ConfigError{
				Field:  "settle-delay",
				Value:  d.String(),
				Reason: fmt.Sprintf("out of range [0, %v]", MaxSettleDelay),
			}
		}
		cfg.settleDelay = d

		return nil
	})
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ConfigOption {
	return configOptFunc(func(cfg *Config) error {
		if l == nil {
			return &ConfigError{Field: "logger", Reason: "logger must not be nil"}
		}
		cfg.logger = l

		return nil
	})
}
