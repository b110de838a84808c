package cliconfig

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
	"github.com/arloliu/go-fwextract/session"
)

var (
	// ErrUnknownKey is returned by Set for keys the shell cannot change.
	ErrUnknownKey = errors.New("config key does not exist")
	// ErrStartTooLarge is returned when the start address exceeds
	// session.MaxStartAddress.
	ErrStartTooLarge = errors.New("start address is too large")
)

// Config holds CLI configuration for fwextract.
type Config struct {
	Device string

	StartAddress uint32
	Length       uint32
	ByteOrder    string
	OutFile      string

	InactivityTimeout time.Duration
	SettleDelay       time.Duration
	BaudRate          int

	LogLevel    string
	LogFormat   string
	Progress    bool
	MetricsFile string
}

// DefaultConfig returns a Config with default values. The output file name
// carries the current time.
func DefaultConfig() Config {
	return Config{
		StartAddress:      session.DefaultStartAddress,
		Length:            session.DefaultLength,
		ByteOrder:         protocol.LittleEndian.String(),
		OutFile:           DefaultOutFile(time.Now()),
		InactivityTimeout: session.DefaultInactivityTimeout,
		SettleDelay:       session.DefaultSettleDelay,
		BaudRate:          channel.DefaultBaudRate,
		LogLevel:          "info",
		LogFormat:         string(logger.FormatConsole),
	}
}

// DefaultOutFile returns the default output file name for t.
func DefaultOutFile(t time.Time) string {
	return fmt.Sprintf("data-%s.bin", t.Format("20060102_1504"))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device is required")
	}
	if _, err := os.Stat(c.Device); err != nil {
		return fmt.Errorf("device %s: %w", c.Device, channel.ErrDeviceNotFound)
	}

	if c.StartAddress > session.MaxStartAddress {
		return fmt.Errorf("%w: 0x%X", ErrStartTooLarge, c.StartAddress)
	}
	if c.Length == 0 {
		return fmt.Errorf("length must be positive")
	}
	if _, err := protocol.ParseByteOrder(c.ByteOrder); err != nil {
		return err
	}
	if c.OutFile == "" {
		return fmt.Errorf("outfile is required")
	}
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if f := logger.Format(c.LogFormat); f != logger.FormatConsole && f != logger.FormatJSON {
		return fmt.Errorf("log format must be %q or %q", logger.FormatConsole, logger.FormatJSON)
	}

	return nil
}

// SessionOptions converts the configuration into session options.
func (c *Config) SessionOptions(l logger.Logger) ([]session.ConfigOption, error) {
	order, err := protocol.ParseByteOrder(c.ByteOrder)
	if err != nil {
		return nil, err
	}

	opts := []session.ConfigOption{
		session.WithStartAddress(c.StartAddress),
		session.WithLength(c.Length),
		session.WithByteOrder(order),
		session.WithInactivityTimeout(c.InactivityTimeout),
		session.WithSettleDelay(c.SettleDelay),
	}
	if l != nil {
		opts = append(opts, session.WithLogger(l))
	}

	return opts, nil
}

// Set changes one value from the interactive shell. Integers accept a
// base prefix ("0x8000", "0o17", "42").
func (c *Config) Set(key, val string) error {
	switch key {
	case "start":
		n, err := parseUint32(val)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if n > session.MaxStartAddress {
			return ErrStartTooLarge
		}
		c.StartAddress = n
	case "length":
		n, err := parseUint32(val)
		if err != nil {
			return fmt.Errorf("length: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("length must be positive")
		}
		c.Length = n
	case "byteorder":
		order, err := protocol.ParseByteOrder(val)
		if err != nil {
			return err
		}
		c.ByteOrder = order.String()
	case "outfile":
		if val == "" {
			return fmt.Errorf("outfile must not be empty")
		}
		c.OutFile = val
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	return nil
}

// Show writes the values the shell can change, sorted by key.
func (c *Config) Show(w io.Writer) {
	lines := []string{
		fmt.Sprintf("  %-12s: 0x%X", "start", c.StartAddress),
		fmt.Sprintf("  %-12s: 0x%X", "length", c.Length),
		fmt.Sprintf("  %-12s: %s", "byteorder", c.ByteOrder),
		fmt.Sprintf("  %-12s: %s", "outfile", c.OutFile),
	}
	sort.Strings(lines)

	fmt.Fprintln(w, "# Current Configuration")
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}

	return uint32(n), nil
}

// configSetter applies configuration values while respecting flag
// precedence: a value is only applied if its flag was not set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d

	return nil
}

// setUint32 sets an address-sized value from an int64 pointer.
func (s *configSetter) setUint32(flag string, value *int64, dst *uint32) error {
	if value == nil || s.changed[flag] {
		return nil
	}
	if *value < 0 || *value > int64(^uint32(0)) {
		return fmt.Errorf("parse %s: %d out of range", flag, *value)
	}
	*dst = uint32(*value)

	return nil
}

// setUint32FromString parses a base-prefixed integer, e.g. from an
// environment variable.
func (s *configSetter) setUint32FromString(flag, value string, dst *uint32) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := parseUint32(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = n

	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i

	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
