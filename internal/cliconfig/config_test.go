package cliconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-fwextract/channel"
	"github.com/arloliu/go-fwextract/protocol"
	"github.com/arloliu/go-fwextract/session"
)

// fakeDevice creates a file that stands in for a device node.
func fakeDevice(t *testing.T) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "ttyUSB0")
	require.NoError(t, os.WriteFile(p, nil, 0o600))

	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, uint32(0), cfg.StartAddress)
	assert.Equal(t, uint32(0x10000), cfg.Length)
	assert.Equal(t, "little", cfg.ByteOrder)
	assert.Regexp(t, `^data-\d{8}_\d{4}\.bin$`, cfg.OutFile)
	assert.Equal(t, time.Second, cfg.InactivityTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, channel.DefaultBaudRate, cfg.BaudRate)
}

func TestDefaultOutFile(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 0, 0, time.UTC)
	assert.Equal(t, "data-20240309_0705.bin", DefaultOutFile(ts))
}

func TestValidate(t *testing.T) {
	dev := fakeDevice(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing device", func(c *Config) { c.Device = "" }, "device is required"},
		{"device does not exist", func(c *Config) { c.Device = dev + ".missing" }, "device not found"},
		{"start too large", func(c *Config) { c.StartAddress = 0x10001 }, "start address is too large"},
		{"zero length", func(c *Config) { c.Length = 0 }, "length must be positive"},
		{"bad byte order", func(c *Config) { c.ByteOrder = "middle" }, "byte order"},
		{"empty outfile", func(c *Config) { c.OutFile = "" }, "outfile is required"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "unknown level"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Device = dev
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DeviceNotFoundIsSentinel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = filepath.Join(t.TempDir(), "nope")

	assert.ErrorIs(t, cfg.Validate(), channel.ErrDeviceNotFound)
}

func TestSessionOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartAddress = 0x8000
	cfg.Length = 0x100
	cfg.ByteOrder = "big"

	opts, err := cfg.SessionOptions(nil)
	require.NoError(t, err)

	sc, err := session.NewConfig(opts...)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x8000), sc.StartAddress())
	assert.Equal(t, uint32(0x100), sc.Length())
	assert.Equal(t, protocol.BigEndian, sc.ByteOrder())
}

func TestSessionOptions_RejectedBySession(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InactivityTimeout = time.Millisecond

	opts, err := cfg.SessionOptions(nil)
	require.NoError(t, err)

	_, err = session.NewConfig(opts...)
	assert.ErrorIs(t, err, session.ErrConfigRejected)
}

func TestSet(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Set("start", "0x8000"))
	assert.Equal(t, uint32(0x8000), cfg.StartAddress)

	require.NoError(t, cfg.Set("length", "4096"))
	assert.Equal(t, uint32(4096), cfg.Length)

	require.NoError(t, cfg.Set("byteorder", "big"))
	assert.Equal(t, "big", cfg.ByteOrder)

	require.NoError(t, cfg.Set("outfile", "fw.bin"))
	assert.Equal(t, "fw.bin", cfg.OutFile)
}

func TestSet_Errors(t *testing.T) {
	cfg := DefaultConfig()

	assert.ErrorIs(t, cfg.Set("start", "0x10001"), ErrStartTooLarge)
	assert.Error(t, cfg.Set("start", "zz"))
	assert.Error(t, cfg.Set("length", "0"))
	assert.ErrorIs(t, cfg.Set("byteorder", "middle"), protocol.ErrInvalidByteOrder)
	assert.ErrorIs(t, cfg.Set("color", "red"), ErrUnknownKey)

	// rejected values leave the configuration untouched
	assert.Equal(t, DefaultConfig().StartAddress, cfg.StartAddress)
	assert.Equal(t, "little", cfg.ByteOrder)
}

func TestShow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutFile = "fw.bin"
	cfg.StartAddress = 0x100

	var buf bytes.Buffer
	cfg.Show(&buf)

	want := "# Current Configuration\n" +
		"  byteorder   : little\n" +
		"  length      : 0x10000\n" +
		"  outfile     : fw.bin\n" +
		"  start       : 0x100\n"
	assert.Equal(t, want, buf.String())
}
