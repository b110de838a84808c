package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with TOML friendly types. Addresses may be
// written as TOML hex integers (start = 0x8000).
type FileConfig struct {
	Device            string `toml:"device"`
	Start             *int64 `toml:"start"`
	Length            *int64 `toml:"length"`
	ByteOrder         string `toml:"byteorder"`
	OutFile           string `toml:"outfile"`
	InactivityTimeout string `toml:"inactivity_timeout"`
	SettleDelay       string `toml:"settle_delay"`
	BaudRate          int    `toml:"baud_rate"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
	Progress          *bool  `toml:"progress"`
	MetricsFile       string `toml:"metrics_file"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}

	return fc, nil
}

// DefaultConfigPath returns ~/.fwextract/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fwextract", "config.toml")
	}

	return ""
}

// ApplyFileConfig applies configuration from a file to cfg, skipping values
// whose flags were set explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", fc.Device, &cfg.Device)
	s.setString("endianness", fc.ByteOrder, &cfg.ByteOrder)
	s.setString("outfile", fc.OutFile, &cfg.OutFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-file", fc.MetricsFile, &cfg.MetricsFile)

	if err := s.setUint32("start", fc.Start, &cfg.StartAddress); err != nil {
		return err
	}
	if err := s.setUint32("length", fc.Length, &cfg.Length); err != nil {
		return err
	}
	if err := s.setDuration("inactivity-timeout", fc.InactivityTimeout, &cfg.InactivityTimeout); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", fc.SettleDelay, &cfg.SettleDelay); err != nil {
		return err
	}

	s.setInt("baud", fc.BaudRate, &cfg.BaudRate)
	s.setBool("progress", fc.Progress, &cfg.Progress)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
