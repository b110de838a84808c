package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables
// (FWEXTRACT_*). Values whose flags were set explicitly are skipped.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("device", os.Getenv("FWEXTRACT_DEVICE"), &cfg.Device)
	s.setString("endianness", os.Getenv("FWEXTRACT_BYTEORDER"), &cfg.ByteOrder)
	s.setString("outfile", os.Getenv("FWEXTRACT_OUTFILE"), &cfg.OutFile)
	s.setString("log-level", os.Getenv("FWEXTRACT_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv("FWEXTRACT_LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-file", os.Getenv("FWEXTRACT_METRICS_FILE"), &cfg.MetricsFile)

	if err := s.setUint32FromString("start", os.Getenv("FWEXTRACT_START"), &cfg.StartAddress); err != nil {
		return err
	}
	if err := s.setUint32FromString("length", os.Getenv("FWEXTRACT_LENGTH"), &cfg.Length); err != nil {
		return err
	}
	if err := s.setDuration("inactivity-timeout", os.Getenv("FWEXTRACT_INACTIVITY_TIMEOUT"), &cfg.InactivityTimeout); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", os.Getenv("FWEXTRACT_SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setIntFromString("baud", os.Getenv("FWEXTRACT_BAUD"), &cfg.BaudRate); err != nil {
		return err
	}

	s.setBoolFromString("progress", os.Getenv("FWEXTRACT_PROGRESS"), &cfg.Progress)

	return nil
}
