// Package metrics exposes session counters as prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arloliu/go-fwextract/session"
)

// Config names the exported metrics.
type Config struct {
	Namespace string
	Subsystem string
	// Runtime adds the Go runtime and process collectors.
	Runtime bool
}

// DefaultConfig returns the default metric naming.
func DefaultConfig() *Config {
	return &Config{
		Namespace: "fwextract",
		Subsystem: "session",
	}
}

type counterDef struct {
	name string
	help string
	load func(*session.Metrics) uint64
}

var counterDefs = []counterDef{
	{"commands_total", "Commands written to the target", func(m *session.Metrics) uint64 { return m.CommandCount.Load() }},
	{"lines_total", "Complete hex lines decoded", func(m *session.Metrics) uint64 { return m.LineCount.Load() }},
	{"bytes_total", "Bytes written to the output", func(m *session.Metrics) uint64 { return m.ByteCount.Load() }},
	{"malformed_pairs_total", "Hex pairs skipped as malformed", func(m *session.Metrics) uint64 { return m.MalformedCount.Load() }},
	{"timeouts_total", "Inactivity timeouts seen by the transfer monitor", func(m *session.Metrics) uint64 { return m.TimeoutCount.Load() }},
	{"faults_total", "Runs ended with a fault status", func(m *session.Metrics) uint64 { return m.FaultCount.Load() }},
	{"runs_total", "Extraction runs started", func(m *session.Metrics) uint64 { return m.RunCount.Load() }},
}

// Register registers one CounterFunc per session counter on reg, labelled
// with the device name.
func Register(reg prometheus.Registerer, device string, m *session.Metrics, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	for _, def := range counterDefs {
		load := def.load
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        def.name,
			Help:        def.help,
			ConstLabels: prometheus.Labels{"device": device},
		}, func() float64 { return float64(load(m)) })

		if err := reg.Register(c); err != nil {
			return fmt.Errorf("metrics: register %s: %w", def.name, err)
		}
	}

	if cfg.Runtime {
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return fmt.Errorf("metrics: register go collector: %w", err)
		}
		if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return fmt.Errorf("metrics: register process collector: %w", err)
		}
	}

	return nil
}

// NewRegistry returns a registry holding the counters of m.
func NewRegistry(device string, m *session.Metrics, cfg *Config) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	if err := Register(reg, device, m, cfg); err != nil {
		return nil, err
	}

	return reg, nil
}

// WriteTextfile writes the metrics gathered from g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}

	return nil
}
