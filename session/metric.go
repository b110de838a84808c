package session

import (
	"sync/atomic"
)

// Metrics contains atomic counters for command and extraction sessions.
// Metrics can be used as the value of a prometheus CounterFunc.
type Metrics struct {
	// CommandCount indicates the number of commands written to the target.
	CommandCount atomic.Uint64
	// LineCount indicates the number of complete hex lines decoded.
	LineCount atomic.Uint64
	// ByteCount indicates the number of bytes written to the output sink.
	ByteCount atomic.Uint64
	// MalformedCount indicates the number of skipped hex pairs.
	MalformedCount atomic.Uint64
	// TimeoutCount indicates the number of inactivity timeouts that drove
	// the transfer monitor.
	TimeoutCount atomic.Uint64
	// FaultCount indicates the number of runs that ended with a fault status.
	FaultCount atomic.Uint64
	// RunCount indicates the number of extraction runs started.
	RunCount atomic.Uint64
}

func (m *Metrics) incCommandCount() {
	m.CommandCount.Add(1)
}

func (m *Metrics) incLineCount() {
	m.LineCount.Add(1)
}

func (m *Metrics) addByteCount(n int) {
	m.ByteCount.Add(uint64(n))
}

func (m *Metrics) addMalformedCount(n int) {
	m.MalformedCount.Add(uint64(n))
}

func (m *Metrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *Metrics) incFaultCount() {
	m.FaultCount.Add(1)
}

func (m *Metrics) incRunCount() {
	m.RunCount.Add(1)
}
