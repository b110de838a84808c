package transfer

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
)

const (
	// Sentinel marks the start of the status trailer.
	Sentinel = '!'
	// TrailerLength is the number of bytes that follow the sentinel up to
	// and including the last status digit ("ExtractionFailure" + 8 digits).
	TrailerLength = 25
	// StatusDigits is the number of hexadecimal digits of the status word.
	StatusDigits = 8
)

// ErrMalformedStatus indicates that the last 8 trailer bytes are not hex.
var ErrMalformedStatus = errors.New("transfer: malformed status word")

// StatusFrame is the status word taken from the trailer.
type StatusFrame struct {
	Code protocol.StatusCode
	// Raw is the 8-digit text the code was parsed from.
	Raw string
}

// Describe returns the diagnostic for the frame's code.
func (f StatusFrame) Describe() string { return protocol.Describe(f.Code) }

// Monitor detects the end of a transfer and extracts the status trailer.
//
// The state moves only forward: Streaming → AwaitingTrailer → Finished.
// An inactivity timeout while Streaming means the data ended and the caller
// must send Pause; a second timeout, while the Pause response is drained,
// finishes the run whether or not a trailer was seen.
//
// Monitor is driven by a single goroutine. State may be read concurrently.
type Monitor struct {
	state    atomic.Uint32
	handlers []StateChangeHandler
	logger   logger.Logger

	sentinelSeen bool
	trailer      []byte
	frame        *StatusFrame
	err          error
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithStateChangeHandler registers handlers invoked on each transition.
func WithStateChangeHandler(handlers ...StateChangeHandler) Option {
	return func(m *Monitor) {
		m.handlers = append(m.handlers, handlers...)
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMonitor creates a Monitor in the Streaming state.
func NewMonitor(opts ...Option) *Monitor {
	m := &Monitor{
		logger:  logger.GetLogger(),
		trailer: make([]byte, 0, TrailerLength),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(uint32(Streaming))

	return m
}

// State returns the current state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// OnTimeout records an inactivity timeout and returns the action the
// caller must perform.
func (m *Monitor) OnTimeout() Action {
	switch m.State() {
	case Streaming:
		m.transition(Streaming, AwaitingTrailer)
		return ActionPause
	case AwaitingTrailer:
		m.transition(AwaitingTrailer, Finished)
		return ActionFinish
	default:
		return ActionNone
	}
}

// Observe scans one byte received after the data ended.
//
// The first sentinel starts the trailer; when its 25th byte arrives the
// last 8 bytes are parsed as the hexadecimal status word. Later sentinels
// and bytes are ignored, as is everything once Finished.
func (m *Monitor) Observe(b byte) {
	if m.State().IsFinished() || m.frame != nil || m.err != nil {
		return
	}

	if !m.sentinelSeen {
		if b == Sentinel {
			m.sentinelSeen = true
			m.logger.Debug("trailer sentinel received")
		}
		return
	}

	m.trailer = append(m.trailer, b)
	if len(m.trailer) < TrailerLength {
		return
	}

	raw := string(m.trailer[TrailerLength-StatusDigits:])
	code, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		m.err = fmt.Errorf("%w: %q", ErrMalformedStatus, raw)
		m.logger.Warn("malformed status word in trailer", "raw", raw)

		return
	}

	m.frame = &StatusFrame{Code: protocol.StatusCode(code), Raw: raw}
	m.logger.Debug("status word received", "code", m.frame.Code, "raw", raw)
}

// Status returns the parsed status frame, if one was received.
func (m *Monitor) Status() (StatusFrame, bool) {
	if m.frame == nil {
		return StatusFrame{}, false
	}

	return *m.frame, true
}

// Err returns the trailer parse error, if any.
func (m *Monitor) Err() error {
	return m.err
}

func (m *Monitor) transition(prev, next State) {
	m.state.Store(uint32(next))
	m.logger.Debug("transfer state changed", "prev", prev, "next", next)

	for _, h := range m.handlers {
		if h != nil {
			h(prev, next)
		}
	}
}
