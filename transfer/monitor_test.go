package transfer

import (
	"strings"
	"testing"

	"github.com/arloliu/go-fwextract/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(m *Monitor, s string) {
	for i := 0; i < len(s); i++ {
		m.Observe(s[i])
	}
}

func TestMonitor_DoubleTimeoutFinishes(t *testing.T) {
	var transitions [][2]State
	m := NewMonitor(WithStateChangeHandler(func(prev, next State) {
		transitions = append(transitions, [2]State{prev, next})
	}))

	require.Equal(t, Streaming, m.State())

	assert.Equal(t, ActionPause, m.OnTimeout())
	assert.Equal(t, AwaitingTrailer, m.State())

	assert.Equal(t, ActionFinish, m.OnTimeout())
	assert.Equal(t, Finished, m.State())

	assert.Equal(t, ActionNone, m.OnTimeout(), "finished is terminal")
	assert.Equal(t, Finished, m.State())

	assert.Equal(t, [][2]State{
		{Streaming, AwaitingTrailer},
		{AwaitingTrailer, Finished},
	}, transitions)

	_, ok := m.Status()
	assert.False(t, ok, "no sentinel, no status")
	assert.NoError(t, m.Err())
}

func TestMonitor_TrailerParsed(t *testing.T) {
	m := NewMonitor()

	feed(m, "\n!ExtractionFailure000000A0\r\n")

	frame, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusFaultAfter, frame.Code)
	assert.Equal(t, "000000A0", frame.Raw)
	assert.True(t, frame.Code.IsFault())
	assert.Equal(t, protocol.Describe(protocol.StatusFaultAfter), frame.Describe())
}

func TestMonitor_TrailerNeedsAllBytes(t *testing.T) {
	m := NewMonitor()

	// One digit short of the 25 bytes following the sentinel.
	feed(m, "!ExtractionFailure0000002")

	_, ok := m.Status()
	assert.False(t, ok)

	m.Observe('0')
	frame, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusOK, frame.Code)
}

func TestMonitor_OnlyFirstSentinelCounts(t *testing.T) {
	m := NewMonitor()

	feed(m, "noise !ExtractionFailure00000080 then !ExtractionFailure00000020")

	frame, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusFault, frame.Code)
}

func TestMonitor_SentinelInsideTrailerIsData(t *testing.T) {
	m := NewMonitor()

	feed(m, "!"+strings.Repeat("!", 17)+"00000006")

	frame, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusWaitOK, frame.Code)
}

func TestMonitor_MalformedStatus(t *testing.T) {
	m := NewMonitor()

	feed(m, "!ExtractionFailure0000ZZ20")

	_, ok := m.Status()
	assert.False(t, ok)
	require.ErrorIs(t, m.Err(), ErrMalformedStatus)
}

func TestMonitor_FullWordKept(t *testing.T) {
	m := NewMonitor()

	feed(m, "!ExtractionFailure12345678")

	frame, ok := m.Status()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusCode(0x12345678), frame.Code)
	assert.Equal(t, protocol.UnknownStatus, frame.Describe())
}

func TestMonitor_ObserveIgnoredWhenFinished(t *testing.T) {
	m := NewMonitor()
	m.OnTimeout()
	m.OnTimeout()

	feed(m, "!ExtractionFailure00000020")

	_, ok := m.Status()
	assert.False(t, ok)
}

func TestStateAndActionStrings(t *testing.T) {
	assert.Equal(t, "streaming", Streaming.String())
	assert.Equal(t, "awaiting-trailer", AwaitingTrailer.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "unknown", State(9).String())

	assert.True(t, Streaming.IsStreaming())
	assert.True(t, AwaitingTrailer.IsAwaitingTrailer())
	assert.True(t, Finished.IsFinished())

	assert.Equal(t, "pause", ActionPause.String())
	assert.Equal(t, "finish", ActionFinish.String())
	assert.Equal(t, "none", ActionNone.String())
}
