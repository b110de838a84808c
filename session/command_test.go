package session

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-fwextract/internal/targetsim"
	"github.com/arloliu/go-fwextract/protocol"
)

func TestNewCommandSession_NilArguments(t *testing.T) {
	ch, _ := newTestTarget(t)
	cfg := newTestConfig(t)

	_, err := NewCommandSession(nil, cfg)
	require.ErrorIs(t, err, ErrChannelNil)

	_, err = NewCommandSession(ch, nil)
	require.ErrorIs(t, err, ErrConfigNil)
}

func TestSend_ReturnsResponseLine(t *testing.T) {
	ch, _ := newTestTarget(t)
	var echo bytes.Buffer

	s, err := NewCommandSession(ch, newTestConfig(t), WithEchoWriter(&echo))
	require.NoError(t, err)

	ctx := context.Background()

	resp, err := s.Send(ctx, protocol.HexMode())
	require.NoError(t, err)
	assert.Equal(t, "Hex output mode selected", resp)

	// the '\n' of the previous "\r\n" must not be read as an empty response
	resp, err = s.Send(ctx, protocol.SetAddress(0x102))
	require.NoError(t, err)
	assert.Equal(t, "Start address set to 0x00000100", resp)

	resp, err = s.Send(ctx, protocol.SetLength(0x11))
	require.NoError(t, err)
	assert.Equal(t, "Readout length set to 0x00000014", resp)

	assert.Equal(t, "Hex output mode selected\nStart address set to 0x00000100\nReadout length set to 0x00000014\n", echo.String())
	assert.Equal(t, uint64(3), s.Metrics().CommandCount.Load())
}

func TestSend_UndecodableResponse(t *testing.T) {
	ch, _ := newTestTarget(t, targetsim.WithGarbageResponse('H'))

	s, err := NewCommandSession(ch, newTestConfig(t))
	require.NoError(t, err)

	_, err = s.Send(context.Background(), protocol.HexMode())
	require.ErrorIs(t, err, ErrUndecodableResponse)
	assert.Contains(t, err.Error(), "target may already be running")
}

func TestSend_ContextCanceled(t *testing.T) {
	ch := newSilentDevice(t)

	s, err := NewCommandSession(ch, newTestConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = s.Send(ctx, protocol.HexMode())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSend_SettleDelay(t *testing.T) {
	ch, _ := newTestTarget(t)

	s, err := NewCommandSession(ch, newTestConfig(t, WithSettleDelay(80*time.Millisecond)))
	require.NoError(t, err)

	begin := time.Now()
	_, err = s.Send(context.Background(), protocol.HexMode())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(begin), 80*time.Millisecond)
}

func TestSend_SettleDelayCanceled(t *testing.T) {
	ch, tgt := newTestTarget(t)

	s, err := NewCommandSession(ch, newTestConfig(t, WithSettleDelay(time.Second)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Send(ctx, protocol.HexMode())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, tgt.Commands())
}

func TestSendEchoFunc_ForwardsUntilQuiet(t *testing.T) {
	ch, _ := newTestTarget(t)
	var echo bytes.Buffer
	var observed []byte

	s, err := NewCommandSession(ch, newTestConfig(t), WithEchoWriter(&echo))
	require.NoError(t, err)

	begin := time.Now()
	err = s.SendEchoFunc(context.Background(), protocol.Pause(), func(b byte) {
		observed = append(observed, b)
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(begin), MinInactivityTimeout)

	out := echo.String()
	assert.True(t, strings.HasPrefix(out, "Statistics: \r\n"), out)
	assert.Contains(t, out, "Attempts: 0x00000000\r\n")
	assert.Contains(t, out, "Failure: 0x00000000\r\n")
	assert.Equal(t, out, string(observed))
}

func TestSend_EchoCommandDelegates(t *testing.T) {
	ch, _ := newTestTarget(t)
	var echo bytes.Buffer

	s, err := NewCommandSession(ch, newTestConfig(t), WithEchoWriter(&echo))
	require.NoError(t, err)

	resp, err := s.Send(context.Background(), protocol.Raw(" x \n"))
	require.NoError(t, err)
	assert.Empty(t, resp)
	assert.Equal(t, "ERROR: unknown command\r\n", echo.String())
}
