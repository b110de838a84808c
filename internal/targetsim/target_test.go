package targetsim

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTarget(t *testing.T, opts ...Option) (*Target, *bufio.Reader, net.Conn) {
	t.Helper()

	local, remote := net.Pipe()
	tgt := New(remote, opts...)

	done := make(chan error, 1)
	go func() { done <- tgt.Serve() }()

	t.Cleanup(func() {
		_ = local.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Error("target did not stop")
		}
	})

	return tgt, bufio.NewReader(local), local
}

func sendLine(t *testing.T, conn net.Conn, cmd string) {
	t.Helper()

	_, err := conn.Write([]byte(cmd + "\n"))
	require.NoError(t, err)
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	line, err := r.ReadString('\n')
	require.NoError(t, err)

	return line
}

func TestTarget_ConfigureCommands(t *testing.T) {
	tgt, r, conn := newTestTarget(t)

	sendLine(t, conn, "A13")
	assert.Equal(t, "Start address set to 0x00000010\r\n", readLine(t, r))

	sendLine(t, conn, "L1d")
	assert.Equal(t, "Readout length set to 0x00000020\r\n", readLine(t, r))

	sendLine(t, conn, "H")
	assert.Equal(t, "Hex output mode selected\r\n", readLine(t, r))

	sendLine(t, conn, "E")
	assert.Equal(t, "Big Endian mode enabled\r\n", readLine(t, r))

	sendLine(t, conn, "?")
	assert.Equal(t, "ERROR: unknown command\r\n", readLine(t, r))

	assert.Equal(t, 5, tgt.Commands())
}

func TestTarget_HexReadout(t *testing.T) {
	mem := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	tgt, r, conn := newTestTarget(t, WithMemory(mem))

	sendLine(t, conn, "L8")
	readLine(t, r)
	sendLine(t, conn, "H")
	readLine(t, r)

	sendLine(t, conn, "S")
	assert.Equal(t, "Flash readout started!\r\n", readLine(t, r))
	assert.Equal(t, "11223344 55667788 \r\n", readLine(t, r))

	assert.Equal(t, Stats{Attempts: 2, Success: 2}, tgt.Stats())

	sendLine(t, conn, "P")
	assert.Equal(t, "Statistics: \r\n", readLine(t, r))
	assert.Equal(t, "Attempts: 0x00000002\r\n", readLine(t, r))
	assert.Equal(t, "Success: 0x00000002\r\n", readLine(t, r))
	assert.Equal(t, "Failure: 0x00000000\r\n", readLine(t, r))
}

func TestTarget_ErasedMemoryAndFailure(t *testing.T) {
	tgt, r, conn := newTestTarget(t, WithFailureAt(4, 0xE0))

	sendLine(t, conn, "L8")
	readLine(t, r)
	sendLine(t, conn, "H")
	readLine(t, r)
	sendLine(t, conn, "S")
	readLine(t, r)

	assert.Equal(t, "FFFFFFFF \r\n", readLine(t, r))

	trailer := readLine(t, r)
	assert.True(t, strings.HasPrefix(trailer, "!ExtractionFailure000000E0"), trailer)

	assert.Equal(t, Stats{Attempts: 2, Success: 1, Failure: 1}, tgt.Stats())
}
