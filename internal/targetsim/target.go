// Package targetsim provides a simulated extraction target that speaks the
// serial command protocol over any io.ReadWriteCloser, typically one end of
// a net.Pipe.
package targetsim

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/arloliu/go-fwextract/logger"
	"github.com/arloliu/go-fwextract/protocol"
)

// ErasedByte fills memory beyond the configured image.
const ErasedByte = 0xFF

const wordSize = 4

// Stats holds the extraction counters the target reports on 'P'.
type Stats struct {
	Attempts uint32
	Success  uint32
	Failure  uint32
}

// Target is a simulated extraction target.
type Target struct {
	conn   io.ReadWriteCloser
	w      *bufio.Writer
	logger logger.Logger

	mem []byte

	address      uint32
	length       uint32
	hexMode      bool
	littleEndian bool

	failAt     int64
	failStatus uint32
	silentEnd  bool
	garbageFor byte

	attempts atomic.Uint32
	success  atomic.Uint32
	failure  atomic.Uint32
	commands atomic.Uint32
}

// Option configures a Target.
type Option func(*Target)

// WithMemory sets the memory image; reads beyond it return ErasedByte.
func WithMemory(mem []byte) Option {
	return func(t *Target) { t.mem = mem }
}

// WithFailureAt makes the read at readout offset fail with status.
func WithFailureAt(offset uint32, status uint32) Option {
	return func(t *Target) {
		t.failAt = int64(offset)
		t.failStatus = status
	}
}

// WithSilentEnd suppresses the line break after the last word, so the host
// only sees the stream stop.
func WithSilentEnd() Option {
	return func(t *Target) { t.silentEnd = true }
}

// WithGarbageResponse makes the target answer the command code with
// non-ASCII bytes.
func WithGarbageResponse(code byte) Option {
	return func(t *Target) { t.garbageFor = code }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Target) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Target serving conn. It starts with the power-on defaults:
// address 0, length 64 KiB, binary mode, little endian.
func New(conn io.ReadWriteCloser, opts ...Option) *Target {
	t := &Target{
		conn:         conn,
		w:            bufio.NewWriter(conn),
		logger:       logger.GetLogger().With("component", "targetsim"),
		length:       64 * 1024,
		littleEndian: true,
		failAt:       -1,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Stats returns the counters of the last extraction.
func (t *Target) Stats() Stats {
	return Stats{
		Attempts: t.attempts.Load(),
		Success:  t.success.Load(),
		Failure:  t.failure.Load(),
	}
}

// Commands returns the number of commands executed.
func (t *Target) Commands() int {
	return int(t.commands.Load())
}

// Serve executes commands until the connection is closed. A closed
// connection is not an error.
func (t *Target) Serve() error {
	r := bufio.NewReader(t.conn)
	var cmd []byte

	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}

			return err
		}

		switch b {
		case '\t':
		case '\r', '\n':
			if err := t.exec(cmd); err != nil {
				if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
					return nil
				}

				return err
			}
			cmd = cmd[:0]
		default:
			cmd = append(cmd, b)
		}
	}
}

// Close closes the connection.
func (t *Target) Close() error {
	return t.conn.Close()
}

func (t *Target) exec(cmd []byte) error {
	if len(cmd) == 0 {
		return nil
	}

	t.commands.Add(1)
	t.logger.Debug("command received", "command", string(cmd))

	if t.garbageFor != 0 && cmd[0] == t.garbageFor {
		t.send("\xff\xfe\x80\r\n")
		return t.w.Flush()
	}

	switch cmd[0] {
	case 'a', 'A':
		t.address = parseHexPrefix(cmd[1:]) &^ (wordSize - 1)
		t.send(fmt.Sprintf("Start address set to 0x%08X\r\n", t.address))
	case 'l', 'L':
		t.length = (parseHexPrefix(cmd[1:]) + wordSize - 1) &^ (wordSize - 1)
		t.send(fmt.Sprintf("Readout length set to 0x%08X\r\n", t.length))
	case 'b', 'B':
		t.hexMode = false
		t.send("Binary output mode selected\r\n")
	case protocol.CodeLittleEndian:
		t.littleEndian = true
		t.send("Little Endian mode enabled\r\n")
	case protocol.CodeBigEndian:
		t.littleEndian = false
		t.send("Big Endian mode enabled\r\n")
	case 'h', 'H':
		t.hexMode = true
		t.send("Hex output mode selected\r\n")
	case 'p', 'P':
		st := t.Stats()
		t.send("Statistics: \r\n")
		t.send(fmt.Sprintf("Attempts: 0x%08X\r\n", st.Attempts))
		t.send(fmt.Sprintf("Success: 0x%08X\r\n", st.Success))
		t.send(fmt.Sprintf("Failure: 0x%08X\r\n", st.Failure))
	case 's', 'S':
		t.send("Flash readout started!\r\n")
		if err := t.w.Flush(); err != nil {
			return err
		}
		t.readout()
	default:
		t.send("ERROR: unknown command\r\n")
	}

	return t.w.Flush()
}

// readout streams the configured range word by word.
func (t *Target) readout() {
	t.attempts.Store(0)
	t.success.Store(0)
	t.failure.Store(0)

	for idx := uint32(0); idx < t.length; idx += wordSize {
		t.attempts.Add(1)

		if t.failAt >= 0 && int64(idx) >= t.failAt {
			t.failure.Add(1)
			if t.hexMode {
				t.send(fmt.Sprintf("\r\n!ExtractionFailure%08X", t.failStatus))
			}
			break
		}

		t.success.Add(1)
		word := t.word(t.address + idx)

		if t.hexMode {
			t.send(t.hexWord(word) + " ")
		} else {
			t.sendBinWord(word)
		}
	}

	if t.hexMode && !t.silentEnd {
		t.send("\r\n")
	}
}

func (t *Target) word(addr uint32) [wordSize]byte {
	var w [wordSize]byte
	for i := range w {
		a := int(addr) + i
		if a < len(t.mem) {
			w[i] = t.mem[a]
		} else {
			w[i] = ErasedByte
		}
	}

	return w
}

// hexWord renders a memory word. Little endian keeps memory order.
func (t *Target) hexWord(w [wordSize]byte) string {
	v := binary.LittleEndian.Uint32(w[:])
	if t.littleEndian {
		v = binary.BigEndian.Uint32(w[:])
	}

	return fmt.Sprintf("%08X", v)
}

func (t *Target) sendBinWord(w [wordSize]byte) {
	if !t.littleEndian {
		w[0], w[1], w[2], w[3] = w[3], w[2], w[1], w[0]
	}
	_, _ = t.w.Write(w[:])
}

func (t *Target) send(s string) {
	_, _ = t.w.WriteString(s)
}

// parseHexPrefix parses leading hex digits and ignores the rest.
func parseHexPrefix(b []byte) uint32 {
	end := 0
	for end < len(b) && end < 8 && isHex(b[end]) {
		end++
	}
	if end == 0 {
		return 0
	}

	v, _ := strconv.ParseUint(string(b[:end]), 16, 32)

	return uint32(v)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
