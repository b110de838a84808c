package hexdump

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// BytesPerLine is the payload size of one complete line.
	BytesPerLine = 16
	// DigitsPerLine is the number of hex digits in one complete line.
	DigitsPerLine = 2 * BytesPerLine
)

// ErrEndOfData is returned by Decoder.Next when a line terminator arrives
// before a line is complete. The target sends it once after the last word.
var ErrEndOfData = errors.New("hexdump: end of data")

// ByteSource delivers single bytes bounded by an inactivity deadline.
// *channel.Channel implements it.
type ByteSource interface {
	ReadByte(ctx context.Context, timeout time.Duration) (byte, error)
}

// DecodedLine is one line of the hex stream.
//
// Lines returned without error are complete: 32 hex digits were consumed
// and Address advanced by 16 afterwards. Data holds fewer than 16 bytes only
// if Malformed pairs were skipped, or if the line is the partial tail
// returned together with an error.
type DecodedLine struct {
	Address   uint32
	Data      []byte
	Preview   string
	Malformed int
}

// Decoder turns the target's hex text stream into DecodedLines.
//
// Addresses are synthesized locally, starting at 0 and advancing by 16 for
// each complete line. Decoder is not goroutine-safe.
type Decoder struct {
	src     ByteSource
	timeout time.Duration
	next    uint32
}

// NewDecoder creates a Decoder reading from src; every byte read is bounded
// by timeout.
func NewDecoder(src ByteSource, timeout time.Duration) *Decoder {
	return &Decoder{src: src, timeout: timeout}
}

// Address returns the address the next line will carry.
func (d *Decoder) Address() uint32 { return d.next }

// Next reads and decodes one line.
//
// Spaces are ignored. A hex pair that does not parse is skipped: it adds no
// byte and no preview character, increments Malformed, and decoding goes on.
// A line terminator before 32 digits yields the partial line and
// ErrEndOfData. A source error (for example a read timeout) yields the
// partial line and that error unchanged.
func (d *Decoder) Next(ctx context.Context) (DecodedLine, error) {
	line := DecodedLine{
		Address: d.next,
		Data:    make([]byte, 0, BytesPerLine),
	}

	var preview strings.Builder
	var pair [2]byte

	for digits := 0; digits < DigitsPerLine; {
		b, err := d.src.ReadByte(ctx, d.timeout)
		if err != nil {
			finish(&line, &preview, digits)
			return line, err
		}

		switch b {
		case ' ':
			continue
		case '\r', '\n':
			finish(&line, &preview, digits)
			return line, ErrEndOfData
		}

		pair[digits%2] = b
		digits++

		if digits%2 == 0 {
			appendPair(&line, &preview, pair)
		}
	}

	line.Preview = preview.String()
	d.next += BytesPerLine

	return line, nil
}

func appendPair(line *DecodedLine, preview *strings.Builder, pair [2]byte) {
	v, err := strconv.ParseUint(string(pair[:]), 16, 8)
	if err != nil {
		line.Malformed++
		return
	}

	line.Data = append(line.Data, byte(v))
	preview.WriteByte(Printable(byte(v)))
}

// finish closes an interrupted line; a dangling half pair counts as malformed.
func finish(line *DecodedLine, preview *strings.Builder, digits int) {
	if digits%2 == 1 {
		line.Malformed++
	}
	line.Preview = preview.String()
}

// Printable returns b if it is a printable ASCII character, '.' otherwise.
func Printable(b byte) byte {
	if b >= 32 && b <= 126 {
		return b
	}

	return '.'
}
