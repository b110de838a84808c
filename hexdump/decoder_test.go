package hexdump

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSilent = errors.New("silent")

// scriptSource replays a fixed byte sequence and then reports errSilent.
type scriptSource struct {
	data []byte
	pos  int
}

func newScript(s string) *scriptSource {
	return &scriptSource{data: []byte(s)}
}

func (s *scriptSource) ReadByte(_ context.Context, _ time.Duration) (byte, error) {
	if s.pos >= len(s.data) {
		return 0, errSilent
	}
	b := s.data[s.pos]
	s.pos++

	return b, nil
}

func TestDecoder_RoundTrip(t *testing.T) {
	d := NewDecoder(newScript("4142434445464748494A4B4C4D4E4F50\n"), time.Second)

	line, err := d.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint32(0), line.Address)
	assert.Equal(t, []byte("ABCDEFGHIJKLMNOP"), line.Data)
	assert.Equal(t, "ABCDEFGHIJKLMNOP", line.Preview)
	assert.Zero(t, line.Malformed)
	assert.Equal(t, uint32(16), d.Address())

	// The trailing terminator is the end of data.
	tail, err := d.Next(context.Background())
	require.ErrorIs(t, err, ErrEndOfData)
	assert.Empty(t, tail.Data)
	assert.Equal(t, uint32(16), tail.Address)
}

func TestDecoder_SpacesIgnoredAndAddressesAdvance(t *testing.T) {
	// Firmware word format: 8 digits followed by a space.
	var sb strings.Builder
	for i := 0; i < 3*4; i++ {
		sb.WriteString("00FF7F20 ")
	}
	d := NewDecoder(newScript(sb.String()), time.Second)

	for i := 0; i < 3; i++ {
		line, err := d.Next(context.Background())
		require.NoError(t, err)

		assert.Equal(t, uint32(16*i), line.Address)
		assert.Len(t, line.Data, BytesPerLine)
		assert.Len(t, line.Preview, BytesPerLine)
		assert.Equal(t, []byte{0x00, 0xFF, 0x7F, 0x20}, line.Data[:4])
		assert.Equal(t, strings.Repeat("... ", 4), line.Preview)
	}

	_, err := d.Next(context.Background())
	require.ErrorIs(t, err, errSilent)
}

func TestDecoder_PreviewMapping(t *testing.T) {
	d := NewDecoder(newScript("1F207E7F"+strings.Repeat("30", 12)), time.Second)

	line, err := d.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ". ~."+strings.Repeat("0", 12), line.Preview)
}

func TestDecoder_MalformedPairDoesNotAbortLine(t *testing.T) {
	d := NewDecoder(newScript("41ZZ43"+strings.Repeat("44", 13)+"\n"), time.Second)

	line, err := d.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, line.Malformed)
	assert.Equal(t, append([]byte("AC"), []byte(strings.Repeat("D", 13))...), line.Data)
	assert.Equal(t, "AC"+strings.Repeat("D", 13), line.Preview)
	assert.Equal(t, uint32(16), d.Address())
}

func TestDecoder_ShortLineIsEndOfData(t *testing.T) {
	d := NewDecoder(newScript("DEADBEEF \r\n"), time.Second)

	line, err := d.Next(context.Background())
	require.ErrorIs(t, err, ErrEndOfData)

	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, line.Data)
	assert.Equal(t, uint32(0), d.Address(), "partial lines do not advance the address")
}

func TestDecoder_SourceErrorReturnsPartialLine(t *testing.T) {
	d := NewDecoder(newScript("0102030"), time.Second)

	line, err := d.Next(context.Background())
	require.ErrorIs(t, err, errSilent)

	assert.Equal(t, []byte{1, 2, 3}, line.Data)
	assert.Equal(t, 1, line.Malformed, "dangling digit")
}

func TestRender(t *testing.T) {
	line := DecodedLine{
		Address: 0x10,
		Data:    []byte("ABCDEFGHIJKLMNOP"),
		Preview: "ABCDEFGHIJKLMNOP",
	}

	assert.Equal(t,
		"0x00000010: 41 42 43 44 45 46 47 48  49 4A 4B 4C 4D 4E 4F 50  |ABCDEFGHIJKLMNOP|",
		Render(line))

	partial := DecodedLine{Address: 0x20, Data: []byte{0xDE, 0xAD}, Preview: ".."}
	assert.Equal(t, "0x00000020: DE AD  |..|", Render(partial))
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, byte('.'), Printable(31))
	assert.Equal(t, byte(' '), Printable(32))
	assert.Equal(t, byte('~'), Printable(126))
	assert.Equal(t, byte('.'), Printable(127))
	assert.Equal(t, byte('.'), Printable(0xFF))
}
