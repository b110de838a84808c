package protocol

import (
	"fmt"
	"strings"
)

// LineTerminator ends every command sent to the target.
const LineTerminator = '\n'

// Command codes understood by the extraction firmware.
const (
	CodeSetAddress   = 'A'
	CodeSetLength    = 'L'
	CodeHexMode      = 'H'
	CodeBinaryMode   = 'B'
	CodeLittleEndian = 'e'
	CodeBigEndian    = 'E'
	CodeStart        = 'S'
	CodePause        = 'P'
)

// Command is an immutable textual command for the target.
//
// Echo commands have their whole response forwarded to the user until the
// line goes quiet; other commands have their response consumed up to the
// first line terminator.
type Command struct {
	code string
	echo bool
}

// Code returns the command text without terminator.
func (c Command) Code() string { return c.code }

// Echo reports whether the response is forwarded verbatim.
func (c Command) Echo() bool { return c.echo }

// Wire returns the bytes written to the device.
func (c Command) Wire() []byte {
	b := make([]byte, 0, len(c.code)+1)
	b = append(b, c.code...)

	return append(b, LineTerminator)
}

// String returns the command code.
func (c Command) String() string { return c.code }

// SetAddress selects the first address to read. The address is rendered as
// upper-case hexadecimal without prefix.
func SetAddress(addr uint32) Command {
	return Command{code: fmt.Sprintf("%c%X", CodeSetAddress, addr)}
}

// SetLength selects the number of bytes to read.
func SetLength(n uint32) Command {
	return Command{code: fmt.Sprintf("%c%X", CodeSetLength, n)}
}

// HexMode selects the hexadecimal text transfer the decoder understands.
func HexMode() Command { return Command{code: string(rune(CodeHexMode))} }

// BinaryMode selects raw binary transfer. The extractor never sends it; it
// exists for manual use from the interactive shell.
func BinaryMode() Command { return Command{code: string(rune(CodeBinaryMode))} }

// ByteOrderCommand selects the word byte order of the transfer.
func ByteOrderCommand(order ByteOrder) Command {
	if order == BigEndian {
		return Command{code: string(rune(CodeBigEndian))}
	}

	return Command{code: string(rune(CodeLittleEndian))}
}

// Start begins streaming.
func Start() Command { return Command{code: string(rune(CodeStart))} }

// Pause asks the target to stop and print its trailer. Its response is
// echoed.
func Pause() Command { return Command{code: string(rune(CodePause)), echo: true} }

// Raw builds an echo command from free text, as typed in the interactive
// shell. Surrounding whitespace and embedded line breaks are removed.
func Raw(code string) Command {
	code = strings.TrimSpace(code)
	code = strings.NewReplacer("\r", "", "\n", "").Replace(code)

	return Command{code: code, echo: true}
}

// ByteOrder is the word byte order of the transfer.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// String returns "little" or "big".
func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}

	return "little"
}

// ParseByteOrder parses "little" or "big".
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little":
		return LittleEndian, nil
	case "big":
		return BigEndian, nil
	default:
		return LittleEndian, fmt.Errorf("%w: %q, choose \"little\" or \"big\"", ErrInvalidByteOrder, s)
	}
}
