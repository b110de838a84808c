package hexdump

import (
	"fmt"
	"strings"
)

// Render formats line the way it is shown to the user:
//
//	0x00000010: 41 42 43 44 45 46 47 48  49 4A 4B 4C 4D 4E 4F 50  |ABCDEFGHIJKLMNOP|
//
// Bytes are separated by one space with an extra space after the eighth.
// The separators exist only in the rendering, never in the payload.
func Render(line DecodedLine) string {
	var sb strings.Builder
	sb.Grow(12 + 3*BytesPerLine + 4 + BytesPerLine)

	fmt.Fprintf(&sb, "0x%08X: ", line.Address)

	for i, b := range line.Data {
		if i > 0 {
			sb.WriteByte(' ')
			if i%8 == 0 {
				sb.WriteByte(' ')
			}
		}
		fmt.Fprintf(&sb, "%02X", b)
	}

	sb.WriteString("  |")
	sb.WriteString(line.Preview)
	sb.WriteByte('|')

	return sb.String()
}
