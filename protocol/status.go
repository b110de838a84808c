package protocol

import "fmt"

// StatusCode is the 32-bit status word the target prints after the trailer
// sentinel.
//
// The firmware prints a full word but only ever uses the low byte; codes are
// compared as 32-bit values, so a word with any upper bit set is unknown.
type StatusCode uint32

// Status codes reported by the target.
const (
	StatusOK          StatusCode = 0x20
	StatusWait        StatusCode = 0x40
	StatusWaitOK      StatusCode = 0x06
	StatusFault       StatusCode = 0x80
	StatusFaultAfter  StatusCode = 0xA0
	StatusCommFailure StatusCode = 0xE0
)

// UnknownStatus is the description of any unlisted code.
const UnknownStatus = "Unknown status code"

var statusText = map[StatusCode]string{
	StatusOK:          "Status OK",
	StatusWait:        "Wait/Retry requested (bus access not granted in time)",
	StatusWaitOK:      "Wait requested + additional OK (previous command OK, no bus access)",
	StatusFault:       "Fault during command execution (access denied, etc.)",
	StatusFaultAfter:  "Fault after successful execution (likely invalid memory address)",
	StatusCommFailure: "Communication failure (check connection / no valid reply)",
}

// Describe returns the meaning of code.
func Describe(code StatusCode) string {
	if text, ok := statusText[code]; ok {
		return text
	}

	return UnknownStatus
}

// Describe returns the meaning of c.
func (c StatusCode) Describe() string { return Describe(c) }

// IsFault reports whether c means the extraction failed.
func (c StatusCode) IsFault() bool {
	return c == StatusFault || c == StatusFaultAfter || c == StatusCommFailure
}

// IsKnown reports whether c is listed in the status table.
func (c StatusCode) IsKnown() bool {
	_, ok := statusText[c]
	return ok
}

// String renders c as hexadecimal with at least two digits.
func (c StatusCode) String() string {
	return fmt.Sprintf("0x%02X", uint32(c))
}
