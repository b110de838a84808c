// Package channel provides the raw byte transport between the host and the
// extraction target.
//
// A Channel offers two read flavours: ReadByte, bounded by a per-call
// inactivity deadline, and ReadByteWait, bounded only by its context. Each
// deadline-bounded read arms its own timer and disarms it as soon as a byte
// arrives, so there is no shared alarm that could fire against an unrelated
// read. Bytes that arrive after a read timed out are kept for the next read.
//
// OpenSerial opens a device node with go.bug.st/serial; New wraps any
// io.ReadWriteCloser, which is how tests drive a Channel over net.Pipe.
package channel
