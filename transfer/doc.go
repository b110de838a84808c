// Package transfer tracks the end of an extraction transfer.
//
// The target has no end-of-transfer marker: a transfer is over when the line
// goes quiet. Monitor turns inactivity timeouts into explicit state
// transitions and returns the follow-up Action to the caller instead of
// acting on its own, and it scans the bytes after the data for the
// "!"-prefixed status trailer.
package transfer
