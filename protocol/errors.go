package protocol

import "errors"

// ErrInvalidByteOrder indicates a byte order other than "little" or "big".
var ErrInvalidByteOrder = errors.New("protocol: invalid byte order")
