package oer

import "errors"

// Decoding and encoding errors. Callers match them with errors.Is; the
// returned errors usually wrap them with detail.
var (
	ErrUnexpectedEnd          = errors.New("oer: unexpected end of input")
	ErrUnsupportedLength      = errors.New("oer: unsupported length")
	ErrIllegalLengthIndicator = errors.New("oer: illegal length indicator")
	ErrNonCanonical           = errors.New("oer: non-canonical encoding")
)
