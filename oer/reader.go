// Package oer implements the restricted subset of the Octet Encoding Rules
// used for crypto-condition wire values.
//
// Supported shapes:
//   - fixed-width big-endian unsigned integers (8, 16 and 32 bits)
//   - length indicators with at most 3 length-of-length bytes
//   - variable-length unsigned integers of 1 to 3 content bytes
//   - octet strings: unbounded, fixed-length and [min,max]-bounded
//
// Encodings are canonical: writers always produce the shortest form and
// readers reject anything else, so a value has exactly one byte form.
package oer

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// MaxLength is the largest length (and varuint value) this encoding supports.
const MaxLength = 1<<24 - 1

// Reader decodes OER values from a byte slice.
type Reader struct {
	s cryptobyte.String
}

func NewReader(b []byte) *Reader {
	return &Reader{s: cryptobyte.String(b)}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.s) }

func (r *Reader) Empty() bool { return r.s.Empty() }

func (r *Reader) ReadUint8() (uint8, error) {
	var v uint8
	if !r.s.ReadUint8(&v) {
		return 0, ErrUnexpectedEnd
	}
	return v, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	var v uint16
	if !r.s.ReadUint16(&v) {
		return 0, ErrUnexpectedEnd
	}
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	var v uint32
	if !r.s.ReadUint32(&v) {
		return 0, ErrUnexpectedEnd
	}
	return v, nil
}

// ReadLengthIndicator reads a short-form or long-form length indicator.
func (r *Reader) ReadLengthIndicator() (int, error) {
	first, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if first < 0x80 {
		return int(first), nil
	}
	if first == 0x80 {
		return 0, fmt.Errorf("%w: indefinite length (0x80) is not supported", ErrIllegalLengthIndicator)
	}
	n := int(first & 0x7f)
	if n > 3 {
		return 0, fmt.Errorf("%w: %d length-of-length bytes, at most 3 supported", ErrUnsupportedLength, n)
	}
	raw, err := r.take(n)
	if err != nil {
		return 0, err
	}
	if raw[0] == 0 {
		return 0, fmt.Errorf("%w: length indicator has leading zero byte", ErrNonCanonical)
	}
	length := bigEndian(raw)
	if length < 0x80 {
		return 0, fmt.Errorf("%w: long-form length indicator for %d", ErrNonCanonical, length)
	}
	return length, nil
}

// ReadVarUInt reads a length-prefixed unsigned integer of 1 to 3 bytes.
func (r *Reader) ReadVarUInt() (uint32, error) {
	n, err := r.ReadLengthIndicator()
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 3 {
		return 0, fmt.Errorf("%w: varuint of %d bytes, expected 1 to 3", ErrUnsupportedLength, n)
	}
	raw, err := r.take(n)
	if err != nil {
		return 0, err
	}
	if n > 1 && raw[0] == 0 {
		return 0, fmt.Errorf("%w: varuint has leading zero byte", ErrNonCanonical)
	}
	return uint32(bigEndian(raw)), nil
}

// ReadOctetString reads a length-prefixed octet string of any supported length.
func (r *Reader) ReadOctetString() ([]byte, error) {
	return r.ReadBoundedOctetString(0, MaxLength)
}

// ReadFixedOctetString reads exactly n bytes without a length indicator.
func (r *Reader) ReadFixedOctetString(n int) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	raw, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// ReadBoundedOctetString reads a length-prefixed octet string whose length
// must fall within [min,max].
func (r *Reader) ReadBoundedOctetString(min, max int) ([]byte, error) {
	n, err := r.ReadLengthIndicator()
	if err != nil {
		return nil, err
	}
	if n < min {
		return nil, fmt.Errorf("%w: octet string of %d bytes is shorter than %d", ErrUnsupportedLength, n, min)
	}
	if n > max {
		return nil, fmt.Errorf("%w: octet string of %d bytes is longer than %d", ErrUnsupportedLength, n, max)
	}
	return r.ReadFixedOctetString(n)
}

func (r *Reader) take(n int) ([]byte, error) {
	var raw []byte
	if !r.s.ReadBytes(&raw, n) {
		return nil, ErrUnexpectedEnd
	}
	return raw, nil
}

func bigEndian(raw []byte) int {
	v := 0
	for _, b := range raw {
		v = v<<8 | int(b)
	}
	return v
}
