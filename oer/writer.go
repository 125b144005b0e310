package oer

import (
	"fmt"

	"golang.org/x/crypto/cryptobyte"
)

// Writer encodes OER values. The zero value is not usable; use NewWriter.
type Writer struct {
	b *cryptobyte.Builder
}

func NewWriter() *Writer {
	return &Writer{b: cryptobyte.NewBuilder(nil)}
}

func (w *Writer) WriteUint8(v uint8) { w.b.AddUint8(v) }

func (w *Writer) WriteUint16(v uint16) { w.b.AddUint16(v) }

func (w *Writer) WriteUint32(v uint32) { w.b.AddUint32(v) }

// Write appends p verbatim.
func (w *Writer) Write(p []byte) { w.b.AddBytes(p) }

// WriteLengthIndicator writes n in the shortest length-indicator form.
func (w *Writer) WriteLengthIndicator(n int) error {
	if n < 0 || n > MaxLength {
		return fmt.Errorf("%w: length %d outside [0,%d]", ErrUnsupportedLength, n, MaxLength)
	}
	if n < 0x80 {
		w.b.AddUint8(uint8(n))
		return nil
	}
	size := byteLen(uint32(n))
	w.b.AddUint8(0x80 | uint8(size))
	w.addBigEndian(uint32(n), size)
	return nil
}

// WriteVarUInt writes v as a length-prefixed unsigned integer.
func (w *Writer) WriteVarUInt(v uint32) error {
	if v > MaxLength {
		return fmt.Errorf("%w: varuint %d exceeds %d", ErrUnsupportedLength, v, MaxLength)
	}
	size := byteLen(v)
	w.b.AddUint8(uint8(size))
	w.addBigEndian(v, size)
	return nil
}

func (w *Writer) WriteOctetString(p []byte) error {
	if err := w.WriteLengthIndicator(len(p)); err != nil {
		return err
	}
	w.b.AddBytes(p)
	return nil
}

// WriteFixedOctetString writes p without a length indicator; p must be n bytes.
func (w *Writer) WriteFixedOctetString(p []byte, n int) error {
	if len(p) != n {
		return fmt.Errorf("%w: fixed octet string of %d bytes, expected %d", ErrUnsupportedLength, len(p), n)
	}
	w.b.AddBytes(p)
	return nil
}

func (w *Writer) WriteBoundedOctetString(p []byte, min, max int) error {
	if len(p) < min || len(p) > max {
		return fmt.Errorf("%w: octet string of %d bytes outside [%d,%d]", ErrUnsupportedLength, len(p), min, max)
	}
	return w.WriteOctetString(p)
}

// Bytes returns the encoded bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.b.BytesOrPanic()
}

func (w *Writer) addBigEndian(v uint32, size int) {
	for i := size - 1; i >= 0; i-- {
		w.b.AddUint8(uint8(v >> (8 * uint(i))))
	}
}

// LengthIndicatorSize returns the encoded size of a length indicator for n.
func LengthIndicatorSize(n int) int {
	if n < 0x80 {
		return 1
	}
	return 1 + byteLen(uint32(n))
}

// VarUIntSize returns the encoded size of v as a varuint.
func VarUIntSize(v uint32) int {
	return 1 + byteLen(v)
}

// OctetStringSize returns the encoded size of a length-prefixed octet string
// with n content bytes.
func OctetStringSize(n int) int {
	return LengthIndicatorSize(n) + n
}

func byteLen(v uint32) int {
	switch {
	case v <= 0xff:
		return 1
	case v <= 0xffff:
		return 2
	case v <= 0xffffff:
		return 3
	default:
		return 4
	}
}
