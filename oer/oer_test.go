package oer

import (
	"bytes"
	"errors"
	"testing"
)

func TestLengthIndicatorBoundary(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{255, []byte{0x81, 0xff}},
		{256, []byte{0x82, 0x01, 0x00}},
		{65536, []byte{0x83, 0x01, 0x00, 0x00}},
		{MaxLength, []byte{0x83, 0xff, 0xff, 0xff}},
	}
	for _, tc := range cases {
		w := NewWriter()
		if err := w.WriteLengthIndicator(tc.n); err != nil {
			t.Fatalf("WriteLengthIndicator(%d): %v", tc.n, err)
		}
		if got := w.Bytes(); !bytes.Equal(got, tc.want) {
			t.Fatalf("WriteLengthIndicator(%d) = % x, want % x", tc.n, got, tc.want)
		}
		if LengthIndicatorSize(tc.n) != len(tc.want) {
			t.Fatalf("LengthIndicatorSize(%d) = %d, want %d", tc.n, LengthIndicatorSize(tc.n), len(tc.want))
		}
		got, err := NewReader(tc.want).ReadLengthIndicator()
		if err != nil {
			t.Fatalf("ReadLengthIndicator(% x): %v", tc.want, err)
		}
		if got != tc.n {
			t.Fatalf("ReadLengthIndicator(% x) = %d, want %d", tc.want, got, tc.n)
		}
	}
}

func TestLengthIndicatorRejects(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"indefinite", []byte{0x80}, ErrIllegalLengthIndicator},
		{"four length bytes", []byte{0x84, 0x01, 0x00, 0x00, 0x00}, ErrUnsupportedLength},
		{"truncated long form", []byte{0x82, 0x01}, ErrUnexpectedEnd},
		{"empty", nil, ErrUnexpectedEnd},
		{"long form for short length", []byte{0x81, 0x05}, ErrNonCanonical},
		{"leading zero", []byte{0x82, 0x00, 0xff}, ErrNonCanonical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(tc.in).ReadLengthIndicator()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got err=%v want %v", err, tc.want)
			}
		})
	}
}

func TestWriteLengthIndicatorTooLarge(t *testing.T) {
	if err := NewWriter().WriteLengthIndicator(MaxLength + 1); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("got err=%v want ErrUnsupportedLength", err)
	}
}

func TestVarUInt(t *testing.T) {
	cases := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x01, 0x00}},
		{1, []byte{0x01, 0x01}},
		{255, []byte{0x01, 0xff}},
		{256, []byte{0x02, 0x01, 0x00}},
		{MaxLength, []byte{0x03, 0xff, 0xff, 0xff}},
	}
	for _, tc := range cases {
		w := NewWriter()
		if err := w.WriteVarUInt(tc.v); err != nil {
			t.Fatalf("WriteVarUInt(%d): %v", tc.v, err)
		}
		if got := w.Bytes(); !bytes.Equal(got, tc.want) {
			t.Fatalf("WriteVarUInt(%d) = % x, want % x", tc.v, got, tc.want)
		}
		if VarUIntSize(tc.v) != len(tc.want) {
			t.Fatalf("VarUIntSize(%d) = %d, want %d", tc.v, VarUIntSize(tc.v), len(tc.want))
		}
		got, err := NewReader(tc.want).ReadVarUInt()
		if err != nil || got != tc.v {
			t.Fatalf("ReadVarUInt(% x) = %d, %v; want %d", tc.want, got, err, tc.v)
		}
	}

	if err := NewWriter().WriteVarUInt(MaxLength + 1); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength for oversized varuint, got %v", err)
	}
	if _, err := NewReader([]byte{0x04, 1, 2, 3, 4}).ReadVarUInt(); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength for 4-byte varuint, got %v", err)
	}
	if _, err := NewReader([]byte{0x00}).ReadVarUInt(); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength for empty varuint, got %v", err)
	}
	if _, err := NewReader([]byte{0x02, 0x00, 0x05}).ReadVarUInt(); !errors.Is(err, ErrNonCanonical) {
		t.Fatalf("expected ErrNonCanonical for padded varuint, got %v", err)
	}
}

func TestFixedWidthIntegers(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(0xab)
	w.WriteUint16(0x0102)
	w.WriteUint32(0xdeadbeef)
	want := []byte{0xab, 0x01, 0x02, 0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x want % x", w.Bytes(), want)
	}

	r := NewReader(want)
	u8, _ := r.ReadUint8()
	u16, _ := r.ReadUint16()
	u32, err := r.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if u8 != 0xab || u16 != 0x0102 || u32 != 0xdeadbeef {
		t.Fatalf("unexpected values %x %x %x", u8, u16, u32)
	}
	if !r.Empty() {
		t.Fatalf("expected reader to be drained, %d bytes left", r.Len())
	}
	if _, err := r.ReadUint32(); !errors.Is(err, ErrUnexpectedEnd) {
		t.Fatalf("expected ErrUnexpectedEnd, got %v", err)
	}
}

func TestOctetStrings(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5a}, 200)

	w := NewWriter()
	if err := w.WriteOctetString(payload); err != nil {
		t.Fatalf("WriteOctetString: %v", err)
	}
	if err := w.WriteFixedOctetString([]byte{1, 2, 3}, 3); err != nil {
		t.Fatalf("WriteFixedOctetString: %v", err)
	}
	if err := w.WriteBoundedOctetString([]byte{9, 9}, 1, 4); err != nil {
		t.Fatalf("WriteBoundedOctetString: %v", err)
	}
	enc := w.Bytes()
	if len(enc) != OctetStringSize(200)+3+OctetStringSize(2) {
		t.Fatalf("unexpected encoded size %d", len(enc))
	}

	r := NewReader(enc)
	got, err := r.ReadOctetString()
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("ReadOctetString: %v", err)
	}
	fixed, err := r.ReadFixedOctetString(3)
	if err != nil || !bytes.Equal(fixed, []byte{1, 2, 3}) {
		t.Fatalf("ReadFixedOctetString: % x %v", fixed, err)
	}
	bounded, err := r.ReadBoundedOctetString(1, 4)
	if err != nil || !bytes.Equal(bounded, []byte{9, 9}) {
		t.Fatalf("ReadBoundedOctetString: % x %v", bounded, err)
	}

	empty, err := NewReader(nil).ReadFixedOctetString(0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("zero-length fixed read: %v", err)
	}
}

func TestOctetStringBoundsAndTruncation(t *testing.T) {
	if _, err := NewReader([]byte{0x02, 1, 2}).ReadBoundedOctetString(3, 10); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength below min, got %v", err)
	}
	if _, err := NewReader([]byte{0x02, 1, 2}).ReadBoundedOctetString(0, 1); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength above max, got %v", err)
	}
	if _, err := NewReader([]byte{0x05, 1, 2}).ReadOctetString(); !errors.Is(err, ErrUnexpectedEnd) {
		t.Fatalf("expected ErrUnexpectedEnd, got %v", err)
	}
	if err := NewWriter().WriteFixedOctetString([]byte{1}, 2); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength for wrong fixed length, got %v", err)
	}
	if err := NewWriter().WriteBoundedOctetString(make([]byte, 5), 0, 4); !errors.Is(err, ErrUnsupportedLength) {
		t.Fatalf("expected ErrUnsupportedLength for bounded write, got %v", err)
	}
}

func TestReadOctetStringDoesNotAlias(t *testing.T) {
	in := []byte{0x02, 0xaa, 0xbb}
	got, err := NewReader(in).ReadOctetString()
	if err != nil {
		t.Fatalf("ReadOctetString: %v", err)
	}
	in[1] = 0x00
	if got[0] != 0xaa {
		t.Fatalf("decoded octet string aliases the input buffer")
	}
}
