package cc

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/oer"
)

// FingerprintSize is the fingerprint length of every defined condition type.
const FingerprintSize = 32

// Condition is a public commitment to a fulfillment predicate.
//
// Conditions are produced by Derive or by decoding canonical bytes; the zero
// value is not a valid condition.
type Condition struct {
	typ         Type
	features    Features
	fingerprint []byte
	maxLength   int
}

func newCondition(t Type, features Features, fingerprint []byte, maxLength int) (Condition, error) {
	c := Condition{typ: t, features: features, fingerprint: bytes.Clone(fingerprint), maxLength: maxLength}
	if err := c.check(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

func (c Condition) Type() Type { return c.typ }

func (c Condition) Features() Features { return c.features }

// Fingerprint returns a copy of the fingerprint bytes.
func (c Condition) Fingerprint() []byte { return bytes.Clone(c.fingerprint) }

// MaxFulfillmentLength bounds the payload size of any fulfillment for c.
// For PREFIX-SHA-256 and RSA-SHA-256 the bound is nominal: the prefix bound
// leaves out the subfulfillment's type and length header, and the RSA bound
// leaves out the wider length indicators of 512-byte fields, so a payload (or
// a threshold holding such a member) may exceed it by a few bytes.
func (c Condition) MaxFulfillmentLength() int { return c.maxLength }

func (c Condition) IsZero() bool { return c.fingerprint == nil }

func (c Condition) Equal(other Condition) bool {
	return c.typ == other.typ &&
		c.features == other.features &&
		c.maxLength == other.maxLength &&
		bytes.Equal(c.fingerprint, other.fingerprint)
}

func (c Condition) String() string {
	return c.URI()
}

func (c Condition) check() error {
	if !c.typ.Known() {
		return newError(KindUnknownType, RuleUnknownType, fmt.Sprintf("unknown condition type %d", uint16(c.typ)))
	}
	if !c.features.valid() {
		return newError(KindInvalidCondition, RuleFeatures, fmt.Sprintf("invalid feature bitmask 0x%02x", uint8(c.features)))
	}
	if !c.features.Contains(c.typ.BaseFeatures()) {
		return newError(KindInvalidCondition, RuleFeatures, fmt.Sprintf("%s condition is missing base features (%s)", c.typ, c.typ.BaseFeatures()))
	}
	if len(c.fingerprint) != FingerprintSize {
		return newError(KindInvalidCondition, RuleFingerprintLength, fmt.Sprintf("fingerprint must be %d bytes, got %d", FingerprintSize, len(c.fingerprint)))
	}
	if c.maxLength < 0 || c.maxLength > oer.MaxLength {
		return newError(KindUnsupportedLength, RuleUnsupportedLength, fmt.Sprintf("max fulfillment length %d outside [0,%d]", c.maxLength, oer.MaxLength))
	}
	return nil
}

// Encode returns the canonical encoding:
// u16 type, octet string fingerprint, varuint max length, varuint feature bitmask.
func (c Condition) Encode() ([]byte, error) {
	w := oer.NewWriter()
	if err := c.writeTo(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (c Condition) writeTo(w *oer.Writer) error {
	w.WriteUint16(uint16(c.typ))
	if err := w.WriteOctetString(c.fingerprint); err != nil {
		return codecError(err, "condition fingerprint")
	}
	if err := w.WriteVarUInt(uint32(c.maxLength)); err != nil {
		return codecError(err, "condition max fulfillment length")
	}
	if err := w.WriteVarUInt(uint32(c.features)); err != nil {
		return codecError(err, "condition features")
	}
	return nil
}

func (c Condition) encodedSize() int {
	return 2 + oer.OctetStringSize(len(c.fingerprint)) + oer.VarUIntSize(uint32(c.maxLength)) + oer.VarUIntSize(uint32(c.features))
}

// DecodeCondition parses a canonical condition encoding. Trailing bytes are rejected.
func DecodeCondition(b []byte) (Condition, error) {
	r := oer.NewReader(b)
	c, err := readCondition(r)
	if err != nil {
		return Condition{}, err
	}
	if !r.Empty() {
		return Condition{}, newError(KindInvalidCondition, RuleTrailingBytes, fmt.Sprintf("%d trailing bytes after condition", r.Len()))
	}
	return c, nil
}

func readCondition(r *oer.Reader) (Condition, error) {
	code, err := r.ReadUint16()
	if err != nil {
		return Condition{}, codecError(err, "condition type")
	}
	fp, err := r.ReadOctetString()
	if err != nil {
		return Condition{}, codecError(err, "condition fingerprint")
	}
	maxLength, err := r.ReadVarUInt()
	if err != nil {
		return Condition{}, codecError(err, "condition max fulfillment length")
	}
	mask, err := r.ReadVarUInt()
	if err != nil {
		return Condition{}, codecError(err, "condition features")
	}
	if mask > 0xff {
		return Condition{}, newError(KindInvalidCondition, RuleFeatures, fmt.Sprintf("invalid feature bitmask 0x%x", mask))
	}
	return newCondition(Type(code), Features(mask), fp, int(maxLength))
}

// CID returns the CIDv1 (raw, sha2-256) of the canonical encoding.
func (c Condition) CID() (cid.Cid, error) {
	enc, err := c.Encode()
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.CIDv1RawSHA256CID(enc)
}

// Multihash returns the fingerprint as a multihash. Ed25519 fingerprints are
// the public key itself and are tagged identity.
func (c Condition) Multihash() (multihash.Multihash, error) {
	return cidutil.Fingerprint(c.fingerprint, c.typ != TypeEd25519)
}
