package cc

import (
	"fmt"
	"reflect"

	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

// MaxNesting bounds how deeply prefix and threshold fulfillments may nest.
const MaxNesting = 64

var defaultProvider keys.Provider = keys.Default{}

// Fulfillment is a proof satisfying a condition. The set of implementations
// is closed: *Preimage, *PrefixSha256, *ThresholdSha256, *RsaSha256 and
// *Ed25519.
type Fulfillment interface {
	Type() Type

	payload(p keys.Provider) ([]byte, error)
	derive(p keys.Provider) (Condition, error)
	validate(p keys.Provider, message []byte) (bool, error)
}

// Derive computes the condition f fulfills.
func Derive(f Fulfillment) (Condition, error) {
	return DeriveWith(defaultProvider, f)
}

func DeriveWith(p keys.Provider, f Fulfillment) (Condition, error) {
	if isNil(f) {
		return Condition{}, newError(KindIncompleteFulfillment, RuleMissingField, "missing fulfillment")
	}
	return f.derive(p)
}

// Validate reports whether f satisfies its own condition for message.
// A well-formed fulfillment that does not verify yields false and no error.
func Validate(f Fulfillment, message []byte) (bool, error) {
	return ValidateWith(defaultProvider, f, message)
}

func ValidateWith(p keys.Provider, f Fulfillment, message []byte) (bool, error) {
	if isNil(f) {
		return false, newError(KindIncompleteFulfillment, RuleMissingField, "missing fulfillment")
	}
	return f.validate(p, message)
}

// ValidateAgainst validates f for message and additionally requires that f
// derives exactly cond.
func ValidateAgainst(f Fulfillment, cond Condition, message []byte) (bool, error) {
	return ValidateAgainstWith(defaultProvider, f, cond, message)
}

func ValidateAgainstWith(p keys.Provider, f Fulfillment, cond Condition, message []byte) (bool, error) {
	got, err := DeriveWith(p, f)
	if err != nil {
		return false, err
	}
	if !got.Equal(cond) {
		return false, nil
	}
	return f.validate(p, message)
}

// EncodeFulfillment returns the canonical encoding: u16 type followed by the
// type-specific payload as an octet string.
func EncodeFulfillment(f Fulfillment) ([]byte, error) {
	return EncodeFulfillmentWith(defaultProvider, f)
}

func EncodeFulfillmentWith(p keys.Provider, f Fulfillment) ([]byte, error) {
	w := oer.NewWriter()
	if err := writeFulfillment(p, w, f); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeFulfillment(p keys.Provider, w *oer.Writer, f Fulfillment) error {
	if isNil(f) {
		return newError(KindIncompleteFulfillment, RuleMissingField, "missing fulfillment")
	}
	body, err := f.payload(p)
	if err != nil {
		return err
	}
	w.WriteUint16(uint16(f.Type()))
	return codecError(w.WriteOctetString(body), "fulfillment payload")
}

// DecodeFulfillment parses a canonical fulfillment encoding. Trailing bytes are rejected.
func DecodeFulfillment(b []byte) (Fulfillment, error) {
	return decodeFulfillment(b, 0)
}

func decodeFulfillment(b []byte, depth int) (Fulfillment, error) {
	r := oer.NewReader(b)
	f, err := readFulfillment(r, depth)
	if err != nil {
		return nil, err
	}
	if !r.Empty() {
		return nil, newError(KindInvalidFulfillment, RuleTrailingBytes, fmt.Sprintf("%d trailing bytes after fulfillment", r.Len()))
	}
	return f, nil
}

func readFulfillment(r *oer.Reader, depth int) (Fulfillment, error) {
	code, err := r.ReadUint16()
	if err != nil {
		return nil, codecError(err, "fulfillment type")
	}
	body, err := r.ReadOctetString()
	if err != nil {
		return nil, codecError(err, "fulfillment payload")
	}
	return decodePayload(Type(code), body, depth)
}

func decodePayload(t Type, body []byte, depth int) (Fulfillment, error) {
	if depth > MaxNesting {
		return nil, newError(KindInvalidFulfillment, RuleNesting, fmt.Sprintf("fulfillment nesting exceeds %d levels", MaxNesting))
	}
	if t == TypePreimage {
		return NewPreimage(body), nil
	}
	r := oer.NewReader(body)
	var (
		f   Fulfillment
		err error
	)
	switch t {
	case TypePrefixSha256:
		f, err = readPrefixPayload(r, depth)
	case TypeThresholdSha256:
		f, err = readThresholdPayload(r, depth)
	case TypeRsaSha256:
		f, err = readRsaPayload(r)
	case TypeEd25519:
		f, err = readEd25519Payload(r)
	default:
		return nil, newError(KindUnknownType, RuleUnknownType, fmt.Sprintf("unknown fulfillment type %d", uint16(t)))
	}
	if err != nil {
		return nil, err
	}
	if !r.Empty() {
		return nil, newError(KindInvalidFulfillment, RuleTrailingBytes, fmt.Sprintf("%d trailing bytes in %s payload", r.Len(), t))
	}
	return f, nil
}

func isNil(f Fulfillment) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
