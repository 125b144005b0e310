package cc

import (
	"fmt"

	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

const ed25519MaxFulfillmentLength = keys.Ed25519PublicKeySize + keys.Ed25519SignatureSize

// Ed25519 is fulfilled by an Ed25519 signature. The fingerprint is the
// public key itself.
type Ed25519 struct {
	publicKey []byte
	signature []byte
}

func NewEd25519(publicKey, signature []byte) (*Ed25519, error) {
	f := &Ed25519{publicKey: cloneBytes(publicKey), signature: cloneBytes(signature)}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}

func (*Ed25519) Type() Type { return TypeEd25519 }

func (f *Ed25519) PublicKey() []byte {
	if f == nil {
		return nil
	}
	return cloneBytes(f.publicKey)
}

func (f *Ed25519) Signature() []byte {
	if f == nil {
		return nil
	}
	return cloneBytes(f.signature)
}

func (f *Ed25519) check() error {
	if f == nil || f.publicKey == nil || f.signature == nil {
		return newError(KindIncompleteFulfillment, RuleMissingField, "ed25519 fulfillment requires a public key and a signature")
	}
	if len(f.publicKey) != keys.Ed25519PublicKeySize {
		return newError(KindInvalidFulfillment, RuleEd25519Length, fmt.Sprintf("ed25519 public key must be %d bytes, got %d", keys.Ed25519PublicKeySize, len(f.publicKey)))
	}
	if len(f.signature) != keys.Ed25519SignatureSize {
		return newError(KindInvalidFulfillment, RuleEd25519Length, fmt.Sprintf("ed25519 signature must be %d bytes, got %d", keys.Ed25519SignatureSize, len(f.signature)))
	}
	return nil
}

func (f *Ed25519) payload(keys.Provider) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, ed25519MaxFulfillmentLength)
	out = append(out, f.publicKey...)
	return append(out, f.signature...), nil
}

func readEd25519Payload(r *oer.Reader) (Fulfillment, error) {
	pub, err := r.ReadFixedOctetString(keys.Ed25519PublicKeySize)
	if err != nil {
		return nil, codecError(err, "ed25519 public key")
	}
	sig, err := r.ReadFixedOctetString(keys.Ed25519SignatureSize)
	if err != nil {
		return nil, codecError(err, "ed25519 signature")
	}
	return &Ed25519{publicKey: pub, signature: sig}, nil
}

func (f *Ed25519) derive(keys.Provider) (Condition, error) {
	if err := f.check(); err != nil {
		return Condition{}, err
	}
	return newCondition(TypeEd25519, TypeEd25519.BaseFeatures(), f.publicKey, ed25519MaxFulfillmentLength)
}

func (f *Ed25519) validate(p keys.Provider, message []byte) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	return p.VerifyEd25519(f.publicKey, message, f.signature), nil
}
