package cc

import (
	"fmt"
	"math/big"

	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

const (
	rsaMinModulusBytes = 128
	rsaMaxModulusBytes = 512
	// Two 512-byte octet strings, each counted with a 2-byte length.
	rsaMaxFulfillmentLength = rsaMaxModulusBytes + 2 + rsaMaxModulusBytes + 2
)

// RsaSha256 is fulfilled by an RSASSA-PSS signature. The public exponent is
// fixed at 65537 and is not carried.
type RsaSha256 struct {
	modulus   *big.Int
	signature []byte
}

func NewRsaSha256(modulus *big.Int, signature []byte) (*RsaSha256, error) {
	f := &RsaSha256{signature: cloneBytes(signature)}
	if modulus != nil {
		f.modulus = new(big.Int).Set(modulus)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}

func (*RsaSha256) Type() Type { return TypeRsaSha256 }

func (f *RsaSha256) Modulus() *big.Int {
	if f == nil || f.modulus == nil {
		return nil
	}
	return new(big.Int).Set(f.modulus)
}

func (f *RsaSha256) Signature() []byte {
	if f == nil {
		return nil
	}
	return cloneBytes(f.signature)
}

func (f *RsaSha256) check() error {
	if f == nil || f.modulus == nil || f.signature == nil {
		return newError(KindIncompleteFulfillment, RuleMissingField, "rsa fulfillment requires a modulus and a signature")
	}
	if f.modulus.Sign() <= 0 {
		return newError(KindInvalidFulfillment, RuleRSAModulusRange, "rsa modulus must be positive")
	}
	modLen := len(f.modulus.Bytes())
	if modLen < rsaMinModulusBytes || modLen > rsaMaxModulusBytes {
		return newError(KindInvalidFulfillment, RuleRSAModulusRange, fmt.Sprintf("rsa modulus of %d bytes outside [%d,%d]", modLen, rsaMinModulusBytes, rsaMaxModulusBytes))
	}
	if len(f.signature) != modLen {
		return newError(KindInvalidFulfillment, RuleRSASignatureLength, fmt.Sprintf("rsa signature of %d bytes does not match %d-byte modulus", len(f.signature), modLen))
	}
	if new(big.Int).SetBytes(f.signature).Cmp(f.modulus) >= 0 {
		return newError(KindInvalidFulfillment, RuleRSASignatureValue, "rsa signature is not less than the modulus")
	}
	return nil
}

func (f *RsaSha256) payload(keys.Provider) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	w := oer.NewWriter()
	if err := w.WriteOctetString(f.modulus.Bytes()); err != nil {
		return nil, codecError(err, "rsa modulus")
	}
	if err := w.WriteOctetString(f.signature); err != nil {
		return nil, codecError(err, "rsa signature")
	}
	return w.Bytes(), nil
}

func readRsaPayload(r *oer.Reader) (Fulfillment, error) {
	mod, err := r.ReadBoundedOctetString(rsaMinModulusBytes, rsaMaxModulusBytes)
	if err != nil {
		return nil, codecError(err, "rsa modulus")
	}
	sig, err := r.ReadBoundedOctetString(rsaMinModulusBytes, rsaMaxModulusBytes)
	if err != nil {
		return nil, codecError(err, "rsa signature")
	}
	if mod[0] == 0 {
		return nil, newError(KindInvalidFulfillment, RuleRSAModulusRange, "rsa modulus has a leading zero byte")
	}
	f := &RsaSha256{modulus: new(big.Int).SetBytes(mod), signature: sig}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RsaSha256) derive(p keys.Provider) (Condition, error) {
	if err := f.check(); err != nil {
		return Condition{}, err
	}
	w := oer.NewWriter()
	if err := w.WriteOctetString(f.modulus.Bytes()); err != nil {
		return Condition{}, codecError(err, "rsa modulus")
	}
	sum := p.SHA256(w.Bytes())
	return newCondition(TypeRsaSha256, TypeRsaSha256.BaseFeatures(), sum[:], rsaMaxFulfillmentLength)
}

func (f *RsaSha256) validate(p keys.Provider, message []byte) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	return p.VerifyRSAPSS(keys.RSAPublicKey(f.modulus), message, f.signature), nil
}
