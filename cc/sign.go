package cc

import (
	"crypto/rsa"
	"fmt"

	"xdao.co/cryptoconditions/keys"
)

// SignEd25519 signs message with a 64-byte Ed25519 private key (seed followed
// by public key) and returns the resulting fulfillment.
func SignEd25519(p keys.Provider, priv []byte, message []byte) (*Ed25519, error) {
	if p == nil {
		p = defaultProvider
	}
	if len(priv) != keys.Ed25519PrivateKeySize {
		return nil, newError(KindInvalidFulfillment, RuleEd25519Length, fmt.Sprintf("ed25519 private key must be %d bytes, got %d", keys.Ed25519PrivateKeySize, len(priv)))
	}
	sig, err := p.SignEd25519(priv, message)
	if err != nil {
		return nil, wrapError(KindCrypto, RuleSign, "ed25519 signing failed", err)
	}
	return NewEd25519(priv[keys.Ed25519SeedSize:], sig)
}

// SignRsaSha256 signs message with RSASSA-PSS. Keys whose public exponent is
// not 65537 are rejected.
func SignRsaSha256(p keys.Provider, priv *rsa.PrivateKey, message []byte) (*RsaSha256, error) {
	if p == nil {
		p = defaultProvider
	}
	if priv == nil || priv.N == nil {
		return nil, newError(KindIncompleteFulfillment, RuleMissingField, "missing rsa private key")
	}
	if priv.E != keys.RSAPublicExponent {
		return nil, newError(KindInvalidFulfillment, RuleRSAExponent, fmt.Sprintf("rsa public exponent must be %d, got %d", keys.RSAPublicExponent, priv.E))
	}
	sig, err := p.SignRSAPSS(priv, message)
	if err != nil {
		return nil, wrapError(KindCrypto, RuleSign, "rsa-pss signing failed", err)
	}
	return NewRsaSha256(priv.N, sig)
}
