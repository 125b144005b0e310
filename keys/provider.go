package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha256" // registers crypto.SHA256 for PSS/MGF1
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cloudflare/circl/sign/ed25519"
	sha256simd "github.com/minio/sha256-simd"
)

const (
	// RSAPublicExponent is the only public exponent RSA-SHA-256 conditions accept.
	RSAPublicExponent = 65537
	// PSSSaltLength is the RSASSA-PSS salt length in bytes.
	PSSSaltLength = 32

	Ed25519PublicKeySize  = ed25519.PublicKeySize
	Ed25519PrivateKeySize = ed25519.PrivateKeySize
	Ed25519SignatureSize  = ed25519.SignatureSize
	Ed25519SeedSize       = ed25519.SeedSize
)

var ErrPublicExponent = errors.New("keys: RSA public exponent must be 65537")

// Provider supplies digest and signature operations.
type Provider interface {
	SHA256(message []byte) [32]byte
	SignRSAPSS(priv *rsa.PrivateKey, message []byte) ([]byte, error)
	VerifyRSAPSS(pub *rsa.PublicKey, message, signature []byte) bool
	// SignEd25519 signs with a 64-byte private key (seed followed by public key).
	SignEd25519(priv []byte, message []byte) ([]byte, error)
	VerifyEd25519(pub, message, signature []byte) bool
}

// Default implements Provider with RSASSA-PSS (SHA-256, MGF1-SHA-256,
// 32-byte salt, trailer field 1) and Ed25519.
type Default struct {
	// Rand is the entropy source for PSS salts. Nil means crypto/rand.
	Rand io.Reader
}

var _ Provider = Default{}

var pssOptions = &rsa.PSSOptions{SaltLength: PSSSaltLength, Hash: crypto.SHA256}

func (Default) SHA256(message []byte) [32]byte {
	return sha256simd.Sum256(message)
}

func (d Default) SignRSAPSS(priv *rsa.PrivateKey, message []byte) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("keys: missing RSA private key")
	}
	if priv.E != RSAPublicExponent {
		return nil, ErrPublicExponent
	}
	digest := d.SHA256(message)
	return rsa.SignPSS(d.rand(), priv, crypto.SHA256, digest[:], pssOptions)
}

func (d Default) VerifyRSAPSS(pub *rsa.PublicKey, message, signature []byte) bool {
	if pub == nil || pub.N == nil {
		return false
	}
	digest := d.SHA256(message)
	return rsa.VerifyPSS(pub, crypto.SHA256, digest[:], signature, pssOptions) == nil
}

func (Default) SignEd25519(priv []byte, message []byte) ([]byte, error) {
	if l := len(priv); l != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes, got %d", ed25519.PrivateKeySize, l)
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), message), nil
}

func (Default) VerifyEd25519(pub, message, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}

func (d Default) rand() io.Reader {
	if d.Rand != nil {
		return d.Rand
	}
	return rand.Reader
}

// RSAPublicKey returns the RSA public key for modulus with the fixed exponent.
func RSAPublicKey(modulus *big.Int) *rsa.PublicKey {
	return &rsa.PublicKey{N: new(big.Int).Set(modulus), E: RSAPublicExponent}
}

// GenerateRSA generates an RSA key with the fixed public exponent.
func GenerateRSA(random io.Reader, bits int) (*rsa.PrivateKey, error) {
	if random == nil {
		random = rand.Reader
	}
	priv, err := rsa.GenerateKey(random, bits)
	if err != nil {
		return nil, err
	}
	if priv.E != RSAPublicExponent {
		return nil, ErrPublicExponent
	}
	return priv, nil
}
