package keys

import (
	"bytes"
	"crypto/sha256"
	"strings"
	"testing"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func TestSHA256MatchesStdlib(t *testing.T) {
	msg := []byte("crypto-conditions")
	want := sha256.Sum256(msg)
	if got := (Default{}).SHA256(msg); got != want {
		t.Fatalf("SHA256 mismatch: %x vs %x", got, want)
	}
}

func TestEd25519SignVerify(t *testing.T) {
	pub, priv, err := GenerateEd25519(&deterministicReader{})
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	p := Default{}
	sig, err := p.SignEd25519(priv, []byte("hello"))
	if err != nil {
		t.Fatalf("SignEd25519: %v", err)
	}
	if len(sig) != Ed25519SignatureSize {
		t.Fatalf("unexpected signature size %d", len(sig))
	}
	if !p.VerifyEd25519(pub, []byte("hello"), sig) {
		t.Fatalf("signature did not verify")
	}
	if p.VerifyEd25519(pub, []byte("hellp"), sig) {
		t.Fatalf("signature verified for a different message")
	}
	if p.VerifyEd25519(pub[:31], []byte("hello"), sig) {
		t.Fatalf("short public key must not verify")
	}
	if _, err := p.SignEd25519(priv[:32], []byte("hello")); err == nil {
		t.Fatalf("expected error for short private key")
	}
}

func TestRSAPSSSignVerify(t *testing.T) {
	priv, err := GenerateRSA(nil, 1024)
	if err != nil {
		t.Fatalf("GenerateRSA: %v", err)
	}
	p := Default{}
	sig, err := p.SignRSAPSS(priv, []byte("pay 10 units"))
	if err != nil {
		t.Fatalf("SignRSAPSS: %v", err)
	}
	if len(sig) != priv.Size() {
		t.Fatalf("signature size %d, want %d", len(sig), priv.Size())
	}
	pub := RSAPublicKey(priv.N)
	if !p.VerifyRSAPSS(pub, []byte("pay 10 units"), sig) {
		t.Fatalf("signature did not verify")
	}
	if p.VerifyRSAPSS(pub, []byte("pay 11 units"), sig) {
		t.Fatalf("signature verified for a different message")
	}

	priv.E = 3
	if _, err := p.SignRSAPSS(priv, []byte("x")); err != ErrPublicExponent {
		t.Fatalf("expected ErrPublicExponent, got %v", err)
	}
}

func TestDeriveSeedDeterministic(t *testing.T) {
	root := make([]byte, Ed25519SeedSize)
	for i := range root {
		root[i] = byte(i)
	}
	p := Default{}
	a, err := DeriveSeed(p, root, "escrow")
	if err != nil {
		t.Fatalf("DeriveSeed: %v", err)
	}
	b, _ := DeriveSeed(p, root, "escrow")
	if !bytes.Equal(a, b) {
		t.Fatalf("expected deterministic derivation")
	}
	c, _ := DeriveSeed(p, root, "refund")
	if bytes.Equal(a, c) {
		t.Fatalf("expected different labels to derive different seeds")
	}
	if _, err := DeriveSeed(p, root, "bad label"); err == nil {
		t.Fatalf("expected invalid label error")
	}

	pub1, _, err := Ed25519FromSeed(a)
	if err != nil {
		t.Fatalf("Ed25519FromSeed: %v", err)
	}
	pub2, _, _ := Ed25519FromSeed(a)
	if !bytes.Equal(pub1, pub2) {
		t.Fatalf("expected deterministic public key")
	}
}

func TestParseSeedHex(t *testing.T) {
	seed, err := ParseSeedHex("0x" + strings.Repeat("ab", 32) + "\n")
	if err != nil {
		t.Fatalf("ParseSeedHex: %v", err)
	}
	if len(seed) != Ed25519SeedSize || seed[0] != 0xab {
		t.Fatalf("unexpected seed % x", seed)
	}
	if _, err := ParseSeedHex("abcd"); err == nil {
		t.Fatalf("expected length error")
	}
}
