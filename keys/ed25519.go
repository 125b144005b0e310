package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
)

// GenerateEd25519 returns a fresh Ed25519 key pair.
func GenerateEd25519(random io.Reader) (pub, priv []byte, err error) {
	if random == nil {
		random = rand.Reader
	}
	p, s, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, nil, fmt.Errorf("ed25519 key generation failed: %w", err)
	}
	return []byte(p), []byte(s), nil
}

// Ed25519FromSeed expands a 32-byte seed into a key pair.
func Ed25519FromSeed(seed []byte) (pub, priv []byte, err error) {
	if len(seed) != ed25519.SeedSize {
		return nil, nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	s := ed25519.NewKeyFromSeed(seed)
	p, ok := s.Public().(ed25519.PublicKey)
	if !ok {
		return nil, nil, errors.New("ed25519: unexpected public key type")
	}
	return []byte(p), []byte(s), nil
}

// DeriveSeed deterministically derives a labelled Ed25519 seed from a root seed.
func DeriveSeed(p Provider, rootSeed []byte, label string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckLabel(label); err != nil {
		return nil, err
	}
	material := make([]byte, 0, len(rootSeed)+len(label)+40)
	material = append(material, rootSeed...)
	material = append(material, 0)
	material = append(material, "xdao-cryptoconditions-seed-v1"...)
	material = append(material, 0)
	material = append(material, "label:"...)
	material = append(material, label...)
	sum := p.SHA256(material)
	out := make([]byte, ed25519.SeedSize)
	copy(out, sum[:])
	return out, nil
}

func CheckLabel(label string) error {
	if label == "" {
		return errors.New("label cannot be empty")
	}
	for _, char := range label {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in label", char)
	}
	return nil
}

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}
