// Package cidutil builds the content identifiers used to address encoded
// conditions and fulfillments.
package cidutil

import (
	"bytes"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	c, err := CIDv1RawSHA256CID(data)
	if err != nil {
		return ""
	}
	return c.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// Parse decodes a CID string and requires the raw codec with a sha2-256 multihash.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if c.Type() != cid.Raw {
		return cid.Undef, fmt.Errorf("cid %s: codec 0x%x is not raw", s, c.Type())
	}
	if c.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("cid %s: multihash 0x%x is not sha2-256", s, c.Prefix().MhType)
	}
	return c, nil
}

// Matches reports whether data hashes to c.
func Matches(c cid.Cid, data []byte) bool {
	if !c.Defined() {
		return false
	}
	got, err := c.Prefix().Sum(data)
	if err != nil {
		return false
	}
	return got.Equals(c)
}

// Fingerprint wraps an existing digest as a multihash without rehashing.
// Hashed fingerprints are tagged sha2-256; raw key material is tagged identity.
func Fingerprint(fp []byte, hashed bool) (multihash.Multihash, error) {
	code := uint64(multihash.IDENTITY)
	if hashed {
		code = multihash.SHA2_256
		if len(fp) != 32 {
			return nil, fmt.Errorf("sha2-256 fingerprint must be 32 bytes, got %d", len(fp))
		}
	}
	return multihash.Encode(bytes.Clone(fp), code)
}
