package cc

import (
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/cryptoconditions/keys"
)

var (
	rsaOnce sync.Once
	rsaKey  *rsa.PrivateKey
	rsaErr  error
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	rsaOnce.Do(func() { rsaKey, rsaErr = keys.GenerateRSA(nil, 1024) })
	require.NoError(t, rsaErr)
	return rsaKey
}

func testEd25519Key(t *testing.T, label byte) (pub, priv []byte) {
	t.Helper()
	seed := make([]byte, keys.Ed25519SeedSize)
	for i := range seed {
		seed[i] = label + byte(i)
	}
	pub, priv, err := keys.Ed25519FromSeed(seed)
	require.NoError(t, err)
	return pub, priv
}

func mustDerive(t *testing.T, f Fulfillment) Condition {
	t.Helper()
	c, err := Derive(f)
	require.NoError(t, err)
	return c
}

func mustEncode(t *testing.T, f Fulfillment) []byte {
	t.Helper()
	b, err := EncodeFulfillment(f)
	require.NoError(t, err)
	return b
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, IsKind(err, kind), "expected kind %s, got %v", kind, err)
}
