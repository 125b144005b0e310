// Package keys provides the cryptographic primitives crypto-conditions rely on.
//
// Provider is the boundary between the condition library and the signature
// and digest implementations. Default is stateless: every call hashes or
// signs with fresh state, so a single Default value may be shared between
// goroutines.
//
// The package also carries deterministic key helpers (seed parsing and
// label-based seed derivation) used by the ccond CLI and by tests.
package keys
