// Package cc implements crypto-conditions: conditions (public commitments
// to a predicate) and the fulfillments that satisfy them.
//
// A Fulfillment is one of *Preimage, *PrefixSha256, *ThresholdSha256,
// *RsaSha256 or *Ed25519. Derive turns a fulfillment into its Condition,
// Validate checks it against a message, and EncodeFulfillment/
// DecodeFulfillment and Condition.Encode/DecodeCondition convert to and from
// the canonical binary form. Every value has exactly one encoding; decoders
// reject non-canonical input.
//
// Wire layout:
//
//	condition   = u16 type, octets fingerprint, varuint maxlen, varuint features
//	fulfillment = u16 type, octets payload
//
// Payloads:
//
//	preimage  = raw preimage bytes
//	prefix    = octets prefix, fulfillment
//	threshold = varuint threshold, varuint count, count × octets entry
//	entry     = varuint weight, u8 tag (1 fulfillment, 0 condition), octets body
//	rsa       = octets modulus, octets signature
//	ed25519   = 32-byte public key, 64-byte signature
//
// Feature bitmask: sha-256 0x01, preimage 0x02, prefix 0x04, threshold 0x08,
// rsa-pss 0x10, ed25519 0x20.
//
// Values are immutable after construction and safe for concurrent use.
package cc
