package cc

import (
	"fmt"
	"strings"
)

// Type identifies a condition type. The numeric value is the wire code used
// by both conditions and fulfillments.
type Type uint16

const (
	TypePreimage        Type = 0
	TypePrefixSha256    Type = 1
	TypeThresholdSha256 Type = 2
	TypeRsaSha256       Type = 3
	TypeEd25519         Type = 4
)

var typeNames = map[Type]string{
	TypePreimage:        "preimage-sha-256",
	TypePrefixSha256:    "prefix-sha-256",
	TypeThresholdSha256: "threshold-sha-256",
	TypeRsaSha256:       "rsa-sha-256",
	TypeEd25519:         "ed25519-sha-256",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint16(t))
}

// Known reports whether t is one of the defined types.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// BaseFeatures returns the features every condition of type t carries.
func (t Type) BaseFeatures() Features {
	switch t {
	case TypePreimage:
		return NewFeatures(FeatureSha256, FeaturePreimage)
	case TypePrefixSha256:
		return NewFeatures(FeatureSha256, FeaturePrefix)
	case TypeThresholdSha256:
		return NewFeatures(FeatureSha256, FeatureThreshold)
	case TypeRsaSha256:
		return NewFeatures(FeatureSha256, FeatureRsaPss)
	case TypeEd25519:
		return NewFeatures(FeatureSha256, FeatureEd25519Sig)
	default:
		return 0
	}
}

// Feature is a single cryptographic capability. Its value is the bit it
// occupies in the encoded feature bitmask.
type Feature uint8

const (
	FeatureSha256 Feature = 1 << iota
	FeaturePreimage
	FeaturePrefix
	FeatureThreshold
	FeatureRsaPss
	FeatureEd25519Sig
)

var featureOrder = []Feature{
	FeatureSha256,
	FeaturePreimage,
	FeaturePrefix,
	FeatureThreshold,
	FeatureRsaPss,
	FeatureEd25519Sig,
}

var featureNames = map[Feature]string{
	FeatureSha256:     "sha-256",
	FeaturePreimage:   "preimage",
	FeaturePrefix:     "prefix",
	FeatureThreshold:  "threshold",
	FeatureRsaPss:     "rsa-pss",
	FeatureEd25519Sig: "ed25519",
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}
	return fmt.Sprintf("feature(0x%02x)", uint8(f))
}

// Features is a set of Feature values, stored as the wire bitmask.
type Features uint8

const allFeatures = Features(FeatureSha256 | FeaturePreimage | FeaturePrefix | FeatureThreshold | FeatureRsaPss | FeatureEd25519Sig)

func NewFeatures(fs ...Feature) Features {
	var out Features
	for _, f := range fs {
		out |= Features(f)
	}
	return out
}

func (fs Features) Has(f Feature) bool { return fs&Features(f) != 0 }

// Contains reports whether every feature of other is in fs.
func (fs Features) Contains(other Features) bool { return fs&other == other }

func (fs Features) Union(other Features) Features { return fs | other }

// List returns the features in bitmask order.
func (fs Features) List() []Feature {
	out := make([]Feature, 0, len(featureOrder))
	for _, f := range featureOrder {
		if fs.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (fs Features) String() string {
	list := fs.List()
	names := make([]string, len(list))
	for i, f := range list {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

func (fs Features) valid() bool {
	return fs != 0 && fs&^allFeatures == 0
}
