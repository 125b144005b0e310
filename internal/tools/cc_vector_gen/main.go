// cc_vector_gen prints deterministic crypto-condition vectors as JSON lines.
//
// Every vector is built from fixed seeds and preimages, so the output is
// stable across runs and can be checked into other implementations' suites.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/keys"
)

type vector struct {
	Name                 string `json:"name"`
	Fulfillment          string `json:"fulfillment"`
	Condition            string `json:"condition"`
	ConditionURI         string `json:"conditionUri"`
	MaxFulfillmentLength int    `json:"maxFulfillmentLength"`
	Message              string `json:"message"`
}

func mustEd25519(seedByte byte, msg []byte) *cc.Ed25519 {
	seed := make([]byte, keys.Ed25519SeedSize)
	for i := range seed {
		seed[i] = seedByte
	}
	_, priv, err := keys.Ed25519FromSeed(seed)
	if err != nil {
		panic(err)
	}
	f, err := cc.SignEd25519(nil, priv, msg)
	if err != nil {
		panic(err)
	}
	return f
}

func mustCondition(f cc.Fulfillment) cc.Condition {
	c, err := cc.Derive(f)
	if err != nil {
		panic(err)
	}
	return c
}

func mustThreshold(threshold uint32, members ...cc.ThresholdMember) *cc.ThresholdSha256 {
	f, err := cc.NewThresholdSha256(threshold, members)
	if err != nil {
		panic(err)
	}
	return f
}

func build() ([]vector, error) {
	msg := []byte("xdao crypto-conditions vector")
	sigA := mustEd25519(0xA1, msg)
	sigB := mustEd25519(0xB2, msg)

	cases := []struct {
		name string
		f    cc.Fulfillment
		msg  []byte
	}{
		{"preimage-empty", cc.NewPreimage(nil), nil},
		{"preimage-aaa", cc.NewPreimage([]byte("aaa")), nil},
		{"prefix-empty-preimage", cc.NewPrefixSha256(nil, cc.NewPreimage(nil)), nil},
		{"ed25519", sigA, msg},
		{"prefix-ed25519", cc.NewPrefixSha256([]byte("xdao crypto-conditions "), sigA), []byte("vector")},
		{"threshold-1-of-2", mustThreshold(1,
			cc.WeightedFulfillment(1, cc.NewPreimage(nil)),
			cc.WeightedFulfillment(1, cc.NewPreimage([]byte("aaa"))),
		), nil},
		{"threshold-2-of-3-with-condition", mustThreshold(2,
			cc.WeightedFulfillment(1, sigA),
			cc.WeightedFulfillment(1, sigB),
			cc.WeightedCondition(1, mustCondition(cc.NewPreimage([]byte("never revealed")))),
		), msg},
		{"threshold-weighted", mustThreshold(3,
			cc.WeightedFulfillment(2, sigA),
			cc.WeightedFulfillment(1, sigB),
			cc.WeightedFulfillment(1, cc.NewPreimage(nil)),
		), msg},
	}

	out := make([]vector, 0, len(cases))
	for _, tc := range cases {
		enc, err := cc.EncodeFulfillment(tc.f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tc.name, err)
		}
		c, err := cc.Derive(tc.f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tc.name, err)
		}
		cenc, err := c.Encode()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tc.name, err)
		}
		out = append(out, vector{
			Name:                 tc.name,
			Fulfillment:          hex.EncodeToString(enc),
			Condition:            hex.EncodeToString(cenc),
			ConditionURI:         c.URI(),
			MaxFulfillmentLength: c.MaxFulfillmentLength(),
			Message:              hex.EncodeToString(tc.msg),
		})
	}
	return out, nil
}

func main() {
	vectors, err := build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, v := range vectors {
		if err := enc.Encode(v); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}
