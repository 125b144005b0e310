package cc

import (
	"bytes"
	"crypto/sha256"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cryptoconditions/oer"
)

func rawThreshold(t *testing.T, threshold uint32, entries [][]byte) []byte {
	t.Helper()
	p := oer.NewWriter()
	require.NoError(t, p.WriteVarUInt(threshold))
	require.NoError(t, p.WriteVarUInt(uint32(len(entries))))
	for _, e := range entries {
		require.NoError(t, p.WriteOctetString(e))
	}
	w := oer.NewWriter()
	w.WriteUint16(uint16(TypeThresholdSha256))
	require.NoError(t, w.WriteOctetString(p.Bytes()))
	return w.Bytes()
}

func fulfillmentEntry(t *testing.T, weight uint32, f Fulfillment) []byte {
	t.Helper()
	e, err := encodeEntry(weight, entryFulfillment, mustEncode(t, f))
	require.NoError(t, err)
	return e
}

func conditionEntry(t *testing.T, weight uint32, f Fulfillment) []byte {
	t.Helper()
	c, err := mustDerive(t, f).Encode()
	require.NoError(t, err)
	e, err := encodeEntry(weight, entryCondition, c)
	require.NoError(t, err)
	return e
}

func sortEntries(entries [][]byte) [][]byte {
	sort.Slice(entries, func(a, b int) bool { return compareCanonical(entries[a], entries[b]) < 0 })
	return entries
}

func includedPreimages(t *testing.T, f Fulfillment) map[string]uint32 {
	t.Helper()
	th, ok := f.(*ThresholdSha256)
	require.True(t, ok)
	out := map[string]uint32{}
	for _, m := range th.Members() {
		if pre, ok := m.Fulfillment().(*Preimage); ok {
			out[string(pre.Preimage())] = m.Weight()
		}
	}
	return out
}

func TestThresholdSelectsCoveringSet(t *testing.T) {
	a, b, c := NewPreimage([]byte("aaaa")), NewPreimage([]byte("bbbb")), NewPreimage([]byte("cccc"))
	f, err := NewThresholdSha256(3, []ThresholdMember{
		WeightedFulfillment(1, a),
		WeightedFulfillment(2, b),
		WeightedFulfillment(1, c),
	})
	require.NoError(t, err)

	decoded, err := DecodeFulfillment(mustEncode(t, f))
	require.NoError(t, err)
	included := includedPreimages(t, decoded)
	require.Len(t, included, 2)
	assert.Equal(t, uint32(2), included["bbbb"])

	// A and C cost the same; the one earlier in canonical order wins.
	fpA, fpC := sha256.Sum256([]byte("aaaa")), sha256.Sum256([]byte("cccc"))
	want := "aaaa"
	if bytes.Compare(fpC[:], fpA[:]) < 0 {
		want = "cccc"
	}
	assert.Contains(t, included, want)

	ok, err := Validate(decoded, []byte("msg"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mustDerive(t, f).Equal(mustDerive(t, decoded)))
}

func TestThresholdUnsatisfiable(t *testing.T) {
	members := []ThresholdMember{
		WeightedFulfillment(1, NewPreimage([]byte("a"))),
		WeightedFulfillment(2, NewPreimage([]byte("b"))),
		WeightedFulfillment(1, NewPreimage([]byte("c"))),
	}
	_, err := NewThresholdSha256(5, members)
	requireKind(t, err, KindUnsatisfiableThreshold)

	_, err = Derive(&ThresholdSha256{threshold: 5, members: members})
	requireKind(t, err, KindUnsatisfiableThreshold)

	// Enough total weight, but too little of it carries fulfillments.
	f, err := NewThresholdSha256(3, []ThresholdMember{
		WeightedCondition(1, mustDerive(t, NewPreimage([]byte("a")))),
		WeightedFulfillment(2, NewPreimage([]byte("b"))),
		WeightedCondition(1, mustDerive(t, NewPreimage([]byte("c")))),
	})
	require.NoError(t, err)
	_, err = Derive(f)
	require.NoError(t, err)
	_, err = EncodeFulfillment(f)
	requireKind(t, err, KindUnsatisfiableThreshold)
}

func TestThresholdPermutationInvariance(t *testing.T) {
	_, priv := testEd25519Key(t, 9)
	ed, err := SignEd25519(nil, priv, []byte("m"))
	require.NoError(t, err)
	members := []ThresholdMember{
		WeightedFulfillment(2, NewPreimage([]byte("one"))),
		WeightedFulfillment(1, ed),
		WeightedFulfillment(3, NewPrefixSha256([]byte("p"), NewPreimage([]byte("two")))),
		WeightedCondition(1, mustDerive(t, NewPreimage([]byte("three")))),
	}
	f1, err := NewThresholdSha256(4, members)
	require.NoError(t, err)
	reversed := []ThresholdMember{members[3], members[2], members[1], members[0]}
	f2, err := NewThresholdSha256(4, reversed)
	require.NoError(t, err)

	enc1 := mustEncode(t, f1)
	assert.Equal(t, enc1, mustEncode(t, f1))
	assert.Equal(t, enc1, mustEncode(t, f2))
	assert.True(t, mustDerive(t, f1).Equal(mustDerive(t, f2)))
}

func TestThresholdFingerprint(t *testing.T) {
	a, b := NewPreimage([]byte("a")), NewPreimage([]byte("b"))
	f, err := NewThresholdSha256(1, []ThresholdMember{WeightedFulfillment(1, a), WeightedFulfillment(2, b)})
	require.NoError(t, err)
	c := mustDerive(t, f)

	type sub struct {
		weight uint32
		cond   Condition
	}
	subs := []sub{{1, mustDerive(t, a)}, {2, mustDerive(t, b)}}
	sort.SliceStable(subs, func(i, j int) bool {
		return bytes.Compare(subs[i].cond.Fingerprint(), subs[j].cond.Fingerprint()) < 0
	})
	w := oer.NewWriter()
	w.WriteUint32(1)
	require.NoError(t, w.WriteVarUInt(2))
	for _, s := range subs {
		require.NoError(t, w.WriteVarUInt(s.weight))
		enc, err := s.cond.Encode()
		require.NoError(t, err)
		w.Write(enc)
	}
	want := sha256.Sum256(w.Bytes())
	assert.Equal(t, want[:], c.Fingerprint())
	assert.Equal(t, NewFeatures(FeatureSha256, FeatureThreshold, FeaturePreimage), c.Features())
}

func TestThresholdMinimalityOnValidate(t *testing.T) {
	a, b, c := NewPreimage([]byte("a")), NewPreimage([]byte("b")), NewPreimage([]byte("c"))

	exact, err := DecodeFulfillment(rawThreshold(t, 2, sortEntries([][]byte{
		fulfillmentEntry(t, 1, a),
		fulfillmentEntry(t, 1, b),
		conditionEntry(t, 1, c),
	})))
	require.NoError(t, err)
	ok, err := Validate(exact, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	redundant, err := DecodeFulfillment(rawThreshold(t, 2, sortEntries([][]byte{
		fulfillmentEntry(t, 1, a),
		fulfillmentEntry(t, 1, b),
		fulfillmentEntry(t, 1, c),
	})))
	require.NoError(t, err)
	ok, err = Validate(redundant, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	short, err := DecodeFulfillment(rawThreshold(t, 2, sortEntries([][]byte{
		fulfillmentEntry(t, 1, a),
		conditionEntry(t, 1, b),
		conditionEntry(t, 1, c),
	})))
	require.NoError(t, err)
	ok, err = Validate(short, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-encoding drops the redundant member.
	reenc, err := DecodeFulfillment(mustEncode(t, redundant))
	require.NoError(t, err)
	ok, err = Validate(reenc, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestThresholdValidateFailsOnBadMember(t *testing.T) {
	_, priv := testEd25519Key(t, 10)
	ed, err := SignEd25519(nil, priv, []byte("signed"))
	require.NoError(t, err)
	f, err := NewThresholdSha256(1, []ThresholdMember{
		WeightedFulfillment(1, ed),
		WeightedCondition(1, mustDerive(t, NewPreimage([]byte("x")))),
	})
	require.NoError(t, err)

	ok, err := Validate(f, []byte("signed"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = Validate(f, []byte("other"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThresholdMaxFulfillmentLength(t *testing.T) {
	single, err := NewThresholdSha256(1, []ThresholdMember{WeightedFulfillment(1, NewPreimage([]byte("abc")))})
	require.NoError(t, err)
	payload, err := single.payload(defaultProvider)
	require.NoError(t, err)
	assert.Equal(t, len(payload), mustDerive(t, single).MaxFulfillmentLength())

	_, priv := testEd25519Key(t, 11)
	ed, err := SignEd25519(nil, priv, []byte("m"))
	require.NoError(t, err)
	for _, threshold := range []uint32{1, 2, 3, 5} {
		f, err := NewThresholdSha256(threshold, []ThresholdMember{
			WeightedFulfillment(1, ed),
			WeightedFulfillment(1, NewPreimage([]byte("short"))),
			WeightedFulfillment(1, single),
			WeightedFulfillment(2, NewPreimage(bytes.Repeat([]byte{1}, 200))),
		})
		require.NoError(t, err)
		payload, err := f.payload(defaultProvider)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(payload), mustDerive(t, f).MaxFulfillmentLength(), "threshold %d", threshold)
	}
}

func TestThresholdConstructionRejects(t *testing.T) {
	pre := NewPreimage([]byte("a"))

	_, err := NewThresholdSha256(0, []ThresholdMember{WeightedFulfillment(1, pre)})
	requireKind(t, err, KindInvalidFulfillment)
	assert.Equal(t, RuleThresholdZero, RuleID(err))

	_, err = NewThresholdSha256(1, []ThresholdMember{WeightedFulfillment(1, pre), WeightedFulfillment(0, pre)})
	requireKind(t, err, KindInvalidFulfillment)
	assert.Equal(t, RuleWeightZero, RuleID(err))
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []int{1}, e.Path)

	_, err = NewThresholdSha256(1, nil)
	requireKind(t, err, KindIncompleteFulfillment)

	_, err = NewThresholdSha256(1, []ThresholdMember{WeightedFulfillment(1, nil)})
	requireKind(t, err, KindIncompleteFulfillment)
}

func TestThresholdErrorPath(t *testing.T) {
	members := []ThresholdMember{
		WeightedFulfillment(1, NewPreimage([]byte("ok"))),
		WeightedFulfillment(1, &Preimage{}),
	}
	_, err := NewThresholdSha256(1, members)
	requireKind(t, err, KindIncompleteFulfillment)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []int{1}, e.Path)

	outer := NewPrefixSha256([]byte("p"), &ThresholdSha256{threshold: 1, members: members})
	_, err = Derive(outer)
	requireKind(t, err, KindIncompleteFulfillment)
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []int{0, 1}, e.Path)
	assert.Contains(t, e.Error(), "member 0/1:")
}

func fulfilledCount(f *ThresholdSha256) int {
	n := 0
	for _, m := range f.Members() {
		if m.Fulfillment() != nil {
			n++
		}
	}
	return n
}

func TestThresholdConstructionKeepsMinimalSet(t *testing.T) {
	tests := []struct {
		name      string
		threshold uint32
		members   []ThresholdMember
	}{
		{"one of two", 1, []ThresholdMember{
			WeightedFulfillment(1, NewPreimage([]byte("a"))),
			WeightedFulfillment(1, NewPreimage([]byte("b"))),
		}},
		{"two of three", 2, []ThresholdMember{
			WeightedFulfillment(1, NewPreimage([]byte("a"))),
			WeightedFulfillment(1, NewPreimage([]byte("b"))),
			WeightedFulfillment(1, NewPreimage([]byte("c"))),
		}},
		{"mixed", 3, []ThresholdMember{
			WeightedFulfillment(2, NewPreimage([]byte("a"))),
			WeightedCondition(1, mustDerive(t, NewPreimage([]byte("b")))),
			WeightedFulfillment(1, NewPreimage([]byte("c"))),
			WeightedFulfillment(3, NewPreimage([]byte("d"))),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewThresholdSha256(tt.threshold, tt.members)
			require.NoError(t, err)
			require.Len(t, f.Members(), len(tt.members))

			built, err := Validate(f, nil)
			require.NoError(t, err)
			assert.True(t, built)

			enc := mustEncode(t, f)
			decoded, err := DecodeFulfillment(enc)
			require.NoError(t, err)
			roundTrip, err := Validate(decoded, nil)
			require.NoError(t, err)
			assert.Equal(t, built, roundTrip)

			assert.Equal(t, includedPreimages(t, f), includedPreimages(t, decoded))
			assert.Equal(t, fulfilledCount(f), fulfilledCount(decoded.(*ThresholdSha256)))
			assert.Equal(t, enc, mustEncode(t, decoded))
			assert.True(t, mustDerive(t, f).Equal(mustDerive(t, decoded)))
		})
	}
}

func TestThresholdConstructionKeepsUnreachableMembers(t *testing.T) {
	members := []ThresholdMember{
		WeightedFulfillment(1, NewPreimage([]byte("a"))),
		WeightedCondition(2, mustDerive(t, NewPreimage([]byte("b")))),
	}
	f, err := NewThresholdSha256(3, members)
	require.NoError(t, err)
	assert.Equal(t, 1, fulfilledCount(f))
	ok, err := Validate(f, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThresholdPicksCheapestMinimalSet(t *testing.T) {
	big := bytes.Repeat([]byte("B"), 300)
	tests := []struct {
		name      string
		threshold uint32
		members   []ThresholdMember
		want      []string
	}{
		{
			name:      "short preimage beats long one of equal weight",
			threshold: 1,
			members: []ThresholdMember{
				WeightedFulfillment(1, NewPreimage(big)),
				WeightedFulfillment(1, NewPreimage([]byte("s"))),
			},
			want: []string{"s"},
		},
		{
			name:      "two light members beat one heavy",
			threshold: 2,
			members: []ThresholdMember{
				WeightedFulfillment(2, NewPreimage(big)),
				WeightedFulfillment(1, NewPreimage([]byte("x"))),
				WeightedFulfillment(1, NewPreimage([]byte("y"))),
			},
			want: []string{"x", "y"},
		},
		{
			name:      "one heavy member beats two light",
			threshold: 2,
			members: []ThresholdMember{
				WeightedFulfillment(2, NewPreimage([]byte("h"))),
				WeightedFulfillment(1, NewPreimage(bytes.Repeat([]byte("x"), 100))),
				WeightedFulfillment(1, NewPreimage(bytes.Repeat([]byte("y"), 100))),
			},
			want: []string{"h"},
		},
		{
			name:      "condition-only member is never picked",
			threshold: 2,
			members: []ThresholdMember{
				WeightedCondition(2, mustDerive(t, NewPreimage([]byte("h")))),
				WeightedFulfillment(1, NewPreimage(big)),
				WeightedFulfillment(1, NewPreimage([]byte("y"))),
			},
			want: []string{string(big), "y"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewThresholdSha256(tt.threshold, tt.members)
			require.NoError(t, err)
			included := includedPreimages(t, f)
			got := make([]string, 0, len(included))
			for k := range included {
				got = append(got, k)
			}
			assert.ElementsMatch(t, tt.want, got)

			payload, err := f.payload(defaultProvider)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(payload), mustDerive(t, f).MaxFulfillmentLength())
		})
	}
}

func TestDecodeThresholdRejects(t *testing.T) {
	a, b := NewPreimage([]byte("a")), NewPreimage([]byte("b"))
	ordered := sortEntries([][]byte{conditionEntry(t, 1, a), fulfillmentEntry(t, 1, b)})

	t.Run("unknown tag", func(t *testing.T) {
		e, err := encodeEntry(1, 0x02, mustEncode(t, a))
		require.NoError(t, err)
		_, err = DecodeFulfillment(rawThreshold(t, 1, [][]byte{e}))
		requireKind(t, err, KindInvalidFulfillment)
		assert.Equal(t, RuleEntryTag, RuleID(err))
	})
	t.Run("entry order", func(t *testing.T) {
		_, err := DecodeFulfillment(rawThreshold(t, 1, [][]byte{ordered[1], ordered[0]}))
		requireKind(t, err, KindNonCanonical)
		assert.Equal(t, RuleEntryOrder, RuleID(err))
	})
	t.Run("zero threshold", func(t *testing.T) {
		_, err := DecodeFulfillment(rawThreshold(t, 0, ordered))
		requireKind(t, err, KindInvalidFulfillment)
	})
	t.Run("count larger than entries", func(t *testing.T) {
		raw := rawThreshold(t, 1, ordered[:1])
		payload := raw[3:]
		payload[3] = 2
		_, err := DecodeFulfillment(raw)
		requireKind(t, err, KindUnexpectedEndOfInput)
	})
	t.Run("entry trailing bytes", func(t *testing.T) {
		e := append(append([]byte{}, ordered[0]...), 0)
		_, err := DecodeFulfillment(rawThreshold(t, 1, [][]byte{e}))
		requireKind(t, err, KindInvalidFulfillment)
	})
	t.Run("condition entry", func(t *testing.T) {
		e, err := encodeEntry(1, entryCondition, []byte{0, 0})
		require.NoError(t, err)
		_, err = DecodeFulfillment(rawThreshold(t, 1, [][]byte{e}))
		requireKind(t, err, KindUnexpectedEndOfInput)
	})
}
