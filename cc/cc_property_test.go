package cc

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func thresholdFromSeeds(seeds []uint8, threshold uint32, reverse bool) (*ThresholdSha256, error) {
	members := make([]ThresholdMember, len(seeds))
	for i, s := range seeds {
		f := NewPreimage([]byte{s, byte(i)})
		members[i] = WeightedFulfillment(uint32(s%3)+1, f)
	}
	if reverse {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}
	return NewThresholdSha256(threshold, members)
}

func TestFulfillmentProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("preimage round-trips and derives deterministically", prop.ForAll(
		func(p []byte) bool {
			if p == nil {
				p = []byte{}
			}
			f := NewPreimage(p)
			enc, err := EncodeFulfillment(f)
			if err != nil {
				return false
			}
			got, err := DecodeFulfillment(enc)
			if err != nil {
				return false
			}
			again, err := EncodeFulfillment(got)
			if err != nil || !bytes.Equal(enc, again) {
				return false
			}
			c1, err1 := Derive(f)
			c2, err2 := Derive(got)
			return err1 == nil && err2 == nil && c1.Equal(c2) && c1.MaxFulfillmentLength() == len(p)
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("threshold encoding ignores member order", prop.ForAll(
		func(seeds []uint8, threshold uint32) bool {
			f1, err := thresholdFromSeeds(seeds, threshold, false)
			if err != nil {
				return IsKind(err, KindUnsatisfiableThreshold)
			}
			f2, err := thresholdFromSeeds(seeds, threshold, true)
			if err != nil {
				return false
			}
			enc1, err1 := EncodeFulfillment(f1)
			enc2, err2 := EncodeFulfillment(f2)
			return err1 == nil && err2 == nil && bytes.Equal(enc1, enc2)
		},
		gen.SliceOfN(6, gen.UInt8()),
		gen.UInt32Range(1, 12),
	))

	properties.Property("encoded threshold decodes, re-encodes and validates", prop.ForAll(
		func(seeds []uint8, threshold uint32) bool {
			f, err := thresholdFromSeeds(seeds, threshold, false)
			if err != nil {
				return IsKind(err, KindUnsatisfiableThreshold)
			}
			enc, err := EncodeFulfillment(f)
			if err != nil {
				return false
			}
			got, err := DecodeFulfillment(enc)
			if err != nil {
				return false
			}
			again, err := EncodeFulfillment(got)
			if err != nil || !bytes.Equal(enc, again) {
				return false
			}
			ok, err := Validate(got, nil)
			if err != nil || !ok {
				return false
			}
			c, err := Derive(f)
			return err == nil && len(enc) <= c.MaxFulfillmentLength()+4
		},
		gen.SliceOfN(5, gen.UInt8()),
		gen.UInt32Range(1, 10),
	))

	properties.TestingRun(t)
}

// membersFromSeeds builds up to n members with varied weights and preimage
// sizes. Seeds divisible by five yield condition-only members.
func membersFromSeeds(seeds []uint8, n int) []ThresholdMember {
	if n > len(seeds) {
		n = len(seeds)
	}
	members := make([]ThresholdMember, n)
	for i, s := range seeds[:n] {
		pre := NewPreimage(bytes.Repeat([]byte{byte(i)}, 1+int(s>>2)%48))
		weight := uint32(s%4) + 1
		if s%5 == 0 {
			c, err := Derive(pre)
			if err != nil {
				panic(err)
			}
			members[i] = WeightedCondition(weight, c)
			continue
		}
		members[i] = WeightedFulfillment(weight, pre)
	}
	return members
}

func entriesCost(members []resolvedMember, included []bool) int {
	cost := 0
	for i, m := range members {
		if included[i] {
			cost += entrySize(m.weight, len(m.encoded))
		} else {
			cost += entrySize(m.weight, len(m.condBytes))
		}
	}
	return cost
}

// cheapestMinimalCost enumerates every member set reaching the threshold from
// which no member can be dropped, and returns the lowest entries cost.
func cheapestMinimalCost(threshold uint32, members []resolvedMember) (int, bool) {
	best, found := 0, false
	included := make([]bool, len(members))
	for mask := 0; mask < 1<<len(members); mask++ {
		var total, lightest uint64
		usable := true
		for i, m := range members {
			included[i] = mask&(1<<i) != 0
			if !included[i] {
				continue
			}
			if !m.canInclude() {
				usable = false
				break
			}
			w := uint64(m.weight)
			if lightest == 0 || w < lightest {
				lightest = w
			}
			total += w
		}
		if !usable || total < uint64(threshold) || total-lightest >= uint64(threshold) {
			continue
		}
		if cost := entriesCost(members, included); !found || cost < best {
			best, found = cost, true
		}
	}
	return best, found
}

func TestThresholdSelectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("selection matches the cheapest minimal set", prop.ForAll(
		func(seeds []uint8, n int, threshold uint32) bool {
			members := membersFromSeeds(seeds, n)
			resolved, err := resolveMembers(defaultProvider, members, true)
			if err != nil {
				return false
			}
			want, feasible := cheapestMinimalCost(threshold, resolved)
			included, err := selectMinimal(threshold, resolved)
			if !feasible {
				return IsKind(err, KindUnsatisfiableThreshold)
			}
			return err == nil && entriesCost(resolved, included) == want
		},
		gen.SliceOfN(6, gen.UInt8()),
		gen.IntRange(1, 6),
		gen.UInt32Range(1, 14),
	))

	properties.Property("built threshold validates like its decoded form and stays within bound", prop.ForAll(
		func(seeds []uint8, n int, threshold uint32) bool {
			f, err := NewThresholdSha256(threshold, membersFromSeeds(seeds, n))
			if err != nil {
				return IsKind(err, KindUnsatisfiableThreshold)
			}
			enc, err := EncodeFulfillment(f)
			if err != nil {
				return IsKind(err, KindUnsatisfiableThreshold)
			}
			got, err := DecodeFulfillment(enc)
			if err != nil {
				return false
			}
			built, err1 := Validate(f, nil)
			decoded, err2 := Validate(got, nil)
			if err1 != nil || err2 != nil || !built || built != decoded {
				return false
			}
			again, err := EncodeFulfillment(got)
			if err != nil || !bytes.Equal(enc, again) {
				return false
			}
			payload, err := f.payload(defaultProvider)
			if err != nil {
				return false
			}
			c, err := Derive(f)
			return err == nil && len(payload) <= c.MaxFulfillmentLength()
		},
		gen.SliceOfN(6, gen.UInt8()),
		gen.IntRange(1, 6),
		gen.UInt32Range(1, 14),
	))

	properties.TestingRun(t)
}
