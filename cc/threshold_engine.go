package cc

import (
	"bytes"
	"fmt"
	"sort"

	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

// resolvedMember is a threshold member with its condition computed and,
// for serialization, its fulfillment encoded.
type resolvedMember struct {
	source    int // index in the fulfillment's member list
	weight    uint32
	cond      Condition
	condBytes []byte
	encoded   []byte // nil for condition-only members
}

func (m resolvedMember) canInclude() bool { return m.encoded != nil }

// resolveMembers derives every member's condition and returns the members in
// canonical order: fingerprint length, then fingerprint bytes, stable on ties.
func resolveMembers(p keys.Provider, members []ThresholdMember, encode bool) ([]resolvedMember, error) {
	out := make([]resolvedMember, len(members))
	for i, m := range members {
		rm := resolvedMember{source: i, weight: m.weight, cond: m.condition}
		if m.fulfillment != nil {
			c, err := m.fulfillment.derive(p)
			if err != nil {
				return nil, atMember(err, i)
			}
			rm.cond = c
			if encode {
				enc, err := EncodeFulfillmentWith(p, m.fulfillment)
				if err != nil {
					return nil, atMember(err, i)
				}
				rm.encoded = enc
			}
		}
		enc, err := rm.cond.Encode()
		if err != nil {
			return nil, atMember(err, i)
		}
		rm.condBytes = enc
		out[i] = rm
	}
	sort.SliceStable(out, func(a, b int) bool {
		return compareCanonical(out[a].cond.fingerprint, out[b].cond.fingerprint) < 0
	})
	return out, nil
}

// compareCanonical orders byte strings by length, then lexicographically.
func compareCanonical(a, b []byte) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(a, b)
}

// decisionOrder returns canonical indices sorted by weight descending,
// keeping canonical order among equal weights.
func decisionOrder(members []resolvedMember) []int {
	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return members[order[a]].weight > members[order[b]].weight
	})
	return order
}

// entrySize is the encoded size of a threshold entry with a body of n bytes.
func entrySize(weight uint32, n int) int {
	return oer.OctetStringSize(oer.VarUIntSize(weight) + 1 + oer.OctetStringSize(n))
}

type memoKey struct {
	k   int
	rem int64
}

type bound struct {
	extra int
	ok    bool
}

// worstCaseLength bounds the threshold payload size: every member as a bare
// condition, plus the largest extra cost of presenting fulfillments for any
// set of members whose weights reach the threshold.
func worstCaseLength(threshold uint32, members []resolvedMember) (int, error) {
	order := decisionOrder(members)
	n := len(order)
	weights := make([]int64, n)
	delta := make([]int, n)
	suffix := make([]int64, n+1)
	total := oer.VarUIntSize(threshold) + oer.VarUIntSize(uint32(n))
	for k, idx := range order {
		m := members[idx]
		condSize := entrySize(m.weight, len(m.condBytes))
		maxLen := m.cond.MaxFulfillmentLength()
		fulfillSize := entrySize(m.weight, 2+oer.LengthIndicatorSize(maxLen)+maxLen)
		total += condSize
		weights[k] = int64(m.weight)
		delta[k] = fulfillSize - condSize
	}
	for k := n - 1; k >= 0; k-- {
		suffix[k] = suffix[k+1] + weights[k]
	}

	memo := make(map[memoKey]bound)
	var best func(k int, rem int64) bound
	best = func(k int, rem int64) bound {
		if rem <= 0 {
			return bound{ok: true}
		}
		if k == n || suffix[k] < rem {
			return bound{}
		}
		key := memoKey{k, rem}
		if b, ok := memo[key]; ok {
			return b
		}
		out := bound{}
		if inc := best(k+1, rem-weights[k]); inc.ok {
			out = bound{extra: inc.extra + delta[k], ok: true}
		}
		if exc := best(k+1, rem); exc.ok && (!out.ok || exc.extra > out.extra) {
			out = exc
		}
		memo[key] = out
		return out
	}

	b := best(0, int64(threshold))
	if !b.ok {
		return 0, newError(KindUnsatisfiableThreshold, RuleUnsatisfiable, fmt.Sprintf("no member set reaches threshold %d", threshold))
	}
	return total + b.extra, nil
}

type selection struct {
	cost int
	set  []int // canonical indices, ascending
	ok   bool
}

// selectMinimal picks which members to present as fulfillments. The result
// minimizes payload size over member sets reaching the threshold. Only
// members carrying a fulfillment may be picked. Members are decided heaviest
// first and picking stops once the threshold is met, so the chosen set is
// minimal. Equal-cost sets resolve to the one that includes the lowest
// canonical index where they differ.
func selectMinimal(threshold uint32, members []resolvedMember) ([]bool, error) {
	order := decisionOrder(members)
	n := len(order)
	condCost := make([]int, n)
	fulfillCost := make([]int, n)
	weights := make([]int64, n)
	suffixCond := make([]int, n+1)
	suffixAvail := make([]int64, n+1)
	for k, idx := range order {
		m := members[idx]
		condCost[k] = entrySize(m.weight, len(m.condBytes))
		weights[k] = int64(m.weight)
		if m.canInclude() {
			fulfillCost[k] = entrySize(m.weight, len(m.encoded))
		}
	}
	for k := n - 1; k >= 0; k-- {
		suffixCond[k] = suffixCond[k+1] + condCost[k]
		suffixAvail[k] = suffixAvail[k+1]
		if members[order[k]].canInclude() {
			suffixAvail[k] += weights[k]
		}
	}

	memo := make(map[memoKey]selection)
	var solve func(k int, rem int64) selection
	solve = func(k int, rem int64) selection {
		if rem <= 0 {
			return selection{cost: suffixCond[k], ok: true}
		}
		if k == n || suffixAvail[k] < rem {
			return selection{}
		}
		key := memoKey{k, rem}
		if s, ok := memo[key]; ok {
			return s
		}
		out := solve(k+1, rem)
		if out.ok {
			out.cost += condCost[k]
		}
		if members[order[k]].canInclude() {
			if inc := solve(k+1, rem-weights[k]); inc.ok {
				inc = selection{
					cost: inc.cost + fulfillCost[k],
					set:  insertSorted(inc.set, order[k]),
					ok:   true,
				}
				if !out.ok || inc.cost < out.cost || (inc.cost == out.cost && preferSet(inc.set, out.set)) {
					out = inc
				}
			}
		}
		memo[key] = out
		return out
	}

	s := solve(0, int64(threshold))
	if !s.ok {
		return nil, newError(KindUnsatisfiableThreshold, RuleUnsatisfiable, fmt.Sprintf("fulfilled members cannot reach threshold %d", threshold))
	}
	included := make([]bool, n)
	for _, idx := range s.set {
		included[idx] = true
	}
	return included, nil
}

func insertSorted(set []int, v int) []int {
	out := make([]int, 0, len(set)+1)
	i := sort.SearchInts(set, v)
	out = append(out, set[:i]...)
	out = append(out, v)
	return append(out, set[i:]...)
}

// preferSet reports whether a wins over b: at the lowest index where the
// two sets differ, a contains it.
func preferSet(a, b []int) bool {
	i := 0
	for i < len(a) && i < len(b) {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
		i++
	}
	return len(a) > len(b)
}
