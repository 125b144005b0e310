package cc

import (
	"fmt"
	"sort"

	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

// Threshold entry tags.
const (
	entryCondition   byte = 0x00
	entryFulfillment byte = 0x01
)

// ThresholdMember is a weighted member of a threshold fulfillment. It carries
// either a subfulfillment or, when only the commitment is known, a bare
// subcondition.
type ThresholdMember struct {
	weight      uint32
	fulfillment Fulfillment
	condition   Condition
}

func WeightedFulfillment(weight uint32, f Fulfillment) ThresholdMember {
	return ThresholdMember{weight: weight, fulfillment: f}
}

func WeightedCondition(weight uint32, c Condition) ThresholdMember {
	return ThresholdMember{weight: weight, condition: c}
}

func (m ThresholdMember) Weight() uint32 { return m.weight }

// Fulfillment returns the member's subfulfillment, or nil for a condition-only member.
func (m ThresholdMember) Fulfillment() Fulfillment { return m.fulfillment }

func (m ThresholdMember) Condition() (Condition, error) {
	if m.fulfillment != nil {
		return Derive(m.fulfillment)
	}
	return m.condition, nil
}

// ThresholdSha256 is fulfilled when the included members' weights reach the
// threshold and every included member validates.
type ThresholdSha256 struct {
	threshold uint32
	members   []ThresholdMember
}

// NewThresholdSha256 builds a threshold fulfillment. Of the members carrying
// a fulfillment, only the cheapest minimal set reaching the threshold keeps
// it; every other such member is stored as its derived condition. If the
// fulfilled members cannot reach the threshold they are kept as given, which
// still allows deriving the condition.
func NewThresholdSha256(threshold uint32, members []ThresholdMember) (*ThresholdSha256, error) {
	f, err := newThreshold(threshold, members)
	if err != nil {
		return nil, err
	}
	if err := f.keepMinimal(defaultProvider); err != nil {
		return nil, err
	}
	return f, nil
}

func newThreshold(threshold uint32, members []ThresholdMember) (*ThresholdSha256, error) {
	f := &ThresholdSha256{threshold: threshold, members: append([]ThresholdMember(nil), members...)}
	if err := f.check(); err != nil {
		return nil, err
	}
	var total uint64
	for _, m := range f.members {
		total += uint64(m.weight)
	}
	if total < uint64(threshold) {
		return nil, newError(KindUnsatisfiableThreshold, RuleUnsatisfiable, fmt.Sprintf("total weight %d is below threshold %d", total, threshold))
	}
	return f, nil
}

func (f *ThresholdSha256) keepMinimal(p keys.Provider) error {
	resolved, err := resolveMembers(p, f.members, true)
	if err != nil {
		return err
	}
	included, err := selectMinimal(f.threshold, resolved)
	if IsKind(err, KindUnsatisfiableThreshold) {
		return nil
	}
	if err != nil {
		return err
	}
	for i, m := range resolved {
		if m.canInclude() && !included[i] {
			f.members[m.source] = WeightedCondition(m.weight, m.cond)
		}
	}
	return nil
}

func (*ThresholdSha256) Type() Type { return TypeThresholdSha256 }

func (f *ThresholdSha256) Threshold() uint32 {
	if f == nil {
		return 0
	}
	return f.threshold
}

func (f *ThresholdSha256) Members() []ThresholdMember {
	if f == nil {
		return nil
	}
	return append([]ThresholdMember(nil), f.members...)
}

func (f *ThresholdSha256) check() error {
	if f == nil || len(f.members) == 0 {
		return newError(KindIncompleteFulfillment, RuleMissingField, "threshold fulfillment has no members")
	}
	if f.threshold == 0 {
		return newError(KindInvalidFulfillment, RuleThresholdZero, "threshold must be at least 1")
	}
	if f.threshold > oer.MaxLength || len(f.members) > oer.MaxLength {
		return newError(KindUnsupportedLength, RuleThresholdRange, fmt.Sprintf("threshold and member count must not exceed %d", oer.MaxLength))
	}
	for i, m := range f.members {
		if m.weight == 0 {
			return atMember(newError(KindInvalidFulfillment, RuleWeightZero, "member weight must be at least 1"), i)
		}
		if m.weight > oer.MaxLength {
			return atMember(newError(KindUnsupportedLength, RuleThresholdRange, fmt.Sprintf("member weight %d exceeds %d", m.weight, oer.MaxLength)), i)
		}
		if isNil(m.fulfillment) && m.condition.IsZero() {
			return atMember(newError(KindIncompleteFulfillment, RuleMissingField, "member has neither a fulfillment nor a condition"), i)
		}
	}
	return nil
}

func (f *ThresholdSha256) derive(p keys.Provider) (Condition, error) {
	if err := f.check(); err != nil {
		return Condition{}, err
	}
	members, err := resolveMembers(p, f.members, false)
	if err != nil {
		return Condition{}, err
	}
	w := oer.NewWriter()
	w.WriteUint32(f.threshold)
	if err := w.WriteVarUInt(uint32(len(members))); err != nil {
		return Condition{}, codecError(err, "threshold member count")
	}
	features := TypeThresholdSha256.BaseFeatures()
	for _, m := range members {
		if err := w.WriteVarUInt(m.weight); err != nil {
			return Condition{}, codecError(err, "threshold member weight")
		}
		if err := m.cond.writeTo(w); err != nil {
			return Condition{}, err
		}
		features = features.Union(m.cond.Features())
	}
	maxLength, err := worstCaseLength(f.threshold, members)
	if err != nil {
		return Condition{}, err
	}
	sum := p.SHA256(w.Bytes())
	return newCondition(TypeThresholdSha256, features, sum[:], maxLength)
}

// payload selects the cheapest minimal set of members to present as
// fulfillments and writes every other member as its bare condition. For a
// value built by NewThresholdSha256 the selection is already made and this
// picks the same set again.
func (f *ThresholdSha256) payload(p keys.Provider) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	members, err := resolveMembers(p, f.members, true)
	if err != nil {
		return nil, err
	}
	included, err := selectMinimal(f.threshold, members)
	if err != nil {
		return nil, err
	}
	entries := make([][]byte, len(members))
	for i, m := range members {
		tag, body := entryCondition, m.condBytes
		if included[i] {
			tag, body = entryFulfillment, m.encoded
		}
		if entries[i], err = encodeEntry(m.weight, tag, body); err != nil {
			return nil, atMember(err, m.source)
		}
	}
	sort.SliceStable(entries, func(a, b int) bool { return compareCanonical(entries[a], entries[b]) < 0 })

	w := oer.NewWriter()
	if err := w.WriteVarUInt(f.threshold); err != nil {
		return nil, codecError(err, "threshold")
	}
	if err := w.WriteVarUInt(uint32(len(entries))); err != nil {
		return nil, codecError(err, "threshold member count")
	}
	for _, e := range entries {
		if err := w.WriteOctetString(e); err != nil {
			return nil, codecError(err, "threshold entry")
		}
	}
	return w.Bytes(), nil
}

func encodeEntry(weight uint32, tag byte, body []byte) ([]byte, error) {
	w := oer.NewWriter()
	if err := w.WriteVarUInt(weight); err != nil {
		return nil, codecError(err, "threshold member weight")
	}
	w.WriteUint8(tag)
	if err := w.WriteOctetString(body); err != nil {
		return nil, codecError(err, "threshold entry body")
	}
	return w.Bytes(), nil
}

func readThresholdPayload(r *oer.Reader, depth int) (Fulfillment, error) {
	threshold, err := r.ReadVarUInt()
	if err != nil {
		return nil, codecError(err, "threshold")
	}
	count, err := r.ReadVarUInt()
	if err != nil {
		return nil, codecError(err, "threshold member count")
	}
	if int(count) > r.Len() {
		return nil, newError(KindUnexpectedEndOfInput, RuleUnexpectedEnd, fmt.Sprintf("threshold declares %d members but only %d bytes remain", count, r.Len()))
	}
	members := make([]ThresholdMember, 0, count)
	var prev []byte
	for i := 0; i < int(count); i++ {
		entry, err := r.ReadOctetString()
		if err != nil {
			return nil, atMember(codecError(err, "threshold entry"), i)
		}
		if prev != nil && compareCanonical(prev, entry) > 0 {
			return nil, atMember(newError(KindNonCanonical, RuleEntryOrder, "threshold entries are not in canonical order"), i)
		}
		prev = entry
		m, err := readEntry(entry, depth)
		if err != nil {
			return nil, atMember(err, i)
		}
		members = append(members, m)
	}
	return newThreshold(threshold, members)
}

func readEntry(entry []byte, depth int) (ThresholdMember, error) {
	r := oer.NewReader(entry)
	weight, err := r.ReadVarUInt()
	if err != nil {
		return ThresholdMember{}, codecError(err, "threshold member weight")
	}
	tag, err := r.ReadUint8()
	if err != nil {
		return ThresholdMember{}, codecError(err, "threshold entry tag")
	}
	body, err := r.ReadOctetString()
	if err != nil {
		return ThresholdMember{}, codecError(err, "threshold entry body")
	}
	if !r.Empty() {
		return ThresholdMember{}, newError(KindInvalidFulfillment, RuleTrailingBytes, fmt.Sprintf("%d trailing bytes in threshold entry", r.Len()))
	}
	switch tag {
	case entryFulfillment:
		sub, err := decodeFulfillment(body, depth+1)
		if err != nil {
			return ThresholdMember{}, err
		}
		return WeightedFulfillment(weight, sub), nil
	case entryCondition:
		c, err := DecodeCondition(body)
		if err != nil {
			return ThresholdMember{}, err
		}
		return WeightedCondition(weight, c), nil
	default:
		return ThresholdMember{}, newError(KindInvalidFulfillment, RuleEntryTag, fmt.Sprintf("unknown threshold entry tag 0x%02x", tag))
	}
}

// validate treats members carrying a fulfillment as included. The included
// set must reach the threshold and be minimal: dropping its lightest member
// must fall below the threshold.
func (f *ThresholdSha256) validate(p keys.Provider, message []byte) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	var total, lightest uint64
	for _, m := range f.members {
		if m.fulfillment == nil {
			continue
		}
		w := uint64(m.weight)
		if lightest == 0 || w < lightest {
			lightest = w
		}
		total += w
	}
	if total < uint64(f.threshold) {
		return false, nil
	}
	if total-lightest >= uint64(f.threshold) {
		return false, nil
	}
	for i, m := range f.members {
		if m.fulfillment == nil {
			continue
		}
		ok, err := m.fulfillment.validate(p, message)
		if err != nil {
			return false, atMember(err, i)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
