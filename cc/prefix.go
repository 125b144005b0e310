package cc

import (
	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/oer"
)

// PrefixSha256 binds a prefix onto the message its subfulfillment signs.
type PrefixSha256 struct {
	prefix []byte
	sub    Fulfillment
}

func NewPrefixSha256(prefix []byte, sub Fulfillment) *PrefixSha256 {
	if prefix == nil {
		prefix = []byte{}
	}
	return &PrefixSha256{prefix: cloneBytes(prefix), sub: sub}
}

func (*PrefixSha256) Type() Type { return TypePrefixSha256 }

func (f *PrefixSha256) Prefix() []byte {
	if f == nil {
		return nil
	}
	return cloneBytes(f.prefix)
}

func (f *PrefixSha256) Subfulfillment() Fulfillment {
	if f == nil {
		return nil
	}
	return f.sub
}

func (f *PrefixSha256) check() error {
	if f == nil || f.prefix == nil {
		return newError(KindIncompleteFulfillment, RuleMissingField, "prefix fulfillment has no prefix")
	}
	if isNil(f.sub) {
		return newError(KindIncompleteFulfillment, RuleMissingField, "prefix fulfillment has no subfulfillment")
	}
	return nil
}

func (f *PrefixSha256) payload(p keys.Provider) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	w := oer.NewWriter()
	if err := w.WriteOctetString(f.prefix); err != nil {
		return nil, codecError(err, "prefix")
	}
	if err := writeFulfillment(p, w, f.sub); err != nil {
		return nil, atMember(err, 0)
	}
	return w.Bytes(), nil
}

func readPrefixPayload(r *oer.Reader, depth int) (Fulfillment, error) {
	prefix, err := r.ReadOctetString()
	if err != nil {
		return nil, codecError(err, "prefix")
	}
	sub, err := readFulfillment(r, depth+1)
	if err != nil {
		return nil, atMember(err, 0)
	}
	return &PrefixSha256{prefix: prefix, sub: sub}, nil
}

func (f *PrefixSha256) derive(p keys.Provider) (Condition, error) {
	if err := f.check(); err != nil {
		return Condition{}, err
	}
	subCond, err := f.sub.derive(p)
	if err != nil {
		return Condition{}, atMember(err, 0)
	}
	w := oer.NewWriter()
	if err := w.WriteOctetString(f.prefix); err != nil {
		return Condition{}, codecError(err, "prefix")
	}
	if err := subCond.writeTo(w); err != nil {
		return Condition{}, err
	}
	sum := p.SHA256(w.Bytes())
	maxLength := oer.LengthIndicatorSize(len(f.prefix)) + len(f.prefix) + subCond.MaxFulfillmentLength()
	features := TypePrefixSha256.BaseFeatures().Union(subCond.Features())
	return newCondition(TypePrefixSha256, features, sum[:], maxLength)
}

func (f *PrefixSha256) validate(p keys.Provider, message []byte) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	prefixed := make([]byte, 0, len(f.prefix)+len(message))
	prefixed = append(prefixed, f.prefix...)
	prefixed = append(prefixed, message...)
	ok, err := f.sub.validate(p, prefixed)
	if err != nil {
		return false, atMember(err, 0)
	}
	return ok, nil
}
