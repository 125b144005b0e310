package cc

import "xdao.co/cryptoconditions/keys"

// Preimage is fulfilled by revealing bytes whose SHA-256 is the fingerprint.
type Preimage struct {
	preimage []byte
}

func NewPreimage(preimage []byte) *Preimage {
	return &Preimage{preimage: cloneBytes(preimage)}
}

func (*Preimage) Type() Type { return TypePreimage }

func (f *Preimage) Preimage() []byte {
	if f == nil {
		return nil
	}
	return cloneBytes(f.preimage)
}

func (f *Preimage) check() error {
	if f == nil || f.preimage == nil {
		return newError(KindIncompleteFulfillment, RuleMissingField, "preimage fulfillment has no preimage")
	}
	return nil
}

func (f *Preimage) payload(keys.Provider) ([]byte, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	return cloneBytes(f.preimage), nil
}

func (f *Preimage) derive(p keys.Provider) (Condition, error) {
	if err := f.check(); err != nil {
		return Condition{}, err
	}
	sum := p.SHA256(f.preimage)
	return newCondition(TypePreimage, TypePreimage.BaseFeatures(), sum[:], len(f.preimage))
}

func (f *Preimage) validate(keys.Provider, []byte) (bool, error) {
	if err := f.check(); err != nil {
		return false, err
	}
	return true, nil
}
