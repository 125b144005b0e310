package store

import (
	"context"

	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/cidutil"
)

// PutCondition stores the canonical encoding of c. The returned CID equals c.CID().
func PutCondition(ctx context.Context, cas CAS, c cc.Condition) (cid.Cid, error) {
	enc, err := c.Encode()
	if err != nil {
		return cid.Undef, err
	}
	return cas.Put(ctx, enc)
}

func GetCondition(ctx context.Context, cas CAS, id cid.Cid) (cc.Condition, error) {
	b, err := getVerified(ctx, cas, id)
	if err != nil {
		return cc.Condition{}, err
	}
	return cc.DecodeCondition(b)
}

// PutFulfillment stores the canonical encoding of f.
func PutFulfillment(ctx context.Context, cas CAS, f cc.Fulfillment) (cid.Cid, error) {
	enc, err := cc.EncodeFulfillment(f)
	if err != nil {
		return cid.Undef, err
	}
	return cas.Put(ctx, enc)
}

func GetFulfillment(ctx context.Context, cas CAS, id cid.Cid) (cc.Fulfillment, error) {
	b, err := getVerified(ctx, cas, id)
	if err != nil {
		return nil, err
	}
	return cc.DecodeFulfillment(b)
}

func getVerified(ctx context.Context, cas CAS, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	b, err := cas.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, ErrCIDMismatch
	}
	return b, nil
}
