// Package testkit holds the conformance suite every CAS backend must pass.
package testkit

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/store"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) store.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, condition store")

		id, err := cas.Put(ctx, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.CIDv1RawSHA256CID(want)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}
		if !id.Equals(wantID) {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(ctx, b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if !id1.Equals(id2) {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.CIDv1RawSHA256CID(b)
		if err != nil {
			t.Fatalf("CIDv1RawSHA256CID failed: %v", err)
		}

		if ok, err := cas.Has(ctx, id); err != nil || ok {
			t.Fatalf("Has for missing CID: got %v, %v", ok, err)
		}
		if _, err := cas.Get(ctx, id); !store.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(ctx, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if ok, err := cas.Has(ctx, id); err != nil || !ok {
			t.Fatalf("Has after Put: got %v, %v", ok, err)
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if ok, _ := cas.Has(ctx, undef); ok {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(ctx, undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("ConcurrentPut", func(t *testing.T) {
		cas := newCAS(t)
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := cas.Put(ctx, []byte(fmt.Sprintf("object-%d", i%4))); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent Put failed: %v", err)
		}
	})

	t.Run("ConditionRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		f := cc.NewPrefixSha256([]byte("escrow:"), cc.NewPreimage([]byte("release")))
		cond, err := cc.Derive(f)
		if err != nil {
			t.Fatalf("Derive failed: %v", err)
		}

		condID, err := store.PutCondition(ctx, cas, cond)
		if err != nil {
			t.Fatalf("PutCondition failed: %v", err)
		}
		wantID, err := cond.CID()
		if err != nil {
			t.Fatalf("CID failed: %v", err)
		}
		if !condID.Equals(wantID) {
			t.Fatalf("condition CID mismatch: got %s want %s", condID, wantID)
		}
		gotCond, err := store.GetCondition(ctx, cas, condID)
		if err != nil {
			t.Fatalf("GetCondition failed: %v", err)
		}
		if !gotCond.Equal(cond) {
			t.Fatalf("condition mismatch after round trip")
		}

		fID, err := store.PutFulfillment(ctx, cas, f)
		if err != nil {
			t.Fatalf("PutFulfillment failed: %v", err)
		}
		gotF, err := store.GetFulfillment(ctx, cas, fID)
		if err != nil {
			t.Fatalf("GetFulfillment failed: %v", err)
		}
		ok, err := cc.ValidateAgainst(gotF, cond, []byte("msg"))
		if err != nil || !ok {
			t.Fatalf("stored fulfillment does not satisfy condition: %v, %v", ok, err)
		}
	})
}
