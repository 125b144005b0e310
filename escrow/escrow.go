// Package escrow tracks holds that release only when a fulfillment for a
// pre-announced condition is presented.
//
// Announced conditions and accepted fulfillments are kept in a
// content-addressed store, so a hold can be audited from its CIDs alone.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"xdao.co/cryptoconditions/cc"
	"xdao.co/cryptoconditions/keys"
	"xdao.co/cryptoconditions/store"
)

var (
	ErrUnknownHold         = errors.New("escrow: unknown hold")
	ErrAlreadyReleased     = errors.New("escrow: hold already released")
	ErrConditionMismatch   = errors.New("escrow: fulfillment does not match condition")
	ErrFulfillmentRejected = errors.New("escrow: fulfillment rejected")
)

type State string

const (
	StatePending  State = "pending"
	StateReleased State = "released"
)

// Hold is a snapshot of one escrow entry.
type Hold struct {
	ID        uuid.UUID
	Condition cc.Condition
	Memo      string
	State     State

	ConditionCID   cid.Cid
	FulfillmentCID cid.Cid // cid.Undef until released

	AnnouncedAt time.Time
	ReleasedAt  time.Time
}

type Options struct {
	Logger   *slog.Logger
	Provider keys.Provider
	// Now defaults to time.Now.
	Now func() time.Time
}

// Ledger is safe for concurrent use.
type Ledger struct {
	cas      store.CAS
	logger   *slog.Logger
	provider keys.Provider
	now      func() time.Time

	mu    sync.Mutex
	holds map[uuid.UUID]*Hold
}

func New(cas store.CAS, opts Options) (*Ledger, error) {
	if cas == nil {
		return nil, errors.New("escrow: nil store")
	}
	l := &Ledger{
		cas:      cas,
		logger:   opts.Logger,
		provider: opts.Provider,
		now:      opts.Now,
		holds:    make(map[uuid.UUID]*Hold),
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "escrow")
	if l.provider == nil {
		l.provider = keys.Default{}
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

// Announce stores the condition and records a pending hold for it.
func (l *Ledger) Announce(ctx context.Context, cond cc.Condition, memo string) (Hold, error) {
	if cond.IsZero() {
		return Hold{}, errors.New("escrow: announce: empty condition")
	}
	condCID, err := store.PutCondition(ctx, l.cas, cond)
	if err != nil {
		return Hold{}, fmt.Errorf("escrow: announce: %w", err)
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return Hold{}, fmt.Errorf("escrow: announce: %w", err)
	}

	h := &Hold{
		ID:           id,
		Condition:    cond,
		Memo:         memo,
		State:        StatePending,
		ConditionCID: condCID,
		AnnouncedAt:  l.now(),
	}
	l.mu.Lock()
	l.holds[id] = h
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "hold announced",
		"hold", id.String(),
		"type", cond.Type().String(),
		"condition_cid", condCID.String(),
	)
	return *h, nil
}

// Release decodes fulfillment, checks it against the hold's condition and
// message, stores it and marks the hold released.
func (l *Ledger) Release(ctx context.Context, id uuid.UUID, fulfillment, message []byte) (Hold, error) {
	l.mu.Lock()
	h, ok := l.holds[id]
	if !ok {
		l.mu.Unlock()
		return Hold{}, ErrUnknownHold
	}
	if h.State == StateReleased {
		l.mu.Unlock()
		return Hold{}, ErrAlreadyReleased
	}
	cond := h.Condition
	l.mu.Unlock()

	log := l.logger.With("hold", id.String())

	f, err := cc.DecodeFulfillment(fulfillment)
	if err != nil {
		log.WarnContext(ctx, "fulfillment rejected", "rule", cc.RuleID(err), "error", err)
		return Hold{}, fmt.Errorf("%w: %w", ErrFulfillmentRejected, err)
	}
	got, err := cc.DeriveWith(l.provider, f)
	if err != nil {
		log.WarnContext(ctx, "fulfillment rejected", "rule", cc.RuleID(err), "error", err)
		return Hold{}, fmt.Errorf("%w: %w", ErrFulfillmentRejected, err)
	}
	if !got.Equal(cond) {
		log.WarnContext(ctx, "condition mismatch", "presented", got.URI())
		return Hold{}, ErrConditionMismatch
	}
	valid, err := cc.ValidateWith(l.provider, f, message)
	if err != nil {
		log.WarnContext(ctx, "fulfillment rejected", "rule", cc.RuleID(err), "error", err)
		return Hold{}, fmt.Errorf("%w: %w", ErrFulfillmentRejected, err)
	}
	if !valid {
		log.WarnContext(ctx, "fulfillment rejected", "reason", "validation failed")
		return Hold{}, ErrFulfillmentRejected
	}

	fCID, err := l.cas.Put(ctx, fulfillment)
	if err != nil {
		return Hold{}, fmt.Errorf("escrow: release: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h.State == StateReleased {
		return Hold{}, ErrAlreadyReleased
	}
	h.State = StateReleased
	h.FulfillmentCID = fCID
	h.ReleasedAt = l.now()

	log.InfoContext(ctx, "hold released", "fulfillment_cid", fCID.String())
	return *h, nil
}

func (l *Ledger) Get(id uuid.UUID) (Hold, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.holds[id]
	if !ok {
		return Hold{}, ErrUnknownHold
	}
	return *h, nil
}

// List returns all holds ordered by ID.
func (l *Ledger) List() []Hold {
	l.mu.Lock()
	out := make([]Hold, 0, len(l.holds))
	for _, h := range l.holds {
		out = append(out, *h)
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
