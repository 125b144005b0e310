// Package rediscas stores encoded conditions and fulfillments in Redis.
package rediscas

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/redis/go-redis/v9"

	"xdao.co/cryptoconditions/cidutil"
	"xdao.co/cryptoconditions/store"
)

// DefaultPrefix namespaces object keys.
const DefaultPrefix = "ccond:cas:"

// putScript stores ARGV[1] under KEYS[1] unless a value is already present.
// It returns 1 when stored, 0 when the same bytes were present and -1 when
// different bytes were present.
var putScript = redis.NewScript(`
local existing = redis.call("GET", KEYS[1])
if not existing then
    redis.call("SET", KEYS[1], ARGV[1])
    return 1
end
if existing == ARGV[1] then
    return 0
end
return -1
`)

// CAS implements store.CAS on a Redis keyspace.
type CAS struct {
	client redis.UniversalClient
	prefix string
}

var _ store.CAS = (*CAS)(nil)

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string) *CAS {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &CAS{client: client, prefix: prefix}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, opts Options) (*CAS, error) {
	if opts.Addr == "" {
		return nil, errors.New("rediscas: address is required")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rediscas: ping %s: %w", opts.Addr, err)
	}
	return New(rdb, opts.Prefix), nil
}

func (c *CAS) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *CAS) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(data)
	if err != nil {
		return cid.Undef, err
	}
	res, err := putScript.Run(ctx, c.client, []string{c.key(id)}, data).Int()
	if err != nil {
		return cid.Undef, err
	}
	if res < 0 {
		return cid.Undef, store.ErrImmutable
	}
	return id, nil
}

func (c *CAS) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, store.ErrInvalidCID
	}
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, store.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if !id.Defined() {
		return false, nil
	}
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *CAS) key(id cid.Cid) string {
	return c.prefix + id.String()
}

func init() {
	store.MustRegister(store.Backend{
		Name:        "redis",
		Description: "Redis CAS (settings: addr, password, db, prefix)",
		Open: func(ctx context.Context, s store.Settings) (store.CAS, func() error, error) {
			db, err := s.Int("db", 0)
			if err != nil {
				return nil, nil, err
			}
			cas, err := Dial(ctx, Options{
				Addr:     s.Get("addr", ""),
				Password: s.Get("password", ""),
				DB:       db,
				Prefix:   s.Get("prefix", DefaultPrefix),
			})
			if err != nil {
				return nil, nil, err
			}
			return cas, cas.Close, nil
		},
	})
}
