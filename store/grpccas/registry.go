package grpccas

import (
	"context"
	"errors"
	"time"

	"xdao.co/cryptoconditions/store"
)

func init() {
	store.MustRegister(store.Backend{
		Name:        "grpc",
		Description: "gRPC CAS client (settings: target, dial_timeout, timeout, max_msg_bytes)",
		Open: func(ctx context.Context, s store.Settings) (store.CAS, func() error, error) {
			target := s.Get("target", "")
			if target == "" {
				return nil, nil, errors.New("grpccas: missing target setting")
			}
			dialTimeout, err := s.Duration("dial_timeout", 5*time.Second)
			if err != nil {
				return nil, nil, err
			}
			timeout, err := s.Duration("timeout", 0)
			if err != nil {
				return nil, nil, err
			}
			maxMsg, err := s.Int("max_msg_bytes", 0)
			if err != nil {
				return nil, nil, err
			}
			client, err := Dial(ctx, target, DialOptions{Timeout: dialTimeout, MaxMsgBytes: maxMsg})
			if err != nil {
				return nil, nil, err
			}
			client.Timeout = timeout
			return client, client.Close, nil
		},
	})
}
