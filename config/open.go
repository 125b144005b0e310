package config

import (
	"context"
	"fmt"

	"xdao.co/cryptoconditions/store"
)

// Open opens the configured backends and combines them per WritePolicy.
//
// If preferred is non-empty, the backend with that name or ID is moved to
// the front (and thus receives writes under the "first" policy). Backends
// must be linked in, usually via blank imports.
func (s StoreConfig) Open(ctx context.Context, preferred string) (store.CAS, func() error, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}

	ordered := append([]BackendConfig(nil), s.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred || ordered[i].ID == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, nil, fmt.Errorf("config: preferred backend %q not configured", preferred)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]store.NamedCAS, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range ordered {
		cas, closeFn, err := store.Open(ctx, b.Name, store.Settings(b.Settings))
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("config: open backend %q: %w", b.id(), err)
		}
		named = append(named, store.NamedCAS{Name: b.id(), CAS: cas})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].CAS, closeAll, nil
	}
	if s.WritePolicy == "all" {
		return store.ReplicatingCAS{Backends: named}, closeAll, nil
	}
	adapters := make([]store.CAS, 0, len(named))
	for _, n := range named {
		adapters = append(adapters, n.CAS)
	}
	return store.MultiCAS{Adapters: adapters}, closeAll, nil
}
