package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/ariefcatur/toy-session-engine/internal/store"
)

var ErrInjected = errors.New("storetest: injected failure")

// Faulty wraps a store.KV and fails writes to selected keys. It exists so callers
// can exercise their rollback paths.
type Faulty struct {
	store.KV

	mu       sync.Mutex
	failKeys map[string]bool
}

func NewFaulty(kv store.KV) *Faulty {
	return &Faulty{KV: kv, failKeys: map[string]bool{}}
}

func (f *Faulty) FailSet(key string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKeys[key] = fail
}

func (f *Faulty) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failKeys[key]
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.KV.Set(ctx, key, value)
}
