// Package store is the durable key-value layer behind the session engine.
//
// Everything the engine persists (cart, reservations, borrowed counter,
// catalog snapshot, session user) is a JSON document under one key of a
// fixed namespace. Backends only need Get/Set/Delete.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("store: key not found")

type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Load decodes key into out. It reports false, with out untouched, when the
// key does not exist.
func Load[T any](ctx context.Context, kv KV, key string, out *T) (bool, error) {
	b, err := kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: get %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	*out = v
	return true, nil
}

func Save(ctx context.Context, kv KV, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	if err := kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

func Remove(ctx context.Context, kv KV, key string) error {
	if err := kv.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}
