package store

import (
	"context"
	"testing"
)

type doc struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestLoadSaveRemove(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	key := Keys{Namespace: "t"}.Cart()

	var got doc
	ok, err := Load(ctx, kv, key, &got)
	if err != nil || ok {
		t.Fatalf("Load(missing) = %v, %v; want false, nil", ok, err)
	}

	if err := Save(ctx, kv, key, doc{Name: "a", N: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err = Load(ctx, kv, key, &got)
	if err != nil || !ok || got.N != 2 {
		t.Fatalf("Load = %v, %v, %+v", ok, err, got)
	}

	if err := Remove(ctx, kv, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := Remove(ctx, kv, key); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
}

func TestLoadCorruptValue(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	_ = kv.Set(ctx, "k", []byte("{not json"))

	var got doc
	if _, err := Load(ctx, kv, "k", &got); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestKeysNamespace(t *testing.T) {
	if got := (Keys{}).Reservations(); got != "bn:reservations" {
		t.Errorf("default namespace key = %q", got)
	}
	if got := (Keys{Namespace: "dev"}).TotalBorrowed(); got != "dev:totalBorrowed" {
		t.Errorf("key = %q", got)
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	in := []byte("abc")
	_ = kv.Set(ctx, "k", in)
	in[0] = 'X'

	out, _ := kv.Get(ctx, "k")
	if string(out) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", out)
	}
}
