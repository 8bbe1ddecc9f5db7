package repository

import (
	"context"
)

// CartKey is the key the serialized cart is stored under.
const CartKey = "@RocketShoes:cart"

// KV is a durable string key-value store.
type KV interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by drivers that can ping their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks kv if its driver supports it.
func Ping(ctx context.Context, kv KV) error {
	if p, ok := kv.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Scoped returns a KV that prepends prefix to every key before delegating to kv.
func Scoped(kv KV, prefix string) KV {
	if prefix == "" {
		return kv
	}
	return &scoped{kv: kv, prefix: prefix}
}

type scoped struct {
	kv     KV
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.kv.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.kv.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.kv.Delete(ctx, s.prefix+key)
}

func (s *scoped) Ping(ctx context.Context) error {
	return Ping(ctx, s.kv)
}
