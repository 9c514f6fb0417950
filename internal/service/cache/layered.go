package cache

import (
	"context"
	"time"
)

// Layered reads through a local front cache to a shared back cache. Back
// hits are copied to the front with frontTTL. Back errors are returned
// but front state is kept.
type Layered struct {
	front    BytesCache
	back     BytesCache
	frontTTL time.Duration
}

func NewLayered(front, back BytesCache, frontTTL time.Duration) *Layered {
	return &Layered{front: front, back: back, frontTTL: frontTTL}
}

func (l *Layered) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := l.front.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := l.back.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = l.front.SetBytes(ctx, key, b, l.frontTTL)
	return b, true, nil
}

func (l *Layered) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	frontTTL := l.frontTTL
	if ttl > 0 && (frontTTL <= 0 || ttl < frontTTL) {
		frontTTL = ttl
	}
	_ = l.front.SetBytes(ctx, key, value, frontTTL)
	return l.back.SetBytes(ctx, key, value, ttl)
}
