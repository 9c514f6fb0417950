// Package cache stores serialized analysis results keyed by request hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key hashes the JSON encoding of req under a namespace. Struct fields
// encode in declaration order, so equal requests give equal keys.
func Key(namespace string, req interface{}) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(b)
	return namespace + ":" + hex.EncodeToString(sum[:]), nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) GetBytes(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) SetBytes(context.Context, string, []byte, time.Duration) error { return nil }
