// Package cache is the key-value layer behind refresh sessions and permission
// sets. Every operation is atomic per key; callers do no locking of their own.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("cache: key not found")
	ErrMismatch = errors.New("cache: field value mismatch")
)

type Store interface {
	// SetHash replaces the hash at key and sets its TTL.
	SetHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	GetHash(ctx context.Context, key string) (map[string]string, error)
	// TakeHashIf deletes and returns the hash at key only when fields[field] == want.
	// It returns ErrNotFound when the key is absent and ErrMismatch otherwise.
	TakeHashIf(ctx context.Context, key, field, want string) (map[string]string, error)

	// SetList replaces the list at key and sets its TTL. Empty lists are not stored.
	SetList(ctx context.Context, key string, values []string, ttl time.Duration) error
	GetList(ctx context.Context, key string) ([]string, error)

	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}
