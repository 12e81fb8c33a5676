// Package store is the per-shopper key-value state (session, cart) with change
// notification. Writers never coordinate: the last write wins.
package store

import (
	"context"
	"time"
)

// Change is delivered to watchers after every Set or Delete. Value is nil
// when the key was deleted.
type Change struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type Store interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value; a zero ttl keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Watch streams changes of key until ctx is done, then closes the channel.
	Watch(ctx context.Context, key string) (<-chan Change, error)
}

func SessionKey(userID string) string { return "session:" + userID }

func CartKey(userID string) string { return "cart:" + userID }

const watchBuffer = 16
