// Package kv defines the namespaced key/value store that holds résumé
// records. Each principal owns one namespace; Flush clears it.
package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrInvalidKey is returned for empty namespaces or keys.
var ErrInvalidKey = errors.New("kv: namespace and key are required")

// Entry is one key/value pair returned by List.
type Entry struct {
	Key   string
	Value string
}

// Store is a string key/value store partitioned by namespace.
// A zero ttl on Set means the entry never expires.
type Store interface {
	Get(ctx context.Context, namespace, key string) (value string, found bool, err error)
	Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace, prefix string) ([]Entry, error)
	Flush(ctx context.Context, namespace string) (removed int, err error)
	Ping(ctx context.Context) error
}

// Validate checks namespace and key arguments shared by all backends.
func Validate(namespace, key string) error {
	if strings.TrimSpace(namespace) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	return nil
}
