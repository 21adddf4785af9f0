package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"resulenz-backend/internal/shared/storage/kv"
)

const (
	keyPrefix = "kv:"
	scanBatch = 200
)

// Store implements kv.Store on Redis. Keys are laid out as kv:<namespace>:<key>.
type Store struct {
	client *goredis.Client
}

// New connects to addr. The connection is lazy; call Ping to verify it.
func New(addr, password string, db int) *Store {
	return NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := kv.Validate(namespace, key); err != nil {
		return "", false, err
	}
	val, err := s.client.Get(ctx, redisKey(namespace, key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, redisKey(namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisKey(namespace, key)).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, namespace, prefix string) ([]kv.Entry, error) {
	keys, err := s.scan(ctx, namespace, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}
	base := redisKey(namespace, "")
	out := make([]kv.Entry, 0, len(keys))
	for i, raw := range vals {
		// Keys can expire between SCAN and MGET.
		str, ok := raw.(string)
		if !ok {
			continue
		}
		out = append(out, kv.Entry{Key: strings.TrimPrefix(keys[i], base), Value: str})
	}
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) (int, error) {
	if strings.TrimSpace(namespace) == "" {
		return 0, kv.ErrInvalidKey
	}
	keys, err := s.scan(ctx, namespace, "")
	if err != nil {
		return 0, err
	}
	removed := 0
	for start := 0; start < len(keys); start += scanBatch {
		end := start + scanBatch
		if end > len(keys) {
			end = len(keys)
		}
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis del: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) scan(ctx context.Context, namespace, prefix string) ([]string, error) {
	match := escapeGlob(redisKey(namespace, prefix)) + "*"
	var keys []string
	iter := s.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

func redisKey(namespace, key string) string {
	return keyPrefix + namespace + ":" + key
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ kv.Store = (*Store)(nil)
