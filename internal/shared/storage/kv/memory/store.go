package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"resulenz-backend/internal/shared/storage/kv"
)

type item struct {
	value     string
	expiresAt time.Time
}

// Store is an in-process kv.Store used in dev and tests.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]item
	now  func() time.Time
}

// New builds an empty store. now may be nil.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{data: make(map[string]map[string]item), now: now}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := kv.Validate(namespace, key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.data[namespace][key]
	if !ok || s.expired(it) {
		return "", false, nil
	}
	return it.value, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]item)
		s.data[namespace] = ns
	}
	ns[key] = it
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[namespace], key)
	return nil
}

func (s *Store) List(ctx context.Context, namespace, prefix string) ([]kv.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []kv.Entry
	for k, it := range s.data[namespace] {
		if !strings.HasPrefix(k, prefix) || s.expired(it) {
			continue
		}
		out = append(out, kv.Entry{Key: k, Value: it.value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.data[namespace] {
		if !s.expired(it) {
			n++
		}
	}
	delete(s.data, namespace)
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) expired(it item) bool {
	return !it.expiresAt.IsZero() && !s.now().Before(it.expiresAt)
}

var _ kv.Store = (*Store)(nil)
