// Package blobref hands out transient, revocable references to blob bytes
// that were read for display.
package blobref

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"resulenz-backend/internal/shared/metrics"
	"resulenz-backend/internal/shared/telemetry"
)

// DefaultTTL bounds the life of a reference nobody revoked.
const DefaultTTL = 15 * time.Minute

// ErrEmpty is returned when asked to reference no bytes.
var ErrEmpty = errors.New("blobref: empty blob")

// Ref is a transient reference.
type Ref struct {
	Token       string    `json:"token"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	SizeBytes   int       `json:"sizeBytes"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type entry struct {
	data        []byte
	contentType string
	expiresAt   time.Time
}

// Registry is a mutex-guarded token table.
type Registry struct {
	// BaseURL is prefixed to tokens to form Ref.URL.
	BaseURL string
	TTL     time.Duration
	Now     func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// New returns a registry serving references under baseURL.
func New(baseURL string, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{BaseURL: baseURL, TTL: ttl, Now: time.Now, entries: make(map[string]entry)}
}

// Create registers data and returns a fresh reference.
func (r *Registry) Create(data []byte, contentType string) (Ref, error) {
	if len(data) == 0 {
		return Ref{}, ErrEmpty
	}
	token, err := newToken()
	if err != nil {
		return Ref{}, err
	}
	expires := r.now().Add(r.TTL)

	r.mu.Lock()
	r.entries[token] = entry{data: data, contentType: contentType, expiresAt: expires}
	n := len(r.entries)
	r.mu.Unlock()
	metrics.SetTransientRefs(n)

	return Ref{
		Token:       token,
		URL:         r.BaseURL + token,
		ContentType: contentType,
		SizeBytes:   len(data),
		ExpiresAt:   expires,
	}, nil
}

// Resolve returns the bytes behind a live token.
func (r *Registry) Resolve(token string) ([]byte, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[token]
	if !ok || !r.now().Before(e.expiresAt) {
		return nil, "", false
	}
	return e.data, e.contentType, true
}

// Revoke drops a token. It reports whether the token was registered.
func (r *Registry) Revoke(token string) bool {
	r.mu.Lock()
	_, ok := r.entries[token]
	delete(r.entries, token)
	n := len(r.entries)
	r.mu.Unlock()
	if ok {
		metrics.SetTransientRefs(n)
	}
	return ok
}

// Len reports the number of registered tokens, expired ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops expired tokens and returns how many were dropped.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	removed := 0
	for token, e := range r.entries {
		if !now.Before(e.expiresAt) {
			delete(r.entries, token)
			removed++
		}
	}
	n := len(r.entries)
	r.mu.Unlock()
	if removed > 0 {
		metrics.SetTransientRefs(n)
		telemetry.Debug("blobref.swept", map[string]any{"removed": removed, "active": n})
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
