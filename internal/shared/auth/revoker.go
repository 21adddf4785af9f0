package auth

import (
	"context"
	"time"

	"resulenz-backend/internal/shared/storage/kv"
)

const revokedNamespace = "auth:revoked"

// Revoker records signed-out token ids until the token would have expired anyway.
// A nil *Revoker revokes nothing.
type Revoker struct {
	Store kv.Store
	Now   func() time.Time
}

// NewRevoker builds a revoker on store.
func NewRevoker(store kv.Store) *Revoker {
	return &Revoker{Store: store, Now: time.Now}
}

// Revoke marks the token identified by claims as signed out.
func (r *Revoker) Revoke(ctx context.Context, claims Claims) error {
	if r == nil || r.Store == nil || claims.ID == "" {
		return nil
	}
	ttl := DefaultTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(r.now())
	}
	if ttl <= 0 {
		return nil
	}
	return r.Store.Set(ctx, revokedNamespace, claims.ID, claims.Subject, ttl)
}

// IsRevoked reports whether jti was signed out.
func (r *Revoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil || r.Store == nil || jti == "" {
		return false, nil
	}
	_, found, err := r.Store.Get(ctx, revokedNamespace, jti)
	return found, err
}

func (r *Revoker) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
