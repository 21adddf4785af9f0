package memory

import (
	"context"
	"testing"
	"time"

	"resulenz-backend/internal/shared/storage/kv"
	"resulenz-backend/internal/shared/storage/kv/kvtest"
)

func TestMemoryStoreSuite(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return New(nil) })
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	s := New(func() time.Time { return now })
	ctx := context.Background()

	if err := s.Set(ctx, "auth", "revoked:jti-1", "1", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, found, _ := s.Get(ctx, "auth", "revoked:jti-1"); !found {
		t.Fatalf("expected live entry")
	}
	now = now.Add(2 * time.Minute)
	if _, found, _ := s.Get(ctx, "auth", "revoked:jti-1"); found {
		t.Fatalf("expected expired entry")
	}
}
