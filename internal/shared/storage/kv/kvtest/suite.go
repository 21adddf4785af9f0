// Package kvtest holds behaviour checks shared by every kv.Store backend.
package kvtest

import (
	"context"
	"testing"

	"resulenz-backend/internal/shared/storage/kv"
)

// Run exercises Get/Set/List/Flush semantics against a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, found, err := s.Get(ctx, "ns-a", "resume:none")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if found {
			t.Fatalf("expected missing key")
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		if err := s.Set(ctx, "ns-a", "resume:1", `{"feedback":null}`, 0); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Set(ctx, "ns-a", "resume:1", `{"feedback":{}}`, 0); err != nil {
			t.Fatalf("set: %v", err)
		}
		got, found, err := s.Get(ctx, "ns-a", "resume:1")
		if err != nil || !found {
			t.Fatalf("get: found=%v err=%v", found, err)
		}
		if got != `{"feedback":{}}` {
			t.Fatalf("expected overwritten value, got %q", got)
		}
	})

	t.Run("list by prefix within namespace", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "ns-a", "resume:1", "a1")
		mustSet(t, s, "ns-a", "resume:2", "a2")
		mustSet(t, s, "ns-a", "other:1", "x")
		mustSet(t, s, "ns-b", "resume:3", "b3")

		entries, err := s.List(ctx, "ns-a", "resume:")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
		}
		seen := map[string]string{}
		for _, e := range entries {
			seen[e.Key] = e.Value
		}
		if seen["resume:1"] != "a1" || seen["resume:2"] != "a2" {
			t.Fatalf("unexpected entries %+v", entries)
		}
	})

	t.Run("flush clears only the namespace", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "ns-a", "resume:1", "a1")
		mustSet(t, s, "ns-a", "resume:2", "a2")
		mustSet(t, s, "ns-b", "resume:3", "b3")

		removed, err := s.Flush(ctx, "ns-a")
		if err != nil {
			t.Fatalf("flush: %v", err)
		}
		if removed != 2 {
			t.Fatalf("expected 2 removed, got %d", removed)
		}
		if _, found, _ := s.Get(ctx, "ns-a", "resume:1"); found {
			t.Fatalf("expected ns-a flushed")
		}
		if _, found, _ := s.Get(ctx, "ns-b", "resume:3"); !found {
			t.Fatalf("expected ns-b untouched")
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		mustSet(t, s, "ns-a", "resume:1", "a1")
		if err := s.Delete(ctx, "ns-a", "resume:1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, found, _ := s.Get(ctx, "ns-a", "resume:1"); found {
			t.Fatalf("expected deleted")
		}
	})

	t.Run("rejects empty key", func(t *testing.T) {
		s := newStore(t)
		if err := s.Set(ctx, "ns-a", "", "v", 0); err == nil {
			t.Fatalf("expected error for empty key")
		}
	})
}

func mustSet(t *testing.T, s kv.Store, ns, key, value string) {
	t.Helper()
	if err := s.Set(context.Background(), ns, key, value, 0); err != nil {
		t.Fatalf("set %s/%s: %v", ns, key, err)
	}
}
