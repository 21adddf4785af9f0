package resumes

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resulenz-backend/internal/shared/storage/kv"
	"resulenz-backend/internal/shared/telemetry"
	"resulenz-backend/internal/shared/util"
)

// Repo persists records in the owner's KV namespace.
type Repo struct {
	KV kv.Store
}

// NewRepo constructs a Repo.
func NewRepo(store kv.Store) *Repo {
	return &Repo{KV: store}
}

// Namespace is the KV namespace of an owner.
func Namespace(owner string) string {
	return util.HashUserKey(owner)
}

// Put writes rec under "resume:<id>", replacing any previous value.
func (r *Repo) Put(ctx context.Context, owner string, rec Record) error {
	if owner == "" || rec.ID == "" {
		return ErrInvalidInput
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return r.KV.Set(ctx, Namespace(owner), Key(rec.ID), string(raw), 0)
}

// Get reads a record. found is false when the key does not exist.
func (r *Repo) Get(ctx context.Context, owner, id string) (Record, bool, error) {
	if owner == "" || strings.TrimSpace(id) == "" {
		return Record{}, false, ErrInvalidInput
	}
	raw, found, err := r.KV.Get(ctx, Namespace(owner), Key(id))
	if err != nil || !found {
		return Record{}, found, err
	}
	rec, err := DecodeRecord(raw)
	if err != nil {
		return Record{}, true, err
	}
	return rec, true, nil
}

// List returns every decodable record of owner, newest first.
func (r *Repo) List(ctx context.Context, owner string) ([]Record, error) {
	if owner == "" {
		return nil, ErrInvalidInput
	}
	entries, err := r.KV.List(ctx, Namespace(owner), KeyPrefix)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		rec, err := DecodeRecord(e.Value)
		if err != nil {
			telemetry.Warn("resume.decode_failed", map[string]any{"key": e.Key, "error": err})
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// DecodeRecord parses a stored value, migrating legacy feedback.
func DecodeRecord(raw string) (Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.ID == "" {
		return Record{}, fmt.Errorf("decode record: missing id")
	}
	return rec, nil
}
