package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resulenz-backend/internal/resumes"
	"resulenz-backend/internal/shared/auth"
	"resulenz-backend/internal/shared/storage/object"
	"resulenz-backend/internal/shared/telemetry"
)

var ErrOwnerRequired = errors.New("owner is required")

// Service manages everything a principal owns across stores.
type Service struct {
	Blobs   object.ObjectStore
	Repo    *resumes.Repo
	Revoker *auth.Revoker
}

// WipeResult reports what Wipe removed.
type WipeResult struct {
	DeletedFiles int  `json:"deletedFiles"`
	FlushedKeys  int  `json:"flushedKeys"`
	SignedOut    bool `json:"signedOut"`
}

// ClaimResult reports what ClaimGuest moved.
type ClaimResult struct {
	MigratedResumes int `json:"migratedResumes"`
	MigratedFiles   int `json:"migratedFiles"`
}

func NewService(blobs object.ObjectStore, repo *resumes.Repo, revoker *auth.Revoker) *Service {
	return &Service{Blobs: blobs, Repo: repo, Revoker: revoker}
}

// Files lists the owner's stored blobs.
func (s *Service) Files(ctx context.Context, owner string) ([]object.Item, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrOwnerRequired
	}
	items, err := s.Blobs.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if items == nil {
		items = []object.Item{}
	}
	return items, nil
}

// Wipe deletes every blob of owner, flushes the owner's namespace and
// signs the session out when claims are given. Blobs already gone are
// not an error.
func (s *Service) Wipe(ctx context.Context, owner string, claims *auth.Claims) (WipeResult, error) {
	var res WipeResult
	items, err := s.Files(ctx, owner)
	if err != nil {
		return res, err
	}
	for _, item := range items {
		if err := s.Blobs.Delete(ctx, item.Path); err != nil && !errors.Is(err, object.ErrNotFound) {
			return res, fmt.Errorf("delete %s: %w", item.Name, err)
		}
		res.DeletedFiles++
	}
	flushed, err := s.Repo.KV.Flush(ctx, resumes.Namespace(owner))
	if err != nil {
		return res, fmt.Errorf("flush records: %w", err)
	}
	res.FlushedKeys = flushed

	if claims != nil {
		if err := s.Revoker.Revoke(ctx, *claims); err != nil {
			return res, fmt.Errorf("sign out: %w", err)
		}
		res.SignedOut = true
	}
	telemetry.Info("account.wiped", map[string]any{
		"deleted_files": res.DeletedFiles,
		"flushed_keys":  res.FlushedKeys,
		"signed_out":    res.SignedOut,
	})
	return res, nil
}

// ClaimGuest moves a guest's records and their blobs to a signed-in user.
// Each record is copied before the guest copy is removed, so an
// interrupted claim leaves data reachable from at least one side.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	var res ClaimResult
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return res, errors.New("guestUserID and authedUserID are required")
	}
	records, err := s.Repo.List(ctx, guestUserID)
	if err != nil {
		return res, fmt.Errorf("list guest records: %w", err)
	}
	for _, rec := range records {
		var moved, copies []string
		for _, p := range []*string{&rec.ResumePath, &rec.ImagePath} {
			if *p == "" || !object.OwnedBy(guestUserID, *p) {
				continue
			}
			key, err := s.copyBlob(ctx, authedUserID, *p)
			if err != nil {
				s.discard(ctx, copies)
				return res, fmt.Errorf("copy %s: %w", rec.ID, err)
			}
			moved = append(moved, *p)
			copies = append(copies, key)
			*p = key
		}
		if err := s.Repo.Put(ctx, authedUserID, rec); err != nil {
			s.discard(ctx, copies)
			return res, fmt.Errorf("write %s: %w", rec.ID, err)
		}
		if err := s.Repo.KV.Delete(ctx, resumes.Namespace(guestUserID), resumes.Key(rec.ID)); err != nil {
			return res, fmt.Errorf("remove guest record %s: %w", rec.ID, err)
		}
		s.discard(ctx, moved)
		res.MigratedResumes++
		res.MigratedFiles += len(moved)
	}
	return res, nil
}

// discard deletes blobs left behind by a claim; failures are only logged.
func (s *Service) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Blobs.Delete(ctx, key); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("account.claim_cleanup_failed", map[string]any{"path": key, "error": err})
		}
	}
}

func (s *Service) copyBlob(ctx context.Context, owner, key string) (string, error) {
	rc, err := s.Blobs.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	item := object.ItemFromKey(key, 0, time.Time{})
	newKey, _, _, err := s.Blobs.Save(ctx, owner, item.Name, rc)
	return newKey, err
}
