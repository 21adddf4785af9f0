package resumes

import (
	"context"
	"sync"
	"time"

	"resulenz-backend/internal/blobref"
	"resulenz-backend/internal/shared/telemetry"
)

// RefRegistry creates and revokes transient blob references.
type RefRegistry interface {
	Create(data []byte, contentType string) (blobref.Ref, error)
	Revoke(token string) bool
}

// View is the presentation state of one record. Close releases its
// transient references exactly once; callers defer it.
type View struct {
	ID       string
	Found    bool
	Record   Record
	Resume   *blobref.Ref
	Image    *blobref.Ref
	OpenedAt time.Time

	refs RefRegistry
	once sync.Once
}

// Feedback is the record's feedback, nil while pending or when not found.
func (v *View) Feedback() *Feedback {
	if v == nil || !v.Found {
		return nil
	}
	return v.Record.Feedback
}

// Status is "pending", "ready", or empty when nothing was found.
func (v *View) Status() string {
	if v == nil || !v.Found {
		return ""
	}
	return v.Record.Status()
}

// Close revokes whichever references were created. Safe to call repeatedly.
func (v *View) Close() {
	if v == nil {
		return
	}
	v.once.Do(func() {
		if v.refs == nil {
			return
		}
		for _, ref := range []*blobref.Ref{v.Resume, v.Image} {
			if ref != nil {
				v.refs.Revoke(ref.Token)
			}
		}
	})
}

// Views tracks open views until the client tears them down or they expire.
type Views struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	items map[string]trackedView
}

type trackedView struct {
	owner     string
	view      *View
	expiresAt time.Time
}

// NewViews constructs a view registry.
func NewViews(ttl time.Duration) *Views {
	if ttl <= 0 {
		ttl = blobref.DefaultTTL
	}
	return &Views{TTL: ttl, Now: time.Now, items: make(map[string]trackedView)}
}

// Track registers v for owner and returns its expiry.
func (vs *Views) Track(owner string, v *View) time.Time {
	expires := vs.now().Add(vs.TTL)
	vs.mu.Lock()
	vs.items[v.ID] = trackedView{owner: owner, view: v, expiresAt: expires}
	vs.mu.Unlock()
	return expires
}

// Release closes the owner's view. It reports whether one was tracked.
func (vs *Views) Release(owner, viewID string) bool {
	vs.mu.Lock()
	tv, ok := vs.items[viewID]
	if ok && tv.owner != owner {
		ok = false
	}
	if ok {
		delete(vs.items, viewID)
	}
	vs.mu.Unlock()
	if ok {
		tv.view.Close()
	}
	return ok
}

// Len reports how many views are tracked.
func (vs *Views) Len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.items)
}

// Sweep closes expired views and returns how many were closed.
func (vs *Views) Sweep() int {
	now := vs.now()
	var expired []*View
	vs.mu.Lock()
	for id, tv := range vs.items {
		if !now.Before(tv.expiresAt) {
			expired = append(expired, tv.view)
			delete(vs.items, id)
		}
	}
	vs.mu.Unlock()
	for _, v := range expired {
		v.Close()
	}
	if len(expired) > 0 {
		telemetry.Debug("views.swept", map[string]any{"closed": len(expired)})
	}
	return len(expired)
}

// CloseAll releases every tracked view, used on shutdown.
func (vs *Views) CloseAll() {
	vs.mu.Lock()
	items := vs.items
	vs.items = make(map[string]trackedView)
	vs.mu.Unlock()
	for _, tv := range items {
		tv.view.Close()
	}
}

// Run sweeps on every tick until ctx is done, then closes the rest.
func (vs *Views) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			vs.CloseAll()
			return
		case <-ticker.C:
			vs.Sweep()
		}
	}
}

func (vs *Views) now() time.Time {
	if vs.Now != nil {
		return vs.Now()
	}
	return time.Now()
}
