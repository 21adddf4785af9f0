package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"resulenz-backend/internal/shared/util"
)

// ErrNotFound is returned by Open and Delete when the key does not exist.
var ErrNotFound = errors.New("object not found")

// Item describes one stored object owned by a user.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"sizeBytes"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// ObjectStore defines the contract for saving and retrieving binary objects.
// Storage keys are always "<sha256(userId)>/<random>_<name>".
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	List(ctx context.Context, userId string) ([]Item, error)
}

// OwnerPrefix is the key prefix under which userId's objects live.
func OwnerPrefix(userId string) string {
	return util.HashUserKey(userId) + "/"
}

// OwnedBy reports whether storageKey belongs to userId.
func OwnedBy(userId, storageKey string) bool {
	clean := path.Clean(strings.ReplaceAll(storageKey, "\\", "/"))
	return strings.HasPrefix(clean, OwnerPrefix(userId)) && !strings.Contains(clean, "..")
}

// ItemFromKey derives the Item fields encoded in a storage key.
func ItemFromKey(storageKey string, size int64, modified time.Time) Item {
	key := strings.ReplaceAll(storageKey, "\\", "/")
	base := path.Base(key)
	id, name := base, base
	if i := strings.Index(base, "_"); i > 0 {
		id, name = base[:i], base[i+1:]
	}
	return Item{ID: id, Name: name, Path: key, SizeBytes: size, ModifiedAt: modified}
}
