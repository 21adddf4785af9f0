package minio

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"

	"resulenz-backend/internal/shared/storage/object"
)

func TestMapNotFound(t *testing.T) {
	err := mapNotFound(minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."})
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	other := errors.New("connection refused")
	if got := mapNotFound(other); got != other {
		t.Fatalf("expected passthrough, got %v", got)
	}
}
