package minio

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"resulenz-backend/internal/shared/storage/object"
	"resulenz-backend/internal/shared/util"
)

// Store implements ObjectStore for MinIO and other S3-compatible servers.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Save uploads the reader under the user's namespace. Uploads are capped
// upstream, so the body is buffered to give MinIO an exact size.
func (s *Store) Save(ctx context.Context, userId string, fileName string, r io.Reader) (string, int64, string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", fmt.Errorf("read body: %w", err)
	}
	mimeType := http.DetectContentType(data)
	key := util.HashUserKey(userId) + "/" + randomID() + "_" + sanitizedName

	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return "", 0, "", fmt.Errorf("put object bucket=%s key=%s: %w", s.bucket, key, err)
	}
	return key, int64(len(data)), mimeType, nil
}

// Open fetches an object. The object is stat'ed first so missing keys fail here
// rather than on first Read.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, storageKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object bucket=%s key=%s: %w", s.bucket, storageKey, mapNotFound(err))
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat object bucket=%s key=%s: %w", s.bucket, storageKey, mapNotFound(err))
	}
	return obj, nil
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, storageKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object bucket=%s key=%s: %w", s.bucket, storageKey, mapNotFound(err))
	}
	return nil
}

// List returns the user's objects.
func (s *Store) List(ctx context.Context, userId string) ([]object.Item, error) {
	var items []object.Item
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    object.OwnerPrefix(userId),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects bucket=%s: %w", s.bucket, info.Err)
		}
		items = append(items, object.ItemFromKey(info.Key, info.Size, info.LastModified.UTC()))
	}
	return items, nil
}

func mapNotFound(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", object.ErrNotFound, err)
	}
	return err
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

var _ object.ObjectStore = (*Store)(nil)
