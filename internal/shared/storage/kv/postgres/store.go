package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"resulenz-backend/internal/shared/storage/kv"
)

// Store implements kv.Store on the kv_entries table.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

// New wraps an open database. Migrations must already be applied.
func New(db *sql.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := kv.Validate(namespace, key); err != nil {
		return "", false, err
	}
	var value string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM kv_entries
		 WHERE namespace = $1 AND key = $2 AND (expires_at IS NULL OR expires_at > $3)`,
		namespace, key, s.now(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	now := s.now()
	var expiresAt any
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO kv_entries (namespace, key, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (namespace, key)
		 DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		namespace, key, value, expiresAt, now,
	)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if err := kv.Validate(namespace, key); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`, namespace, key); err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, namespace, prefix string) ([]kv.Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, value FROM kv_entries
		 WHERE namespace = $1 AND left(key, $2) = $3 AND (expires_at IS NULL OR expires_at > $4)
		 ORDER BY key`,
		namespace, len([]rune(prefix)), prefix, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer rows.Close()

	var out []kv.Entry
	for rows.Next() {
		var e kv.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) (int, error) {
	if strings.TrimSpace(namespace) == "" {
		return 0, kv.ErrInvalidKey
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = $1`, namespace)
	if err != nil {
		return 0, fmt.Errorf("kv flush: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("kv flush rows: %w", err)
	}
	return int(n), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

var _ kv.Store = (*Store)(nil)
