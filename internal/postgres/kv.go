package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/toy-session-engine/internal/store"
)

// KVStore keeps session documents in session_kv, one row per key.
type KVStore struct {
	DB        *pgxpool.Pool
	Namespace string
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var b []byte
	err := s.DB.QueryRow(ctx,
		`SELECT value FROM session_kv WHERE namespace=$1 AND key=$2`,
		s.Namespace, key).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return b, err
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO session_kv(namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, s.Namespace, key, value)
	return err
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM session_kv WHERE namespace=$1 AND key=$2`, s.Namespace, key)
	return err
}
