package attrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore backs the attribute store with a single table keyed by
// (scope, id, key). enc, when non-nil, seals values before they are
// written and opens them on read.
type PostgresStore struct {
	db  *sql.DB
	enc *Encryptor
}

// NewPostgresStore wraps db, which must already be open against a schema
// containing:
//
//	CREATE TABLE attributes (
//	  scope TEXT NOT NULL,
//	  id    TEXT NOT NULL,
//	  key   TEXT NOT NULL,
//	  value BYTEA NOT NULL,
//	  PRIMARY KEY (scope, id, key)
//	);
func NewPostgresStore(db *sql.DB, enc *Encryptor) *PostgresStore {
	return &PostgresStore{db: db, enc: enc}
}

func (s *PostgresStore) Get(ctx context.Context, scope, id, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM attributes WHERE scope = $1 AND id = $2 AND key = $3`,
		scope, id, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("attrstore: postgres select: %w", err)
	}
	return s.enc.Open(value)
}

func (s *PostgresStore) Set(ctx context.Context, scope, id, key string, value []byte) error {
	sealed, err := s.enc.Seal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attributes (scope, id, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, id, key) DO UPDATE SET value = EXCLUDED.value
	`, scope, id, key, sealed)
	if err != nil {
		return fmt.Errorf("attrstore: postgres upsert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Del(ctx context.Context, scope, id, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attributes WHERE scope = $1 AND id = $2 AND key = $3`,
		scope, id, key,
	)
	if err != nil {
		return fmt.Errorf("attrstore: postgres delete: %w", err)
	}
	return nil
}
