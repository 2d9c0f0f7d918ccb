package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/users"
	_ "modernc.org/sqlite"
)

var _ credentials.Store = (*Store)(nil)

// Store keeps each credential key as a row of the credentials table. Writes and clears
// run in one transaction so the keys always change as a set.
type Store struct {
	db  *sql.DB
	dsn string
}

// New opens (creating if needed) the database at dsn and applies pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("[sqlitestore New] open: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore New] pragma: %w", err)
	}

	s := &Store{db: db, dsn: dsn}
	if err := s.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[sqlitestore New] migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Write(ctx context.Context, pair credentials.Pair, profile users.Profile) error {
	rec, err := credentials.NewRecord(pair, profile)
	if err != nil {
		return err
	}
	values, err := rec.Values()
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
			return fmt.Errorf("[sqlitestore Write] delete: %w", err)
		}
		for _, key := range credentials.Keys {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
				key, values[key],
			); err != nil {
				return fmt.Errorf("[sqlitestore Write] insert %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) Read(ctx context.Context) (credentials.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM credentials`)
	if err != nil {
		return credentials.Record{}, fmt.Errorf("[sqlitestore Read] query: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(credentials.Keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return credentials.Record{}, fmt.Errorf("[sqlitestore Read] scan: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return credentials.Record{}, fmt.Errorf("[sqlitestore Read] rows: %w", err)
	}

	return credentials.RecordFromValues(values)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
			return fmt.Errorf("[sqlitestore Clear] %w", err)
		}
		return nil
	})
}

// withTx executes fn within a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
