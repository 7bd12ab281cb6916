package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pliu/siso/internal/apperr"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" {
		// One connection keeps ":memory:" databases shared and avoids
		// SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chats (
		id TEXT PRIMARY KEY,
		user_a_id TEXT NOT NULL,
		user_b_id TEXT NOT NULL,
		pair_lo TEXT NOT NULL,
		pair_hi TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE (pair_lo, pair_hi)
	);

	CREATE INDEX IF NOT EXISTS chats_user_a ON chats (user_a_id);
	CREATE INDEX IF NOT EXISTS chats_user_b ON chats (user_b_id);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		chat_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		ciphertext TEXT NOT NULL,
		iv TEXT NOT NULL,
		auth_tag TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS messages_inbox ON messages (chat_id, receiver_id, created_at);
	CREATE INDEX IF NOT EXISTS messages_outbox ON messages (chat_id, sender_id);
	CREATE INDEX IF NOT EXISTS messages_created ON messages (created_at);
	`

	if s.driverName == "postgres" {
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
	}

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// storeErr tags a driver error as a persistence failure.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrStore, op, err)
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// withTx runs fn inside a transaction and commits when it returns nil.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
