package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// KV is the durable string key-value store the session stores mirror their
// collections into.
type KV interface {
	// Get returns ErrKeyNotFound when the key has never been written.
	Get(ctx context.Context, key string) (string, error)
	// Set replaces the value; the last completed write wins.
	Set(ctx context.Context, key, value string) error
}

type SQLKV struct {
	db      *sql.DB
	dialect Dialect
	txOpts  TxOptions
}

func NewSQLKV(db *sql.DB, dialect Dialect) *SQLKV {
	return &SQLKV{db: db, dialect: dialect, txOpts: DefaultTxOptions()}
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, error) {
	query := fmt.Sprintf(`SELECT value FROM kv_entries WHERE key = %s`, s.dialect.Placeholder(1))

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrKeyNotFound
		}
		return "", &PersistenceError{Op: "get", Key: key, Err: err}
	}

	return value, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (%s, %s, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = excluded.value,
		    updated_at = CURRENT_TIMESTAMP`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	err := WithRetry(ctx, s.db, s.txOpts, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, key, value)
		return err
	})
	if err != nil {
		return &PersistenceError{Op: "set", Key: key, Err: err}
	}

	return nil
}

// MemoryKV keeps values in process memory. Useful for tests and for sessions
// that do not need to survive a restart.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}
