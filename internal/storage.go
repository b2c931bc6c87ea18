package internal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// KVStore is the durable key-value storage the conversation store writes
// through to. Get reports found=false for a missing key rather than an error.
type KVStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// SQLiteKV stores entries in the kv table of a SQLite database
type SQLiteKV struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLiteKV wraps an already opened database. The caller keeps ownership of db.
func NewSQLiteKV(db *sql.DB) (*SQLiteKV, error) {
	if err := EnsureKVTable(db); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
	}
	return &SQLiteKV{db: db}, nil
}

// OpenSQLiteKV opens the database at path and returns a store that closes it on Close.
func OpenSQLiteKV(path string) (*SQLiteKV, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Key: path, Err: err}
	}
	return &SQLiteKV{db: db, ownsDB: true}, nil
}

// DB exposes the underlying handle (used by inspect and healthcheck)
func (s *SQLiteKV) DB() *sql.DB {
	return s.db
}

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := getKV(ctx, s.db, key)
	if err != nil {
		return "", false, &StorageError{Backend: "sqlite", Op: "get", Key: key, Err: err}
	}
	return value, found, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	if err := putKV(ctx, s.db, key, value, time.Now()); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	if err := deleteKV(ctx, s.db, key); err != nil {
		return &StorageError{Backend: "sqlite", Op: "delete", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteKV) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// MemoryKV is a process-local store used by tests and --storage memory
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryKV creates an empty in-memory store
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Close() error {
	return nil
}

// OpenKVStore builds the backend selected in cfg
func OpenKVStore(ctx context.Context, cfg *Config) (KVStore, error) {
	switch cfg.Storage {
	case StorageSQLite:
		return OpenSQLiteKV(cfg.DBPath)
	case StorageRedis:
		return OpenRedisKV(ctx, cfg.RedisURL, cfg.RedisPrefix)
	case StorageMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage)
	}
}
