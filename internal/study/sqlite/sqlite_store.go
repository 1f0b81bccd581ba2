package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var ErrClosed = errors.New("store is closed")

// SQLiteStore owns the database handle. Regular calls hold a shared lease on
// it; Exclusive closes the handle so the raw file can be copied, and the next
// call reopens it.
type SQLiteStore struct {
	path string

	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "study.db"
	}

	store := &SQLiteStore{path: path}
	db, err := store.open(context.Background())
	if err != nil {
		return nil, err
	}
	store.db = db
	return store, nil
}

// Open opens path as a SQLite database with foreign keys enforced.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func dsn(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

func (s *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := Open(s.path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *SQLiteStore) Path() string {
	return s.path
}

// lease returns the live handle and its release func, reopening the
// database if Exclusive closed it.
func (s *SQLiteStore) lease(ctx context.Context) (*sql.DB, func(), error) {
	for {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return nil, nil, ErrClosed
		}
		if s.db != nil {
			return s.db, s.mu.RUnlock, nil
		}
		s.mu.RUnlock()

		s.mu.Lock()
		if s.db == nil && !s.closed {
			db, err := s.open(ctx)
			if err != nil {
				s.mu.Unlock()
				return nil, nil, err
			}
			s.db = db
		}
		s.mu.Unlock()
	}
}

// Exclusive closes the handle and runs fn with the database file path while
// no other call can touch the store.
func (s *SQLiteStore) Exclusive(ctx context.Context, fn func(path string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	return fn(s.path)
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db, release, err := s.lease(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
