package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"study-app/internal/logger"
	"study-app/internal/study"
	"study-app/internal/study/sqlite"
)

var ErrInvalidBackup = errors.New("backup is not a valid database")

var sqliteHeader = []byte("SQLite format 3\x00")

// Store is the part of the database the manager needs: its file path and a
// way to hold every other caller off while the file is touched.
type Store interface {
	Path() string
	Exclusive(ctx context.Context, fn func(path string) error) error
}

type Manager struct {
	store        Store
	broker       *study.Broker
	log          *logger.Logger
	afterRestore func()
}

type Option func(*Manager)

func WithBroker(broker *study.Broker) Option {
	return func(m *Manager) { m.broker = broker }
}

func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithAfterRestore runs fn once a restored file is in place.
func WithAfterRestore(fn func()) Option {
	return func(m *Manager) { m.afterRestore = fn }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{store: store}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	m.log = m.log.With("component", "backup")
	return m
}

// Backup writes a byte-for-byte copy of the live database file to w.
func (m *Manager) Backup(ctx context.Context, w io.Writer) (int64, error) {
	var written int64
	err := m.store.Exclusive(ctx, func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		written, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		m.log.Error("backup failed", "error", err)
		return written, fmt.Errorf("backup: %w", err)
	}
	m.log.Info("backup written", "bytes", written)
	return written, nil
}

// BackupToFile writes the copy next to dst first so a failed backup never
// leaves a truncated file at dst.
func (m *Manager) BackupToFile(ctx context.Context, dst string) (int64, error) {
	if strings.TrimSpace(dst) == "" {
		return 0, errors.New("backup: destination path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".partial-*")
	if err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	written, err := m.Backup(ctx, tmp)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	return written, nil
}

// Restore replaces the live database with the contents of r. The bytes are
// staged and verified beside the live file and only then renamed over it;
// any failure leaves the live file untouched.
func (m *Manager) Restore(ctx context.Context, r io.Reader) error {
	staging, err := m.stage(r)
	if err != nil {
		m.log.Warn("restore rejected", "error", err)
		return fmt.Errorf("restore: %w", err)
	}
	defer os.Remove(staging)

	if err := verify(ctx, staging); err != nil {
		m.log.Warn("restore rejected", "error", err)
		return fmt.Errorf("restore: %w", err)
	}

	err = m.store.Exclusive(ctx, func(path string) error {
		if err := os.Rename(staging, path); err != nil {
			return err
		}
		for _, suffix := range []string{"-wal", "-shm", "-journal"} {
			if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.log.Error("restore failed", "error", err)
		return fmt.Errorf("restore: %w", err)
	}

	if m.afterRestore != nil {
		m.afterRestore()
	}
	if m.broker != nil {
		m.broker.Publish(study.TopicStore, 0)
	}
	m.log.Info("database restored", "path", m.store.Path())
	return nil
}

func (m *Manager) RestoreFromFile(ctx context.Context, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	defer f.Close()
	return m.Restore(ctx, f)
}

func (m *Manager) stage(r io.Reader) (string, error) {
	live := m.store.Path()
	f, err := os.CreateTemp(filepath.Dir(live), filepath.Base(live)+".restore-*")
	if err != nil {
		return "", err
	}
	name := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func verify(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	header := make([]byte, len(sqliteHeader))
	_, err = io.ReadFull(f, header)
	_ = f.Close()
	if err != nil || !bytes.Equal(header, sqliteHeader) {
		return ErrInvalidBackup
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: integrity check reported %q", ErrInvalidBackup, result)
	}
	return nil
}
