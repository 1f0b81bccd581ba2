package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"study-app/internal/study"
	"study-app/internal/study/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "live.db")
	store, err := sqlite.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.SeedContent(context.Background(), []study.SeedSubject{
		{Name: "Networks", Modules: []study.SeedModule{{Title: "OSI", Submodules: []study.SeedSubmodule{{Title: "L1", Body: "bits"}}}}},
		{Name: "Databases", Modules: []study.SeedModule{{Title: "Transactions"}}},
	}); err != nil {
		t.Fatalf("SeedContent failed: %v", err)
	}
	return store
}

func subjectCount(t *testing.T, store *sqlite.SQLiteStore) int {
	t.Helper()
	count, err := store.CountSubjects(context.Background())
	if err != nil {
		t.Fatalf("CountSubjects failed: %v", err)
	}
	return count
}

func deleteFirstModule(t *testing.T, store *sqlite.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	subjects, _ := store.ListSubjects(ctx)
	modules, _ := store.ListModules(ctx, subjects[0].ID)
	if err := store.DeleteModule(ctx, modules[0].ID); err != nil {
		t.Fatalf("DeleteModule failed: %v", err)
	}
}

func moduleCount(t *testing.T, store *sqlite.SQLiteStore) int {
	t.Helper()
	ctx := context.Background()
	subjects, _ := store.ListSubjects(ctx)
	total := 0
	for _, s := range subjects {
		modules, err := store.ListModules(ctx, s.ID)
		if err != nil {
			t.Fatalf("ListModules failed: %v", err)
		}
		total += len(modules)
	}
	return total
}

func TestBackupIsByteForByte(t *testing.T) {
	store := newTestStore(t)
	manager := NewManager(store)

	var buf bytes.Buffer
	written, err := manager.Backup(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read live file: %v", err)
	}
	if written != int64(len(raw)) || !bytes.Equal(buf.Bytes(), raw) {
		t.Fatalf("backup differs from live file: %d vs %d bytes", written, len(raw))
	}

	// The store reopens on the next call.
	if got := subjectCount(t, store); got != 2 {
		t.Fatalf("expected 2 subjects after backup, got %d", got)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	broker := study.NewBroker()
	changes, cancel := broker.Subscribe(1)
	defer cancel()

	restored := false
	manager := NewManager(store, WithBroker(broker), WithAfterRestore(func() { restored = true }))
	ctx := context.Background()

	backupPath := filepath.Join(t.TempDir(), "copies", "study-backup.db")
	if _, err := manager.BackupToFile(ctx, backupPath); err != nil {
		t.Fatalf("BackupToFile failed: %v", err)
	}

	deleteFirstModule(t, store)
	if got := moduleCount(t, store); got != 1 {
		t.Fatalf("expected 1 module after delete, got %d", got)
	}

	if err := manager.RestoreFromFile(ctx, backupPath); err != nil {
		t.Fatalf("RestoreFromFile failed: %v", err)
	}
	if got := moduleCount(t, store); got != 2 {
		t.Fatalf("expected 2 modules after restore, got %d", got)
	}
	if !restored {
		t.Fatalf("expected restore hook to run")
	}
	if change := <-changes; change.Topic != study.TopicStore {
		t.Fatalf("expected store change, got %+v", change)
	}

	leftovers, _ := filepath.Glob(store.Path() + ".restore-*")
	if len(leftovers) != 0 {
		t.Fatalf("staging files left behind: %v", leftovers)
	}
}

func TestRestoreRejectsInvalidInputAndKeepsLiveFile(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "not sqlite", data: []byte("definitely not a database file")},
		{name: "truncated header", data: []byte("SQLite format 3\x00" + strings.Repeat("\x00", 40))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			manager := NewManager(store)

			before, err := os.ReadFile(store.Path())
			if err != nil {
				t.Fatalf("read live file: %v", err)
			}

			err = manager.Restore(context.Background(), bytes.NewReader(tc.data))
			if err == nil {
				t.Fatalf("expected restore to fail")
			}
			if !errors.Is(err, ErrInvalidBackup) {
				t.Fatalf("expected ErrInvalidBackup, got %v", err)
			}

			after, err := os.ReadFile(store.Path())
			if err != nil {
				t.Fatalf("read live file: %v", err)
			}
			if !bytes.Equal(before, after) {
				t.Fatalf("live file changed by a failed restore")
			}
			if got := subjectCount(t, store); got != 2 {
				t.Fatalf("expected store intact, got %d subjects", got)
			}
		})
	}
}

func TestRestoreFromMissingFile(t *testing.T) {
	manager := NewManager(newTestStore(t))
	if err := manager.RestoreFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.db")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
