package output

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestWriter() *Writer {
	w := NewWriter()
	w.RetryBackoff = time.Millisecond
	return w
}

func TestWriteNewDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "table.csv")

	backup, err := newTestWriter().Write([]byte("a,b\n"), dest)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if backup != "" {
		t.Fatalf("no backup expected for a fresh destination, got %q", backup)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "a,b\n" {
		t.Fatalf("contents = %q", data)
	}
}

func TestWriteBacksUpExistingDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(dest, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	backup, err := newTestWriter().Write([]byte("new\n"), dest)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if backup == "" {
		t.Fatal("expected a backup path")
	}
	if !strings.Contains(filepath.Base(backup), ".backup-") {
		t.Fatalf("backup name %q not timestamped", backup)
	}

	old, err := os.ReadFile(backup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(old) != "old\n" {
		t.Fatalf("backup contents = %q", old)
	}

	current, _ := os.ReadFile(dest)
	if string(current) != "new\n" {
		t.Fatalf("destination contents = %q", current)
	}
}

func TestWriteRefusesUnreadableDestination(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(dest, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	w := newTestWriter()
	w.stat = func(string) (os.FileInfo, error) {
		return nil, &os.PathError{Op: "stat", Path: dest, Err: os.ErrPermission}
	}

	if _, err := w.Write([]byte("new\n"), dest); err == nil {
		t.Fatal("expected error when the destination cannot be snapshotted")
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(data) != "old\n" {
		t.Fatalf("destination mutated without a backup: %q", data)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestWriteFallsBackWhenRenameFails(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(dest, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed destination: %v", err)
	}

	w := newTestWriter()
	w.rename = func(oldpath, newpath string) error {
		return errors.New("destination locked")
	}

	backup, err := w.Write([]byte("new\n"), dest)
	if err != nil {
		t.Fatalf("write with failing rename: %v", err)
	}
	if backup == "" {
		t.Fatal("backup must exist after fallback write")
	}

	current, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if string(current) != "new\n" {
		t.Fatalf("destination contents = %q", current)
	}

	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary file should be cleaned up")
	}
}

func TestWriteRetriesTransientFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "table.csv")

	w := newTestWriter()
	calls := 0
	w.rename = func(oldpath, newpath string) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return os.Rename(oldpath, newpath)
	}

	if _, err := w.Write([]byte("x\n"), dest); err != nil {
		t.Fatalf("write: %v", err)
	}
	if calls != 3 {
		t.Fatalf("rename calls = %d, want 3", calls)
	}
}

func TestBackupPathsDistinctPerTimestamp(t *testing.T) {
	w := newTestWriter()
	stamps := []time.Time{
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 10, 0, 1, 0, time.UTC),
	}
	i := 0
	w.now = func() time.Time {
		t := stamps[i%len(stamps)]
		i++
		return t
	}

	first := w.backupPath("/data/out.csv")
	second := w.backupPath("/data/out.csv")
	if first == second {
		t.Fatalf("backup paths should differ, both %q", first)
	}
	if !strings.HasSuffix(first, ".csv") {
		t.Fatalf("backup should keep extension, got %q", first)
	}
}
