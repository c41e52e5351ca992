// Package output persists pipeline artifacts with pre-mutation backups
// and graduated fallback for locked destinations.
package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Writer writes files crash-safely. Destinations may be held open by
// another process on the same machine, so a failed atomic rename falls
// back to copy-then-delete and finally to a direct overwrite; the
// underlying error surfaces only when every strategy fails.
type Writer struct {
	// MaxRetries bounds transient-failure retries per strategy.
	MaxRetries int
	// RetryBackoff is the pause between retries.
	RetryBackoff time.Duration

	// rename and stat are swapped in tests to simulate a locked or
	// unreadable destination.
	rename func(oldpath, newpath string) error
	stat   func(name string) (os.FileInfo, error)
	now    func() time.Time
}

// NewWriter returns a writer with small bounded retries.
func NewWriter() *Writer {
	return &Writer{
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		rename:       os.Rename,
		stat:         os.Stat,
		now:          time.Now,
	}
}

// Write persists content to dest. An existing destination is copied to a
// timestamped backup before any mutation.
func (w *Writer) Write(content []byte, dest string) (backupPath string, err error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	switch _, statErr := w.stat(dest); {
	case statErr == nil:
		backupPath = w.backupPath(dest)
		if err := copyFile(dest, backupPath); err != nil {
			return "", fmt.Errorf("backup destination: %w", err)
		}
	case !os.IsNotExist(statErr):
		// An unreadable destination cannot be snapshotted, so it must
		// not be mutated either.
		return "", fmt.Errorf("stat destination: %w", statErr)
	}

	tmp := dest + ".tmp"
	if err := w.retry(func() error { return writeFileSync(tmp, content) }); err != nil {
		return backupPath, fmt.Errorf("write temporary file: %w", err)
	}

	if err := w.retry(func() error { return w.rename(tmp, dest) }); err == nil {
		return backupPath, nil
	}
	slog.Warn("atomic rename failed, falling back to copy", slog.String("dest", dest))

	if err := w.retry(func() error { return copyFile(tmp, dest) }); err == nil {
		os.Remove(tmp)
		return backupPath, nil
	}
	slog.Warn("copy fallback failed, attempting direct overwrite", slog.String("dest", dest))

	os.Remove(tmp)
	if err := w.retry(func() error { return writeFileSync(dest, content) }); err != nil {
		return backupPath, fmt.Errorf("all write strategies failed for %s: %w", dest, err)
	}
	return backupPath, nil
}

func (w *Writer) backupPath(dest string) string {
	stamp := w.now().Format("20060102-150405")
	ext := filepath.Ext(dest)
	return dest[:len(dest)-len(ext)] + ".backup-" + stamp + ext
}

func (w *Writer) retry(op func() error) error {
	attempts := w.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(w.RetryBackoff)
		}
	}
	return err
}

func writeFileSync(path string, content []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
