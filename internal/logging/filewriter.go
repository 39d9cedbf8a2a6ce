package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileWriter appends log lines to a file and rolls it over to numbered
// backups (name.1, name.2, ...) once it grows past a size limit.
// It is safe for concurrent use.
type FileWriter struct {
	mu      sync.Mutex
	path    string
	limit   int64
	backups int

	f    *os.File
	size int64
}

// OpenFileWriter opens path for appending. maxSizeMB <= 0 means 20 MB and
// backups <= 0 means 2.
func OpenFileWriter(path string, maxSizeMB, backups int) (*FileWriter, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if backups <= 0 {
		backups = 2
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w := &FileWriter{path: path, limit: int64(maxSizeMB) << 20, backups: backups}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *FileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return 0, os.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.limit {
		if err := w.roll(); err != nil {
			return 0, fmt.Errorf("roll log file: %w", err)
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the file. Later writes fail with os.ErrClosed.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *FileWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.f = f
	w.size = info.Size()
	return nil
}

func (w *FileWriter) roll() error {
	if err := w.f.Close(); err != nil {
		return err
	}
	w.f = nil

	// Oldest backup falls off the end.
	os.Remove(w.backupPath(w.backups))
	for i := w.backups - 1; i >= 1; i-- {
		os.Rename(w.backupPath(i), w.backupPath(i+1))
	}
	if err := os.Rename(w.path, w.backupPath(1)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return w.open()
}

func (w *FileWriter) backupPath(i int) string {
	return fmt.Sprintf("%s.%d", w.path, i)
}
