package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotableLogger is a file writer that can be rotated while in use. Rotated
// files keep the date they were rotated on as suffix.
type RotableLogger struct {
	path string
	fd   *os.File
	mu   sync.Mutex
}

func NewRotableLogger(path string) (*RotableLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	fd, err := openLog(path)
	if err != nil {
		return nil, err
	}

	return &RotableLogger{path: path, fd: fd}, nil
}

func openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (r *RotableLogger) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fd == nil {
		return 0, os.ErrClosed
	}
	return r.fd.Write(p)
}

// Rotate moves the current file aside and starts a fresh one.
func (r *RotableLogger) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fd != nil {
		if err := r.fd.Close(); err != nil {
			return err
		}
		r.fd = nil
	}

	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("2006-01-02T15-04-05"))
	if err := os.Rename(r.path, rotated); err != nil && !os.IsNotExist(err) {
		return err
	}

	fd, err := openLog(r.path)
	if err != nil {
		return err
	}
	r.fd = fd

	return nil
}

func (r *RotableLogger) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fd == nil {
		return nil
	}
	err := r.fd.Close()
	r.fd = nil
	return err
}
