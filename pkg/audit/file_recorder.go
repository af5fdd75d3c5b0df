package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileRecorder appends events as newline-delimited JSON to a log file,
// rotating when the file exceeds the configured size.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	size    int64
	path    string
	maxSize int64
}

// FileRecorderConfig configures the file sink.
type FileRecorderConfig struct {
	Path string

	// MaxSizeMB triggers rotation; zero disables it.
	MaxSizeMB int64
}

// NewFileRecorder opens (or creates) the audit log file.
func NewFileRecorder(cfg FileRecorderConfig) (*FileRecorder, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}

	r := &FileRecorder{path: cfg.Path, maxSize: cfg.MaxSizeMB * 1024 * 1024}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRecorder) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening audit log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat audit log file: %w", err)
	}
	r.file = f
	r.size = info.Size()
	return nil
}

func (r *FileRecorder) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().UTC().Format("20060102T150405"))
	if err := os.Rename(r.path, rotated); err != nil {
		return fmt.Errorf("rotating audit log: %w", err)
	}
	return r.open()
}

// Record implements Recorder.
func (r *FileRecorder) Record(ctx context.Context, event *Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}
	data = append(data, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxSize > 0 && r.size+int64(len(data)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return err
		}
	}

	n, err := r.file.Write(data)
	r.size += int64(n)
	if err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
