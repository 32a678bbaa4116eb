package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// File keeps every key in one JSON document on disk.
// Writes go to a temp file that is renamed over the original.
type File struct {
	path  string
	mu    sync.RWMutex
	data  map[string]string
	quota quota
}

// NewFile opens (or creates) the document at path. A document that cannot be
// parsed is moved aside and the store starts empty.
func NewFile(path string, quotaBytes int64, logger *slog.Logger) (*File, error) {
	f := &File{
		path:  path,
		data:  make(map[string]string),
		quota: quota{limit: quotaBytes},
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	case len(raw) > 0:
		if err := json.Unmarshal(raw, &f.data); err != nil {
			aside := path + ".corrupt-" + strconv.FormatInt(time.Now().UnixNano(), 10)
			if renameErr := os.Rename(path, aside); renameErr != nil {
				return nil, fmt.Errorf("failed to move aside unreadable storage file %s: %w", path, renameErr)
			}
			logger.Warn("storage file unreadable, starting empty",
				slog.String("path", path),
				slog.String("moved_to", aside),
				slog.Any("error", err))
			f.data = make(map[string]string)
		}
	}

	for k, v := range f.data {
		f.quota.used += entrySize(k, []byte(v))
	}

	return f, nil
}

func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	value, ok := f.data[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return []byte(value), nil
}

func (f *File) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, existed := f.data[key]
	var oldSize int64
	if existed {
		oldSize = entrySize(key, []byte(old))
	}
	newSize := entrySize(key, value)
	if !f.quota.fits(oldSize, newSize) {
		return &models.StorageError{Op: "set", Key: key, Err: models.ErrStorageQuotaExceeded}
	}

	f.data[key] = string(value)
	if err := f.flush(); err != nil {
		if existed {
			f.data[key] = old
		} else {
			delete(f.data, key)
		}
		return &models.StorageError{Op: "set", Key: key, Err: err}
	}
	f.quota.apply(oldSize, newSize)
	return nil
}

func (f *File) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	old, ok := f.data[key]
	if !ok {
		return nil
	}
	delete(f.data, key)
	if err := f.flush(); err != nil {
		f.data[key] = old
		return &models.StorageError{Op: "remove", Key: key, Err: err}
	}
	f.quota.apply(entrySize(key, []byte(old)), 0)
	return nil
}

func (f *File) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.data
	f.data = make(map[string]string)
	if err := f.flush(); err != nil {
		f.data = prev
		return &models.StorageError{Op: "clear", Err: err}
	}
	f.quota.used = 0
	return nil
}

func (f *File) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(f.path))
	return err
}

func (f *File) Close() error {
	return nil
}

// flush must be called with the write lock held
func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".storage-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}
