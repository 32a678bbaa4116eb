// Package storage provides the key/value persistence the admin panel keeps its
// session, lockout counter and offers in. Values are opaque byte blobs (JSON
// documents in practice); a missing key is reported as models.ErrNotFound.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// Storage is a flat key/value store
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// ChangeEvent reports a write made through another storage handle.
// An empty Key means the whole store was cleared.
type ChangeEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// Watcher is implemented by backends that can report foreign writes
type Watcher interface {
	// Watch streams changes made by other handles until ctx is cancelled
	Watch(ctx context.Context) (<-chan ChangeEvent, error)
}

// IsNotFound reports whether err means the key does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

func wrapErr(op, key string, err error) error {
	if err == nil || IsNotFound(err) {
		return err
	}
	var se *models.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &models.StorageError{Op: op, Key: key, Err: err}
}

func encodeEvent(ev ChangeEvent) string {
	data, _ := json.Marshal(ev)
	return string(data)
}

func decodeEvent(payload string) (ChangeEvent, bool) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, false
	}
	return ev, true
}

// quota tracks bytes used the way browsers account localStorage (key + value)
type quota struct {
	limit int64
	used  int64
}

func entrySize(key string, value []byte) int64 {
	return int64(len(key) + len(value))
}

// fits reports whether replacing oldSize bytes with newSize stays within the limit
func (q *quota) fits(oldSize, newSize int64) bool {
	if q.limit <= 0 {
		return true
	}
	return q.used-oldSize+newSize <= q.limit
}

func (q *quota) apply(oldSize, newSize int64) {
	q.used += newSize - oldSize
}
