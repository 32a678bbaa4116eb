package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/google/uuid"
)

// memoryBackend is the map shared by every handle created from one NewMemory call
type memoryBackend struct {
	mu    sync.RWMutex
	data  map[string][]byte
	quota quota
	subs  map[chan ChangeEvent]string // subscriber -> origin of the watching handle
}

// Memory is an in-process store. Handles returned by Share see the same data
// and receive each other's change events, which is how tests model two tabs.
type Memory struct {
	backend *memoryBackend
	origin  string
}

// NewMemory creates an empty store; quotaBytes <= 0 disables the quota
func NewMemory(quotaBytes int64) *Memory {
	return &Memory{
		backend: &memoryBackend{
			data:  make(map[string][]byte),
			quota: quota{limit: quotaBytes},
			subs:  make(map[chan ChangeEvent]string),
		},
		origin: uuid.New().String(),
	}
}

// Share returns another handle onto the same data with its own origin
func (m *Memory) Share() *Memory {
	return &Memory{backend: m.backend, origin: uuid.New().String()}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()

	value, ok := m.backend.data[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return slices.Clone(value), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	b := m.backend
	b.mu.Lock()

	var oldSize int64
	if old, ok := b.data[key]; ok {
		oldSize = entrySize(key, old)
	}
	newSize := entrySize(key, value)
	if !b.quota.fits(oldSize, newSize) {
		b.mu.Unlock()
		return &models.StorageError{Op: "set", Key: key, Err: models.ErrStorageQuotaExceeded}
	}

	b.data[key] = slices.Clone(value)
	b.quota.apply(oldSize, newSize)
	b.mu.Unlock()

	m.notify(key)
	return nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	b := m.backend
	b.mu.Lock()
	old, ok := b.data[key]
	if ok {
		delete(b.data, key)
		b.quota.apply(entrySize(key, old), 0)
	}
	b.mu.Unlock()

	if ok {
		m.notify(key)
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	b := m.backend
	b.mu.Lock()
	b.data = make(map[string][]byte)
	b.quota.used = 0
	b.mu.Unlock()

	m.notify("")
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op; shared handles keep the data alive
func (m *Memory) Close() error {
	return nil
}

// Usage returns the bytes accounted against the quota
func (m *Memory) Usage() int64 {
	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()
	return m.backend.quota.used
}

// Watch delivers writes made through other handles
func (m *Memory) Watch(ctx context.Context) (<-chan ChangeEvent, error) {
	ch := make(chan ChangeEvent, 16)

	m.backend.mu.Lock()
	m.backend.subs[ch] = m.origin
	m.backend.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.backend.mu.Lock()
		delete(m.backend.subs, ch)
		m.backend.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (m *Memory) notify(key string) {
	ev := ChangeEvent{Key: key, Origin: m.origin}

	m.backend.mu.RLock()
	defer m.backend.mu.RUnlock()

	for ch, origin := range m.backend.subs {
		if origin == m.origin {
			continue
		}
		select {
		case ch <- ev:
		default:
			// slow subscriber; the next refresh picks the change up
		}
	}
}
