package background

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/offeradmin/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	seen  chan string
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan string, 16)}
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
	select {
	case r.seen <- name:
	default:
	}
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) ReloadSession(ctx context.Context)  { r.record("session") }
func (r *recorder) ReloadAttempts(ctx context.Context) { r.record("attempts") }
func (r *recorder) Reload(ctx context.Context) error {
	r.record("offers")
	return nil
}

var testKeys = WatchKeys{Session: "admin_auth", Attempts: "login_attempts", Offers: "admin_offers"}

func TestChangeWatcher_Apply(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want []string
	}{
		{"session key", "admin_auth", []string{"session"}},
		{"attempts key", "login_attempts", []string{"attempts"}},
		{"offers key", "admin_offers", []string{"offers"}},
		{"unrelated key", "saved_username", nil},
		{"clear reloads everything", "", []string{"session", "attempts", "offers"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			w := NewChangeWatcher(storage.NewMemory(0), rec, rec, testKeys, discardLogger())
			w.Apply(context.Background(), storage.ChangeEvent{Key: tt.key})
			assert.Equal(t, tt.want, rec.Calls())
		})
	}
}

func TestChangeWatcher_ReactsToOtherHandle(t *testing.T) {
	store := storage.NewMemory(0)
	other := store.Share()
	rec := newRecorder()

	w := NewChangeWatcher(store, rec, rec, testKeys, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	// writes through the watched handle itself are not echoed back
	require.Eventually(t, func() bool {
		_ = store.Set(ctx, "admin_offers", []byte("[]"))
		_ = other.Set(ctx, "admin_offers", []byte("[]"))
		select {
		case name := <-rec.seen:
			return name == "offers"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestScheduler(t *testing.T) {
	s := NewScheduler(discardLogger())

	err := s.Every("broken", 0, func(ctx context.Context) {})
	assert.Error(t, err)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.Every("tick", time.Second, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
