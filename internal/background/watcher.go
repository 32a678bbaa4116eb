package background

import (
	"context"
	"log/slog"

	"github.com/BradenHooton/offeradmin/internal/storage"
)

// AuthReloader re-reads auth state written by another process
type AuthReloader interface {
	ReloadSession(ctx context.Context)
	ReloadAttempts(ctx context.Context)
}

// OfferReloader re-reads the offers collection
type OfferReloader interface {
	Reload(ctx context.Context) error
}

// WatchKeys names the storage keys the watcher reacts to
type WatchKeys struct {
	Session  string
	Attempts string
	Offers   string
}

// ChangeWatcher applies writes made through other storage handles, the way
// a browser tab reacts to the storage event.
type ChangeWatcher struct {
	source storage.Watcher
	auth   AuthReloader
	offers OfferReloader
	keys   WatchKeys
	logger *slog.Logger
	stopCh chan struct{}
}

func NewChangeWatcher(source storage.Watcher, auth AuthReloader, offers OfferReloader, keys WatchKeys, logger *slog.Logger) *ChangeWatcher {
	return &ChangeWatcher{
		source: source,
		auth:   auth,
		offers: offers,
		keys:   keys,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start consumes change events until ctx is cancelled or Stop is called
func (w *ChangeWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := w.source.Watch(ctx)
	if err != nil {
		w.logger.Warn("storage change feed unavailable", slog.Any("error", err))
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				w.logger.Info("storage change feed closed")
				return
			}
			w.Apply(ctx, ev)
		case <-w.stopCh:
			w.logger.Info("change watcher stopped")
			return
		case <-ctx.Done():
			w.logger.Info("change watcher context cancelled")
			return
		}
	}
}

// Apply reloads whatever state ev touched. An empty key reloads everything.
func (w *ChangeWatcher) Apply(ctx context.Context, ev storage.ChangeEvent) {
	all := ev.Key == ""

	if all || ev.Key == w.keys.Session {
		w.auth.ReloadSession(ctx)
	}
	if all || ev.Key == w.keys.Attempts {
		w.auth.ReloadAttempts(ctx)
	}
	if all || ev.Key == w.keys.Offers {
		if err := w.offers.Reload(ctx); err != nil {
			w.logger.Warn("failed to reload offers after foreign write",
				slog.String("key", ev.Key), slog.Any("error", err))
		}
	}
}

// Stop signals the watcher to stop
func (w *ChangeWatcher) Stop() {
	close(w.stopCh)
}
