package repositories

import (
	"context"
	"errors"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// PreferencesRepository stores the "remember me" username
type PreferencesRepository struct {
	store       storage.Storage
	usernameKey string
	rememberKey string
}

func NewPreferencesRepository(store storage.Storage, usernameKey, rememberKey string) *PreferencesRepository {
	return &PreferencesRepository{store: store, usernameKey: usernameKey, rememberKey: rememberKey}
}

// SavedUsername returns the remembered username, or "" when remember-me is off
func (r *PreferencesRepository) SavedUsername(ctx context.Context) (string, error) {
	var remember bool
	if err := readJSON(ctx, r.store, r.rememberKey, &remember); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !remember {
		return "", nil
	}

	raw, err := r.store.Get(ctx, r.usernameKey)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil
	}
	return string(raw), err
}

// Remember stores username as plain text, matching the browser panel's layout
func (r *PreferencesRepository) Remember(ctx context.Context, username string) error {
	if err := r.store.Set(ctx, r.usernameKey, []byte(username)); err != nil {
		return err
	}
	return writeJSON(ctx, r.store, r.rememberKey, true)
}

func (r *PreferencesRepository) Forget(ctx context.Context) error {
	if err := r.store.Remove(ctx, r.usernameKey); err != nil {
		return err
	}
	return r.store.Remove(ctx, r.rememberKey)
}
