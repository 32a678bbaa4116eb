package repositories

import (
	"context"
	"errors"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// LoginAttemptRepository persists the failed-login counter
type LoginAttemptRepository struct {
	store storage.Storage
	key   string
}

func NewLoginAttemptRepository(store storage.Storage, key string) *LoginAttemptRepository {
	return &LoginAttemptRepository{store: store, key: key}
}

// Get returns the counter; a missing key is a zero counter. On corrupt data
// the zero counter is returned together with the error.
func (r *LoginAttemptRepository) Get(ctx context.Context) (models.LoginAttempts, error) {
	var a models.LoginAttempts
	err := readJSON(ctx, r.store, r.key, &a)
	switch {
	case err == nil:
		if a.Count < 0 {
			a.Count = 0
		}
		return a, nil
	case errors.Is(err, models.ErrNotFound):
		return models.LoginAttempts{}, nil
	default:
		return models.LoginAttempts{}, err
	}
}

func (r *LoginAttemptRepository) Save(ctx context.Context, a models.LoginAttempts) error {
	return writeJSON(ctx, r.store, r.key, a)
}

func (r *LoginAttemptRepository) Delete(ctx context.Context) error {
	return r.store.Remove(ctx, r.key)
}

func (r *LoginAttemptRepository) Key() string {
	return r.key
}
