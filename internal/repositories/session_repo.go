package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// SessionRepository persists the single admin session blob
type SessionRepository struct {
	store storage.Storage
	key   string
}

func NewSessionRepository(store storage.Storage, key string) *SessionRepository {
	return &SessionRepository{store: store, key: key}
}

// Get returns the stored session. A blob that decodes but is missing its
// user or login time is reported as corrupt.
func (r *SessionRepository) Get(ctx context.Context) (*models.Session, error) {
	var s models.Session
	if err := readJSON(ctx, r.store, r.key, &s); err != nil {
		return nil, err
	}
	if s.User.Username == "" || s.LoginTime <= 0 {
		return nil, fmt.Errorf("%w: key %q: incomplete session", models.ErrCorruptData, r.key)
	}
	return &s, nil
}

func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	return writeJSON(ctx, r.store, r.key, s)
}

func (r *SessionRepository) Delete(ctx context.Context) error {
	return r.store.Remove(ctx, r.key)
}

// Key is the storage key the session lives under
func (r *SessionRepository) Key() string {
	return r.key
}
