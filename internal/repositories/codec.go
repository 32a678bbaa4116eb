package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// readJSON loads key into dst. A missing key returns models.ErrNotFound and
// undecodable bytes return an error wrapping models.ErrCorruptData.
func readJSON(ctx context.Context, store storage.Storage, key string, dst any) error {
	raw, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: key %q: %v", models.ErrCorruptData, key, err)
	}
	return nil
}

func writeJSON(ctx context.Context, store storage.Storage, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return store.Set(ctx, key, raw)
}
