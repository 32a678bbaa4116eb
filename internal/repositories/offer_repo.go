package repositories

import (
	"context"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/storage"
)

// OfferRepository persists the whole offers collection as one JSON array
type OfferRepository struct {
	store storage.Storage
	key   string
}

func NewOfferRepository(store storage.Storage, key string) *OfferRepository {
	return &OfferRepository{store: store, key: key}
}

func (r *OfferRepository) GetAll(ctx context.Context) ([]models.Offer, error) {
	var offers []models.Offer
	if err := readJSON(ctx, r.store, r.key, &offers); err != nil {
		return nil, err
	}
	if offers == nil {
		offers = []models.Offer{}
	}
	return offers, nil
}

// SaveAll overwrites the collection; encoding is deterministic for equal input
func (r *OfferRepository) SaveAll(ctx context.Context, offers []models.Offer) error {
	if offers == nil {
		offers = []models.Offer{}
	}
	return writeJSON(ctx, r.store, r.key, offers)
}

func (r *OfferRepository) Key() string {
	return r.key
}
