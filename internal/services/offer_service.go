package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/validation"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
	"github.com/google/uuid"
)

// OfferRepository persists the whole offers collection
type OfferRepository interface {
	GetAll(ctx context.Context) ([]models.Offer, error)
	SaveAll(ctx context.Context, offers []models.Offer) error
}

// OfferService keeps the authoritative in-memory offer list in step with storage.
// Every mutation works on a copy and is committed to memory only after the
// whole list has been validated and written.
type OfferService struct {
	repo        OfferRepository
	seed        SeedFunc
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time

	mu     sync.RWMutex
	offers []models.Offer

	saving atomic.Bool
}

func NewOfferService(repo OfferRepository, seed SeedFunc, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OfferService {
	if seed == nil {
		seed = NoSeed
	}
	return &OfferService{
		repo:        repo,
		seed:        seed,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
		offers:      []models.Offer{},
	}
}

// SetClock replaces time.Now, for tests
func (s *OfferService) SetClock(now func() time.Time) {
	s.now = now
}

// Load reads the persisted collection. A missing key is seeded and written;
// unreadable or invalid data leaves an empty list without touching storage.
func (s *OfferService) Load(ctx context.Context) []models.Offer {
	s.mu.Lock()
	defer s.mu.Unlock()

	offers, err := s.repo.GetAll(ctx)
	switch {
	case errors.Is(err, models.ErrNotFound):
		offers = s.seed(s.now())
		if err := validateOffers(offers); err != nil {
			s.logger.Error("seed data is invalid", slog.Any("error", err))
			offers = []models.Offer{}
		}
		if err := s.repo.SaveAll(ctx, offers); err != nil {
			s.logger.Error("failed to persist seeded offers", slog.Any("error", err))
		} else {
			s.logger.Info("offers seeded", slog.Int("count", len(offers)))
		}
	case err != nil:
		s.logger.Warn("stored offers unreadable, starting empty", slog.Any("error", err))
		offers = []models.Offer{}
	default:
		if err := validateOffers(offers); err != nil {
			s.logger.Warn("stored offers failed validation, starting empty", slog.Any("error", err))
			offers = []models.Offer{}
		}
	}

	s.offers = offers
	return models.CloneOffers(offers)
}

// Reload re-reads storage after another process wrote to it. Unlike Load it
// keeps the current list when the stored copy cannot be used. The lock is held
// across the read so a concurrent mutation cannot be overwritten by stale data.
func (s *OfferService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offers, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	if err := validateOffers(offers); err != nil {
		return err
	}

	s.offers = offers
	return nil
}

// Save validates and persists offers as the complete new collection
func (s *OfferService) Save(ctx context.Context, offers []models.Offer) error {
	return s.mutate(ctx, func(current []models.Offer) ([]models.Offer, error) {
		return models.CloneOffers(offers), nil
	}, func(ctx context.Context, next []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOffersSaved, usernameFrom(ctx), "",
			map[string]string{"count": strconv.Itoa(len(next))})
	})
}

// Add assigns an id (when empty) and timestamps, then appends the offer
func (s *OfferService) Add(ctx context.Context, offer models.Offer) (models.Offer, error) {
	now := s.now()
	offer = offer.Clone()
	if offer.ID == "" {
		offer.ID = GenerateOfferID(now)
	}
	if offer.Status == "" {
		offer.Status = models.OfferStatusActive
	}
	offer.CreatedAt = now.UnixMilli()
	offer.UpdatedAt = offer.CreatedAt

	if err := validation.Struct(offer); err != nil {
		return models.Offer{}, err
	}

	err := s.mutate(ctx, func(current []models.Offer) ([]models.Offer, error) {
		if indexOf(current, offer.ID) >= 0 {
			return nil, fmt.Errorf("%w: offer %q", models.ErrConflict, offer.ID)
		}
		return append(current, offer), nil
	}, func(ctx context.Context, _ []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOfferCreated, usernameFrom(ctx), offer.ID, nil)
	})
	if err != nil {
		return models.Offer{}, err
	}
	return offer.Clone(), nil
}

// Update replaces the offer with the same id, keeping its creation time
func (s *OfferService) Update(ctx context.Context, offer models.Offer) (models.Offer, error) {
	offer = offer.Clone()
	offer.UpdatedAt = s.now().UnixMilli()

	err := s.mutate(ctx, func(current []models.Offer) ([]models.Offer, error) {
		i := indexOf(current, offer.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: offer %q", models.ErrNotFound, offer.ID)
		}
		offer.CreatedAt = current[i].CreatedAt
		if err := validation.Struct(offer); err != nil {
			return nil, err
		}
		current[i] = offer
		return current, nil
	}, func(ctx context.Context, _ []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOfferUpdated, usernameFrom(ctx), offer.ID, nil)
	})
	if err != nil {
		return models.Offer{}, err
	}
	return offer.Clone(), nil
}

// Remove deletes the offer with the given id
func (s *OfferService) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(current []models.Offer) ([]models.Offer, error) {
		i := indexOf(current, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: offer %q", models.ErrNotFound, id)
		}
		return slices.Delete(current, i, i+1), nil
	}, func(ctx context.Context, _ []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOfferDeleted, usernameFrom(ctx), id, nil)
	})
}

// ToggleStatus flips an offer between active and inactive
func (s *OfferService) ToggleStatus(ctx context.Context, id string) (models.Offer, error) {
	var toggled models.Offer
	err := s.mutate(ctx, func(current []models.Offer) ([]models.Offer, error) {
		i := indexOf(current, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: offer %q", models.ErrNotFound, id)
		}
		if current[i].IsActive() {
			current[i].Status = models.OfferStatusInactive
		} else {
			current[i].Status = models.OfferStatusActive
		}
		current[i].UpdatedAt = s.now().UnixMilli()
		toggled = current[i].Clone()
		return current, nil
	}, func(ctx context.Context, _ []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOfferToggled, usernameFrom(ctx), id,
			map[string]string{"status": toggled.Status})
	})
	if err != nil {
		return models.Offer{}, err
	}
	return toggled, nil
}

// Reset replaces the collection with freshly seeded data
func (s *OfferService) Reset(ctx context.Context) error {
	return s.mutate(ctx, func(_ []models.Offer) ([]models.Offer, error) {
		return s.seed(s.now()), nil
	}, func(ctx context.Context, next []models.Offer) {
		s.auditLogger.LogOfferChange(ctx, pkglogger.EventOffersReset, usernameFrom(ctx), "",
			map[string]string{"count": strconv.Itoa(len(next))})
	})
}

// Get returns a copy of one offer
func (s *OfferService) Get(id string) (models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.offers, id)
	if i < 0 {
		return models.Offer{}, fmt.Errorf("%w: offer %q", models.ErrNotFound, id)
	}
	return s.offers[i].Clone(), nil
}

// List returns a copy of every offer in stored order
func (s *OfferService) List() []models.Offer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneOffers(s.offers)
}

func (s *OfferService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers)
}

// Stats aggregates the current list
func (s *OfferService) Stats() models.OfferStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeStats(s.offers, s.now())
}

// mutate applies change to a copy of the list, validates and persists the
// result, and only then swaps it in. Concurrent calls fail fast.
func (s *OfferService) mutate(
	ctx context.Context,
	change func(current []models.Offer) ([]models.Offer, error),
	onCommit func(ctx context.Context, next []models.Offer),
) error {
	if !s.saving.CompareAndSwap(false, true) {
		return models.ErrOperationInProgress
	}
	defer s.saving.Store(false)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := change(models.CloneOffers(s.offers))
	if err != nil {
		return err
	}
	if next == nil {
		next = []models.Offer{}
	}
	if err := validateOffers(next); err != nil {
		return err
	}
	if err := s.repo.SaveAll(ctx, next); err != nil {
		s.logger.Error("failed to persist offers", slog.Any("error", err))
		return err
	}

	s.offers = next
	if onCommit != nil {
		onCommit(ctx, next)
	}
	return nil
}

// validateOffers checks every offer and that ids are unique
func validateOffers(offers []models.Offer) error {
	seen := make(map[string]int, len(offers))
	for i := range offers {
		if err := validation.Struct(offers[i]); err != nil {
			var ve *models.ValidationError
			if errors.As(err, &ve) {
				return models.NewValidationError(fmt.Sprintf("offers[%d].%s", i, ve.Field), ve.Message)
			}
			return err
		}
		if j, dup := seen[offers[i].ID]; dup {
			return models.NewValidationError(fmt.Sprintf("offers[%d].id", i),
				fmt.Sprintf("duplicates the id of offers[%d]", j))
		}
		seen[offers[i].ID] = i
	}
	return nil
}

func indexOf(offers []models.Offer, id string) int {
	return slices.IndexFunc(offers, func(o models.Offer) bool { return o.ID == id })
}

// GenerateOfferID returns offer_<base36 unix ms>_<5 random chars>
func GenerateOfferID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:5]
	return "offer_" + strconv.FormatInt(now.UnixMilli(), 36) + "_" + suffix
}

// usernameFrom reads the acting admin for audit records, if the caller set one
func usernameFrom(ctx context.Context) string {
	name, _ := ctx.Value(actorKey{}).(string)
	return name
}

type actorKey struct{}

// WithActor tags ctx with the admin performing an offer change
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}
