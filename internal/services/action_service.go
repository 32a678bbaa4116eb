package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/google/uuid"
)

// OfferMutator is the part of OfferService a confirmed action may call
type OfferMutator interface {
	Get(id string) (models.Offer, error)
	Remove(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (models.Offer, error)
	Reset(ctx context.Context) error
}

// ActionResult reports what a confirmed action did
type ActionResult struct {
	Kind    models.ActionKind `json:"kind"`
	OfferID string            `json:"offer_id,omitempty"`
	Offer   *models.Offer     `json:"offer,omitempty"`
}

// ActionService holds at most one destructive action awaiting confirmation
type ActionService struct {
	offers OfferMutator
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending *models.PendingAction
}

func NewActionService(offers OfferMutator, logger *slog.Logger) *ActionService {
	return &ActionService{
		offers: offers,
		logger: logger,
		now:    time.Now,
	}
}

// Propose records a new pending action, replacing any earlier one
func (s *ActionService) Propose(kind models.ActionKind, offerID string) (models.PendingAction, error) {
	if !kind.Valid() {
		return models.PendingAction{}, models.NewValidationError("kind", fmt.Sprintf("unknown action %q", kind))
	}

	var message string
	switch kind {
	case models.ActionDeleteOffer, models.ActionToggleOffer:
		if offerID == "" {
			return models.PendingAction{}, models.NewValidationError("offer_id", "this field is required")
		}
		offer, err := s.offers.Get(offerID)
		if err != nil {
			return models.PendingAction{}, err
		}
		if kind == models.ActionDeleteOffer {
			message = fmt.Sprintf("Delete offer %q? This cannot be undone.", offer.Name)
		} else if offer.IsActive() {
			message = fmt.Sprintf("Deactivate offer %q?", offer.Name)
		} else {
			message = fmt.Sprintf("Activate offer %q?", offer.Name)
		}
	case models.ActionResetOffers:
		offerID = ""
		message = "Replace all offers with the initial data? Current offers will be lost."
	}

	action := models.PendingAction{
		ID:        uuid.NewString(),
		Kind:      kind,
		OfferID:   offerID,
		Message:   message,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	replaced := s.pending
	s.pending = &action
	s.mu.Unlock()

	if replaced != nil {
		s.logger.Debug("pending action replaced", slog.String("previous", string(replaced.Kind)))
	}
	return action, nil
}

// Pending returns the action awaiting confirmation, if any
func (s *ActionService) Pending() (models.PendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return models.PendingAction{}, false
	}
	return *s.pending, true
}

// Confirm runs the pending action. The action is consumed before it runs, so
// a second Confirm cannot dispatch it again even if the first one failed.
func (s *ActionService) Confirm(ctx context.Context) (ActionResult, error) {
	s.mu.Lock()
	action := s.pending
	s.pending = nil
	s.mu.Unlock()

	if action == nil {
		return ActionResult{}, fmt.Errorf("%w: no pending action", models.ErrNotFound)
	}

	result := ActionResult{Kind: action.Kind, OfferID: action.OfferID}
	var err error
	switch action.Kind {
	case models.ActionDeleteOffer:
		err = s.offers.Remove(ctx, action.OfferID)
	case models.ActionToggleOffer:
		var offer models.Offer
		offer, err = s.offers.ToggleStatus(ctx, action.OfferID)
		if err == nil {
			result.Offer = &offer
		}
	case models.ActionResetOffers:
		err = s.offers.Reset(ctx)
	default:
		err = models.NewValidationError("kind", fmt.Sprintf("unknown action %q", action.Kind))
	}
	if err != nil {
		s.logger.Warn("confirmed action failed",
			slog.String("kind", string(action.Kind)),
			slog.String("offer_id", action.OfferID),
			slog.Any("error", err))
		return ActionResult{}, err
	}
	return result, nil
}

// Cancel drops the pending action; it reports whether there was one
func (s *ActionService) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.pending = nil
	return had
}
