package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// discardLogger returns a logger that drops everything
func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockOfferRepository implements OfferRepository for testing
type MockOfferRepository struct {
	GetAllFunc  func(ctx context.Context) ([]models.Offer, error)
	SaveAllFunc func(ctx context.Context, offers []models.Offer) error
}

func (m *MockOfferRepository) GetAll(ctx context.Context) ([]models.Offer, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return nil, models.ErrNotFound
}

func (m *MockOfferRepository) SaveAll(ctx context.Context, offers []models.Offer) error {
	if m.SaveAllFunc != nil {
		return m.SaveAllFunc(ctx, offers)
	}
	return nil
}

// MockTOTPChecker implements TOTPChecker for testing
type MockTOTPChecker struct {
	VerifyFunc func(code string, now time.Time) (bool, error)
}

func (m *MockTOTPChecker) Verify(code string, now time.Time) (bool, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(code, now)
	}
	return false, nil
}

// MockFailureDelayer implements FailureDelayer for testing
type MockFailureDelayer struct {
	WaitFromFunc func(ctx context.Context, start time.Time, success bool)
}

func (m *MockFailureDelayer) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if m.WaitFromFunc != nil {
		m.WaitFromFunc(ctx, start, success)
	}
}

// MockLockoutNotifier records the alerts it was asked to send
type MockLockoutNotifier struct {
	mu     sync.Mutex
	Alerts []LockoutAlert
	Err    error
}

func (m *MockLockoutNotifier) NotifyLockout(ctx context.Context, alert LockoutAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = append(m.Alerts, alert)
	return m.Err
}

// MockOfferMutator implements OfferMutator for testing
type MockOfferMutator struct {
	GetFunc          func(id string) (models.Offer, error)
	RemoveFunc       func(ctx context.Context, id string) error
	ToggleStatusFunc func(ctx context.Context, id string) (models.Offer, error)
	ResetFunc        func(ctx context.Context) error
}

func (m *MockOfferMutator) Get(id string) (models.Offer, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return models.Offer{ID: id, Name: "Test offer", Status: models.OfferStatusActive}, nil
}

func (m *MockOfferMutator) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *MockOfferMutator) ToggleStatus(ctx context.Context, id string) (models.Offer, error) {
	if m.ToggleStatusFunc != nil {
		return m.ToggleStatusFunc(ctx, id)
	}
	return models.Offer{ID: id, Status: models.OfferStatusInactive}, nil
}

func (m *MockOfferMutator) Reset(ctx context.Context) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx)
	}
	return nil
}

// validOffer returns an offer that passes validation
func validOffer(id, name string) models.Offer {
	return models.Offer{
		ID:        id,
		Name:      name,
		Status:    models.OfferStatusActive,
		Landing1:  true,
		AmountMin: 1000,
		AmountMax: 30000,
		TermMin:   7,
		TermMax:   30,
		Income:    10000,
	}
}
