package services

import (
	"context"
	"errors"
	"testing"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionService_Propose(t *testing.T) {
	tests := []struct {
		name    string
		kind    models.ActionKind
		offerID string
		offer   models.Offer
		wantErr error
		wantMsg string
	}{
		{
			name:    "delete",
			kind:    models.ActionDeleteOffer,
			offerID: "offer_a",
			offer:   models.Offer{ID: "offer_a", Name: "Alpha", Status: models.OfferStatusActive},
			wantMsg: `Delete offer "Alpha"? This cannot be undone.`,
		},
		{
			name:    "toggle active offer",
			kind:    models.ActionToggleOffer,
			offerID: "offer_a",
			offer:   models.Offer{ID: "offer_a", Name: "Alpha", Status: models.OfferStatusActive},
			wantMsg: `Deactivate offer "Alpha"?`,
		},
		{
			name:    "toggle inactive offer",
			kind:    models.ActionToggleOffer,
			offerID: "offer_a",
			offer:   models.Offer{ID: "offer_a", Name: "Alpha", Status: models.OfferStatusInactive},
			wantMsg: `Activate offer "Alpha"?`,
		},
		{
			name:    "reset ignores offer id",
			kind:    models.ActionResetOffers,
			offerID: "offer_a",
			wantMsg: "Replace all offers with the initial data? Current offers will be lost.",
		},
		{
			name:    "unknown kind",
			kind:    "launchRockets",
			wantErr: models.ErrValidation,
		},
		{
			name:    "missing offer id",
			kind:    models.ActionDeleteOffer,
			wantErr: models.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offers := &MockOfferMutator{
				GetFunc: func(id string) (models.Offer, error) { return tt.offer, nil },
			}
			svc := NewActionService(offers, discardLogger())

			action, err := svc.Propose(tt.kind, tt.offerID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				_, ok := svc.Pending()
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMsg, action.Message)
			assert.NotEmpty(t, action.ID)

			pending, ok := svc.Pending()
			require.True(t, ok)
			assert.Equal(t, action, pending)
		})
	}
}

func TestActionService_ProposeUnknownOffer(t *testing.T) {
	offers := &MockOfferMutator{
		GetFunc: func(id string) (models.Offer, error) { return models.Offer{}, models.ErrNotFound },
	}
	svc := NewActionService(offers, discardLogger())

	_, err := svc.Propose(models.ActionDeleteOffer, "offer_missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestActionService_ConfirmDispatchesOnce(t *testing.T) {
	var removed []string
	offers := &MockOfferMutator{
		RemoveFunc: func(ctx context.Context, id string) error {
			removed = append(removed, id)
			return nil
		},
	}
	svc := NewActionService(offers, discardLogger())
	ctx := context.Background()

	_, err := svc.Propose(models.ActionDeleteOffer, "offer_a")
	require.NoError(t, err)

	result, err := svc.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ActionDeleteOffer, result.Kind)
	assert.Equal(t, "offer_a", result.OfferID)

	_, err = svc.Confirm(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, []string{"offer_a"}, removed)
}

func TestActionService_ConfirmToggleAndReset(t *testing.T) {
	resets := 0
	offers := &MockOfferMutator{
		ToggleStatusFunc: func(ctx context.Context, id string) (models.Offer, error) {
			return models.Offer{ID: id, Status: models.OfferStatusInactive}, nil
		},
		ResetFunc: func(ctx context.Context) error {
			resets++
			return nil
		},
	}
	svc := NewActionService(offers, discardLogger())
	ctx := context.Background()

	_, err := svc.Propose(models.ActionToggleOffer, "offer_a")
	require.NoError(t, err)
	result, err := svc.Confirm(ctx)
	require.NoError(t, err)
	require.NotNil(t, result.Offer)
	assert.Equal(t, models.OfferStatusInactive, result.Offer.Status)

	_, err = svc.Propose(models.ActionResetOffers, "")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resets)
}

func TestActionService_NewProposalReplacesOld(t *testing.T) {
	var removed, toggled int
	offers := &MockOfferMutator{
		RemoveFunc: func(ctx context.Context, id string) error { removed++; return nil },
		ToggleStatusFunc: func(ctx context.Context, id string) (models.Offer, error) {
			toggled++
			return models.Offer{ID: id}, nil
		},
	}
	svc := NewActionService(offers, discardLogger())

	_, err := svc.Propose(models.ActionDeleteOffer, "offer_a")
	require.NoError(t, err)
	_, err = svc.Propose(models.ActionToggleOffer, "offer_b")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 1, toggled)
}

func TestActionService_FailedConfirmIsConsumed(t *testing.T) {
	fail := errors.New("storage down")
	offers := &MockOfferMutator{
		RemoveFunc: func(ctx context.Context, id string) error { return fail },
	}
	svc := NewActionService(offers, discardLogger())

	_, err := svc.Propose(models.ActionDeleteOffer, "offer_a")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, fail)
	_, ok := svc.Pending()
	assert.False(t, ok)
}

func TestActionService_Cancel(t *testing.T) {
	svc := NewActionService(&MockOfferMutator{}, discardLogger())

	assert.False(t, svc.Cancel())
	_, err := svc.Propose(models.ActionResetOffers, "")
	require.NoError(t, err)
	assert.True(t, svc.Cancel())

	_, ok := svc.Pending()
	assert.False(t, ok)
	_, err = svc.Confirm(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestActionService_DroppedWhenSessionEnds(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	actions := NewActionService(&MockOfferMutator{}, discardLogger())
	f.service.OnSessionEnd(func() { actions.Cancel() })

	_, err := f.service.Login(ctx, LoginInput{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	_, err = actions.Propose(models.ActionDeleteOffer, "offer_a")
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx))
	_, ok := actions.Pending()
	assert.False(t, ok)

	_, err = f.service.Login(ctx, LoginInput{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	_, err = actions.Confirm(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
