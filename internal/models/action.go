package models

import "time"

// ActionKind names an operation that needs explicit confirmation
type ActionKind string

const (
	ActionDeleteOffer ActionKind = "deleteOffer"
	ActionToggleOffer ActionKind = "toggleOffer"
	ActionResetOffers ActionKind = "resetOffers"
)

// Valid reports whether k is a known action kind
func (k ActionKind) Valid() bool {
	switch k {
	case ActionDeleteOffer, ActionToggleOffer, ActionResetOffers:
		return true
	}
	return false
}

// NeedsOffer reports whether the action targets a single offer
func (k ActionKind) NeedsOffer() bool {
	return k == ActionDeleteOffer || k == ActionToggleOffer
}

// PendingAction is a confirmation request waiting for the admin's answer
type PendingAction struct {
	ID        string     `json:"id"`
	Kind      ActionKind `json:"kind"`
	OfferID   string     `json:"offer_id,omitempty"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}
