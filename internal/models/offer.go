package models

import (
	"slices"
	"time"
)

// Offer statuses
const (
	OfferStatusActive   = "active"
	OfferStatusInactive = "inactive"
)

// Offer is a promotional financial product shown on the landing pages
type Offer struct {
	ID           string   `json:"id" validate:"required,max=100,noxss"`
	Name         string   `json:"name" validate:"required,min=2,max=100,nodangerchars,noxss"`
	Description  string   `json:"description,omitempty" validate:"omitempty,max=1000,noxss"`
	Status       string   `json:"status" validate:"required,oneof=active inactive"`
	Landing1     bool     `json:"landing1"`
	Landing2     bool     `json:"landing2"`
	AmountMin    float64  `json:"amount_min,omitempty" validate:"gte=0"`
	AmountMax    float64  `json:"amount_max,omitempty" validate:"gte=0,gtefield=AmountMin"`
	TermMin      int      `json:"term_min,omitempty" validate:"gte=0"`
	TermMax      int      `json:"term_max,omitempty" validate:"gte=0,gtefield=TermMin"`
	RateMin      float64  `json:"rate_min,omitempty" validate:"gte=0"`
	RateMax      float64  `json:"rate_max,omitempty" validate:"gte=0,gtefield=RateMin"`
	RateDisplay  string   `json:"rate_display,omitempty" validate:"omitempty,max=100,noxss"`
	Income       float64  `json:"income,omitempty" validate:"gte=0"`
	Speed        int      `json:"speed,omitempty" validate:"gte=0"`
	Approval     int      `json:"approval,omitempty" validate:"gte=0,lte=100"`
	Rating       float64  `json:"rating,omitempty" validate:"gte=0,lte=5"`
	ReviewsCount int      `json:"reviews_count,omitempty" validate:"gte=0"`
	Icon         string   `json:"icon,omitempty" validate:"omitempty,max=50,nodangerchars"`
	Features     []string `json:"features,omitempty" validate:"omitempty,dive,max=200,noxss"`
	LinkLanding1 string   `json:"link_landing1,omitempty" validate:"omitempty,url,noxss"`
	LinkLanding2 string   `json:"link_landing2,omitempty" validate:"omitempty,url,noxss"`
	OverdueTypes []string `json:"overdue_types,omitempty" validate:"omitempty,dive,max=50,nodangerchars"`
	IncomeTypes  []string `json:"income_types,omitempty" validate:"omitempty,dive,max=50,nodangerchars"`
	Deadline     string   `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	CreatedAt    int64    `json:"created_at,omitempty"` // unix milliseconds
	UpdatedAt    int64    `json:"updated_at,omitempty"` // unix milliseconds
}

// IsActive reports whether the offer is published
func (o *Offer) IsActive() bool {
	return o.Status == OfferStatusActive
}

// DeadlineTime parses the deadline; ok is false when absent or malformed
func (o *Offer) DeadlineTime() (time.Time, bool) {
	if o.Deadline == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, o.Deadline)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsOverdue reports whether an active offer is past its deadline
func (o *Offer) IsOverdue(now time.Time) bool {
	deadline, ok := o.DeadlineTime()
	return ok && o.IsActive() && deadline.Before(now)
}

// Clone returns a deep copy so callers cannot alias slices held by the store
func (o Offer) Clone() Offer {
	o.Features = slices.Clone(o.Features)
	o.OverdueTypes = slices.Clone(o.OverdueTypes)
	o.IncomeTypes = slices.Clone(o.IncomeTypes)
	return o
}

// CloneOffers deep-copies a list of offers
func CloneOffers(offers []Offer) []Offer {
	out := make([]Offer, len(offers))
	for i := range offers {
		out[i] = offers[i].Clone()
	}
	return out
}

// OfferStats aggregates dashboard counters
type OfferStats struct {
	Total       int     `json:"total"`
	Active      int     `json:"active"`
	Inactive    int     `json:"inactive"`
	Landing1    int     `json:"landing1"`
	Landing2    int     `json:"landing2"`
	TotalIncome float64 `json:"total_income"`
	Overdue     int     `json:"overdue"`
}

// SortDirection orders sorted output
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// OfferFilter narrows the offer list for display
type OfferFilter struct {
	Status   string // "all" or empty means any
	Search   string
	Landing1 bool
	Landing2 bool
}

// Page is one slice of a paginated listing
type Page struct {
	Offers     []Offer `json:"offers"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
}
