package services

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// sortKey is either a lowercase string or a number
type sortKey struct {
	str   string
	num   float64
	isNum bool
}

func strKey(s string) sortKey { return sortKey{str: strings.ToLower(s)} }
func numKey(n float64) sortKey { return sortKey{num: n, isNum: true} }
func intKey(n int) sortKey { return numKey(float64(n)) }
func msKey(ms int64) sortKey { return numKey(float64(ms)) }
func boolKey(b bool) sortKey {
	if b {
		return numKey(1)
	}
	return numKey(0)
}

var sortFields = map[string]func(*models.Offer) sortKey{
	"id":            func(o *models.Offer) sortKey { return strKey(o.ID) },
	"name":          func(o *models.Offer) sortKey { return strKey(o.Name) },
	"description":   func(o *models.Offer) sortKey { return strKey(o.Description) },
	"status":        func(o *models.Offer) sortKey { return strKey(o.Status) },
	"landing1":      func(o *models.Offer) sortKey { return boolKey(o.Landing1) },
	"landing2":      func(o *models.Offer) sortKey { return boolKey(o.Landing2) },
	"amount_min":    func(o *models.Offer) sortKey { return numKey(o.AmountMin) },
	"amount_max":    func(o *models.Offer) sortKey { return numKey(o.AmountMax) },
	"term_min":      func(o *models.Offer) sortKey { return intKey(o.TermMin) },
	"term_max":      func(o *models.Offer) sortKey { return intKey(o.TermMax) },
	"rate_min":      func(o *models.Offer) sortKey { return numKey(o.RateMin) },
	"rate_max":      func(o *models.Offer) sortKey { return numKey(o.RateMax) },
	"income":        func(o *models.Offer) sortKey { return numKey(o.Income) },
	"speed":         func(o *models.Offer) sortKey { return intKey(o.Speed) },
	"approval":      func(o *models.Offer) sortKey { return intKey(o.Approval) },
	"rating":        func(o *models.Offer) sortKey { return numKey(o.Rating) },
	"reviews_count": func(o *models.Offer) sortKey { return intKey(o.ReviewsCount) },
	"deadline":      func(o *models.Offer) sortKey { return strKey(o.Deadline) },
	"created_at":    func(o *models.Offer) sortKey { return msKey(o.CreatedAt) },
	"updated_at":    func(o *models.Offer) sortKey { return msKey(o.UpdatedAt) },
}

// SortFields lists the names accepted by SortOffers
func SortFields() []string {
	names := make([]string, 0, len(sortFields))
	for name := range sortFields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FilterOffers returns the offers matching pred, in order. The input is not modified.
func FilterOffers(offers []models.Offer, pred func(*models.Offer) bool) []models.Offer {
	out := make([]models.Offer, 0, len(offers))
	for i := range offers {
		if pred(&offers[i]) {
			out = append(out, offers[i].Clone())
		}
	}
	return out
}

// MatchFilter builds a predicate from the list-screen filter controls.
// Search matches name, description or id, case-insensitively.
func MatchFilter(f models.OfferFilter) func(*models.Offer) bool {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	status := strings.ToLower(f.Status)
	return func(o *models.Offer) bool {
		if status != "" && status != "all" && o.Status != status {
			return false
		}
		if f.Landing1 && !o.Landing1 {
			return false
		}
		if f.Landing2 && !o.Landing2 {
			return false
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(o.Name), search) &&
			!strings.Contains(strings.ToLower(o.Description), search) &&
			!strings.Contains(strings.ToLower(o.ID), search) {
			return false
		}
		return true
	}
}

// SortOffers returns a stably sorted copy. Strings compare case-insensitively.
// An empty field leaves the order unchanged.
func SortOffers(offers []models.Offer, field string, dir models.SortDirection) ([]models.Offer, error) {
	out := models.CloneOffers(offers)
	if field == "" {
		return out, nil
	}
	key, ok := sortFields[field]
	if !ok {
		return nil, models.NewValidationError("sort", "unknown sort field "+field)
	}
	switch dir {
	case "", models.SortAsc, models.SortDesc:
	default:
		return nil, models.NewValidationError("dir", "must be asc or desc")
	}

	slices.SortStableFunc(out, func(a, b models.Offer) int {
		ka, kb := key(&a), key(&b)
		var c int
		if ka.isNum {
			c = cmp.Compare(ka.num, kb.num)
		} else {
			c = strings.Compare(ka.str, kb.str)
		}
		if dir == models.SortDesc {
			return -c
		}
		return c
	})
	return out, nil
}

// Paginate returns the 1-based page of offers. Pages past the end are empty;
// pages below 1 are clamped to 1.
func Paginate(offers []models.Offer, page, perPage int) models.Page {
	if perPage < 1 {
		perPage = 20
	}
	if page < 1 {
		page = 1
	}
	total := len(offers)
	totalPages := total / perPage
	if total%perPage != 0 {
		totalPages++
	}

	// page is unbounded input; only multiply once it is known to be in range
	start := total
	if page <= totalPages {
		start = (page - 1) * perPage
	}
	end := start + min(perPage, total-start)

	return models.Page{
		Offers:     models.CloneOffers(offers[start:end]),
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// ComputeStats aggregates counters for the dashboard. Landing counts and
// income only include active offers.
func ComputeStats(offers []models.Offer, now time.Time) models.OfferStats {
	var st models.OfferStats
	st.Total = len(offers)
	for i := range offers {
		o := &offers[i]
		if !o.IsActive() {
			st.Inactive++
			continue
		}
		st.Active++
		st.TotalIncome += o.Income
		if o.Landing1 {
			st.Landing1++
		}
		if o.Landing2 {
			st.Landing2++
		}
		if o.IsOverdue(now) {
			st.Overdue++
		}
	}
	return st
}
