package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/offeradmin/internal/auth"
	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/services"
	"github.com/BradenHooton/offeradmin/internal/validation"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
	"github.com/go-chi/chi/v5"
)

// OfferServiceInterface defines the interface for offer business logic
type OfferServiceInterface interface {
	List() []models.Offer
	Get(id string) (models.Offer, error)
	Add(ctx context.Context, offer models.Offer) (models.Offer, error)
	Update(ctx context.Context, offer models.Offer) (models.Offer, error)
	Remove(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (models.Offer, error)
	Save(ctx context.Context, offers []models.Offer) error
	Stats() models.OfferStats
}

// OfferHandler handles offer HTTP requests
type OfferHandler struct {
	service OfferServiceInterface
	perPage int
	logger  *slog.Logger
	now     func() time.Time
}

// NewOfferHandler creates a new OfferHandler; perPage is the default page size
func NewOfferHandler(service OfferServiceInterface, perPage int, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{
		service: service,
		perPage: perPage,
		logger:  logger,
		now:     time.Now,
	}
}

// ListOffersQuery is the parsed query string of GET /offers and /offers/export
type ListOffersQuery struct {
	Status   string `json:"status" validate:"omitempty,oneof=all active inactive"`
	Search   string `json:"search" validate:"max=100"`
	Landing1 bool   `json:"landing1"`
	Landing2 bool   `json:"landing2"`
	Sort     string `json:"sort" validate:"max=50"`
	Dir      string `json:"dir" validate:"omitempty,oneof=asc desc"`
	Page     int    `json:"page" validate:"gte=0"`
	PerPage  int    `json:"per_page" validate:"gte=0,lte=100"`
	Format   string `json:"format" validate:"omitempty,oneof=json csv html"`
}

// OfferCountResponse reports how many offers were stored
type OfferCountResponse struct {
	Count int `json:"count"`
}

// ListOffers handles GET /offers
func (h *OfferHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	offers, err := h.query(q)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	perPage := q.PerPage
	if perPage == 0 {
		perPage = h.perPage
	}
	pkghttp.WriteJSON(w, http.StatusOK, services.Paginate(offers, q.Page, perPage))
}

// ReplaceOffers handles PUT /offers, storing the body as the whole collection
func (h *OfferHandler) ReplaceOffers(w http.ResponseWriter, r *http.Request) {
	var offers []models.Offer
	if err := pkghttp.DecodeJSON(r, &offers); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Save(actorContext(r), offers); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, OfferCountResponse{Count: len(offers)})
}

// CreateOffer handles POST /offers
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var offer models.Offer
	if err := pkghttp.DecodeJSON(r, &offer); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.service.Add(actorContext(r), offer)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, created)
}

// GetOffer handles GET /offers/{id}
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, offer)
}

// UpdateOffer handles PUT /offers/{id}
func (h *OfferHandler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var offer models.Offer
	if err := pkghttp.DecodeJSON(r, &offer); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	if offer.ID == "" {
		offer.ID = id
	}
	if offer.ID != id {
		pkghttp.WriteValidationError(w, "id", "does not match the offer in the URL")
		return
	}

	updated, err := h.service.Update(actorContext(r), offer)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, updated)
}

// DeleteOffer handles DELETE /offers/{id}
func (h *OfferHandler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(actorContext(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleOffer handles POST /offers/{id}/toggle
func (h *OfferHandler) ToggleOffer(w http.ResponseWriter, r *http.Request) {
	offer, err := h.service.ToggleStatus(actorContext(r), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, offer)
}

// Stats handles GET /offers/stats
func (h *OfferHandler) Stats(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, h.service.Stats())
}

// Export handles GET /offers/export. The list filters apply; pagination does not.
func (h *OfferHandler) Export(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if q.Format == "" {
		q.Format = services.ExportJSON
	}

	offers, err := h.query(q)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := services.ExportOffers(&buf, offers, q.Format, now); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", services.ExportContentType(q.Format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.ExportFilename(q.Format, now)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// query applies the filter and sort of q to the current list
func (h *OfferHandler) query(q ListOffersQuery) ([]models.Offer, error) {
	offers := services.FilterOffers(h.service.List(), services.MatchFilter(models.OfferFilter{
		Status:   q.Status,
		Search:   q.Search,
		Landing1: q.Landing1,
		Landing2: q.Landing2,
	}))
	return services.SortOffers(offers, q.Sort, models.SortDirection(q.Dir))
}

func parseListQuery(r *http.Request) (ListOffersQuery, error) {
	values := r.URL.Query()
	q := ListOffersQuery{
		Status: values.Get("status"),
		Search: values.Get("search"),
		Sort:   values.Get("sort"),
		Dir:    values.Get("dir"),
		Format: values.Get("format"),
	}

	var err error
	if q.Landing1, err = boolParam(values.Get("landing1"), "landing1"); err != nil {
		return q, err
	}
	if q.Landing2, err = boolParam(values.Get("landing2"), "landing2"); err != nil {
		return q, err
	}
	if q.Page, err = intParam(values.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.PerPage, err = intParam(values.Get("per_page"), "per_page"); err != nil {
		return q, err
	}

	return q, validation.Struct(q)
}

func boolParam(raw, field string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, models.NewValidationError(field, "must be true or false")
	}
	return b, nil
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(field, "must be an integer")
	}
	return n, nil
}

// actorContext tags the request context with the admin making the change
func actorContext(r *http.Request) context.Context {
	return services.WithActor(r.Context(), auth.UsernameFromContext(r.Context()))
}
