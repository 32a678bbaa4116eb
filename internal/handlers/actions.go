package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/BradenHooton/offeradmin/internal/services"
	pkghttp "github.com/BradenHooton/offeradmin/pkg/http"
)

// ActionServiceInterface defines the interface for confirmable actions
type ActionServiceInterface interface {
	Propose(kind models.ActionKind, offerID string) (models.PendingAction, error)
	Pending() (models.PendingAction, bool)
	Confirm(ctx context.Context) (services.ActionResult, error)
	Cancel() bool
}

// ActionHandler handles the confirm/cancel flow for destructive actions
type ActionHandler struct {
	service ActionServiceInterface
	logger  *slog.Logger
}

func NewActionHandler(service ActionServiceInterface, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{service: service, logger: logger}
}

// ProposeActionRequest represents the request body for POST /actions
type ProposeActionRequest struct {
	Kind    models.ActionKind `json:"kind"`
	OfferID string            `json:"offer_id,omitempty"`
}

// GetPending handles GET /actions
func (h *ActionHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	action, ok := h.service.Pending()
	if !ok {
		pkghttp.WriteNotFound(w, "no pending action")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, action)
}

// Propose handles POST /actions
func (h *ActionHandler) Propose(w http.ResponseWriter, r *http.Request) {
	var req ProposeActionRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	action, err := h.service.Propose(req.Kind, req.OfferID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, action)
}

// Confirm handles POST /actions/confirm
func (h *ActionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Confirm(actorContext(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Cancel handles DELETE /actions
func (h *ActionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !h.service.Cancel() {
		pkghttp.WriteNotFound(w, "no pending action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
