package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// BookabilityResolver defines the resolution interface the handler depends on
type BookabilityResolver interface {
	Resolve(ctx context.Context, payerID string, opts services.ResolutionOptions) ([]entities.BookableProvider, error)
}

// BookabilityHandler handles bookability resolution requests
type BookabilityHandler struct {
	resolver BookabilityResolver
	defaults *services.ResolutionDefaults
}

// NewBookabilityHandler creates a new bookability handler
func NewBookabilityHandler(resolver BookabilityResolver, defaults *services.ResolutionDefaults) *BookabilityHandler {
	return &BookabilityHandler{
		resolver: resolver,
		defaults: defaults,
	}
}

// GetBookableProviders handles GET /api/payers/{id}/bookable-providers
func (h *BookabilityHandler) GetBookableProviders(w http.ResponseWriter, r *http.Request) {
	payerID := r.PathValue("id")
	if payerID == "" {
		respondWithError(w, http.StatusBadRequest, "payer ID is required")
		return
	}

	opts := h.defaults.Options()
	opts.At = time.Now()
	query := r.URL.Query()
	if query.Get("new_patients_only") == "true" {
		opts.NewPatientsOnly = true
	}
	if query.Get("telehealth_only") == "true" {
		opts.TelehealthOnly = true
	}

	bookable, err := h.resolver.Resolve(r.Context(), payerID, opts)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payer_id":  payerID,
		"providers": bookable,
		"count":     len(bookable),
	})
}
