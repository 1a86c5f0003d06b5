package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// AvailabilityService defines the cache operations the handler depends on
type AvailabilityService interface {
	Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, entities.CacheEntryStatus, error)
	Populate(ctx context.Context, providerID, serviceInstanceID string, from, to time.Time) (int, error)
	Invalidate(ctx context.Context, providerID string, date time.Time) error
}

// MergedAvailabilityService defines the merged-feed interface
type MergedAvailabilityService interface {
	GetMergedAvailability(ctx context.Context, payerID string, date time.Time, durationMinutes int, languageFilter string, opts services.ResolutionOptions) ([]entities.MergedSlot, error)
}

// AvailabilityHandler handles availability cache requests
type AvailabilityHandler struct {
	availability AvailabilityService
	merge        MergedAvailabilityService
	defaults     *services.ResolutionDefaults
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(availability AvailabilityService, merge MergedAvailabilityService, defaults *services.ResolutionDefaults) *AvailabilityHandler {
	return &AvailabilityHandler{
		availability: availability,
		merge:        merge,
		defaults:     defaults,
	}
}

// GetProviderAvailability handles GET /api/providers/{id}/availability
func (h *AvailabilityHandler) GetProviderAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	query := r.URL.Query()
	serviceInstanceID := query.Get("service_instance_id")
	if serviceInstanceID == "" {
		respondWithError(w, http.StatusBadRequest, "service_instance_id query parameter is required")
		return
	}
	date, err := time.Parse(entities.DateLayout, query.Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}

	entry, status, err := h.availability.Get(r.Context(), providerID, serviceInstanceID, date)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	response := map[string]interface{}{
		"provider_id":         providerID,
		"service_instance_id": serviceInstanceID,
		"date":                date.Format(entities.DateLayout),
		"status":              status,
	}
	if entry != nil {
		response["slots"] = entry.Slots
		response["computed_at"] = entry.ComputedAt
	}
	respondWithJSON(w, http.StatusOK, response)
}

// populateRequest is the payload for an explicit population request
type populateRequest struct {
	ProviderID        string `json:"provider_id"`
	ServiceInstanceID string `json:"service_instance_id"`
	From              string `json:"from"`
	To                string `json:"to"`
}

// PopulateAvailability handles POST /api/availability/populate
func (h *AvailabilityHandler) PopulateAvailability(w http.ResponseWriter, r *http.Request) {
	var req populateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	from, err := time.Parse(entities.DateLayout, req.From)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid from date format (use YYYY-MM-DD)")
		return
	}
	to, err := time.Parse(entities.DateLayout, req.To)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid to date format (use YYYY-MM-DD)")
		return
	}

	written, err := h.availability.Populate(r.Context(), req.ProviderID, req.ServiceInstanceID, from, to)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries_written": written,
	})
}

// InvalidateAvailability handles POST /api/availability/invalidate
func (h *AvailabilityHandler) InvalidateAvailability(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProviderID string `json:"provider_id"`
		Date       string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.ProviderID == "" {
		respondWithError(w, http.StatusBadRequest, "provider_id is required")
		return
	}
	date, err := time.Parse(entities.DateLayout, req.Date)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}

	if err := h.availability.Invalidate(r.Context(), req.ProviderID, date); err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// SearchAvailability handles GET /api/availability/search
func (h *AvailabilityHandler) SearchAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	payerID := query.Get("payer_id")
	if payerID == "" {
		respondWithError(w, http.StatusBadRequest, "payer_id query parameter is required")
		return
	}
	date, err := time.Parse(entities.DateLayout, query.Get("date"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}
	durationMinutes := 60
	if raw := query.Get("duration_minutes"); raw != "" {
		durationMinutes, err = strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid duration_minutes")
			return
		}
	}

	opts := h.defaults.Options()
	opts.At = time.Now()
	if query.Get("new_patients_only") == "true" {
		opts.NewPatientsOnly = true
	}
	if query.Get("telehealth_only") == "true" {
		opts.TelehealthOnly = true
	}

	slots, err := h.merge.GetMergedAvailability(r.Context(), payerID, date, durationMinutes, query.Get("language"), opts)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"payer_id": payerID,
		"date":     date.Format(entities.DateLayout),
		"slots":    slots,
		"count":    len(slots),
	})
}
