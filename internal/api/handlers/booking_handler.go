package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// BookingService defines the interface for appointment operations
type BookingService interface {
	Commit(ctx context.Context, req services.CommitAppointmentRequest) (*entities.Appointment, error)
	Cancel(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)
}

// BookingHandler handles appointment requests
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{
		service: service,
	}
}

// bookRequest is the booking payload; start is RFC3339
type bookRequest struct {
	ProviderID      string `json:"provider_id"`
	PayerID         string `json:"payer_id"`
	Start           string `json:"start"`
	DurationMinutes int    `json:"duration_minutes"`
	PatientRef      string `json:"patient_ref"`
}

// BookAppointment handles POST /api/appointments
func (h *BookingHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid start format (use RFC3339)")
		return
	}

	appointment, err := h.service.Commit(r.Context(), services.CommitAppointmentRequest{
		ProviderID:      req.ProviderID,
		PayerID:         req.PayerID,
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		PatientRef:      req.PatientRef,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, appointment)
}

// GetAppointment handles GET /api/appointments/{id}
func (h *BookingHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	appointment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// CancelAppointment handles DELETE /api/appointments/{id}
func (h *BookingHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
