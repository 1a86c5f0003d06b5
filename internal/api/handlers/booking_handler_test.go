package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/api/handlers"
	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// MockBookingService mocks the booking operations
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Commit(ctx context.Context, req services.CommitAppointmentRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingService) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func bookPayload(start time.Time) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"provider_id":      "prov-1",
		"payer_id":         "payer-1",
		"start":            start.Format(time.RFC3339),
		"duration_minutes": 60,
		"patient_ref":      "patient-42",
	})
	return body
}

func TestBookingHandler_BookAppointment(t *testing.T) {
	start := time.Now().Add(48 * time.Hour).Truncate(time.Second)

	t.Run("successfully books appointment", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("Commit", mock.Anything, mock.MatchedBy(func(req services.CommitAppointmentRequest) bool {
			return req.ProviderID == "prov-1" && req.PayerID == "payer-1" && req.PatientRef == "patient-42"
		})).Return(&entities.Appointment{
			ID:         "appt-1",
			ProviderID: "prov-1",
			Status:     entities.AppointmentStatusScheduled,
		}, nil)

		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(bookPayload(start)))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response entities.Appointment
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "appt-1", response.ID)
		mockService.AssertExpectations(t)
	})

	t.Run("returns conflict when the slot is taken", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("Commit", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewConflictError("appointment overlaps an existing booking"))

		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(bookPayload(start)))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("returns bad request for invalid payload", func(t *testing.T) {
		handler := handlers.NewBookingHandler(new(MockBookingService))

		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBufferString("invalid-json"))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns bad request for a malformed start", func(t *testing.T) {
		handler := handlers.NewBookingHandler(new(MockBookingService))

		body, _ := json.Marshal(map[string]interface{}{
			"provider_id": "prov-1",
			"payer_id":    "payer-1",
			"start":       "tomorrow at nine",
		})
		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps validation errors to 400", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("Commit", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewValidationError("provider is not bookable under this payer"))

		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(bookPayload(start)))
		w := httptest.NewRecorder()

		handler.BookAppointment(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBookingHandler_CancelAppointment(t *testing.T) {
	t.Run("cancels an appointment", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("Cancel", mock.Anything, "appt-1").Return(nil)

		req := httptest.NewRequest("DELETE", "/api/appointments/appt-1", nil)
		req.SetPathValue("id", "appt-1")
		w := httptest.NewRecorder()

		handler.CancelAppointment(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("returns not found for an unknown appointment", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("Cancel", mock.Anything, "missing").
			Return(apperrors.NewNotFoundError("appointment not found"))

		req := httptest.NewRequest("DELETE", "/api/appointments/missing", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.CancelAppointment(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestBookingHandler_GetAppointment(t *testing.T) {
	t.Run("returns an appointment", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService)

		mockService.On("GetByID", mock.Anything, "appt-1").
			Return(&entities.Appointment{ID: "appt-1", Status: entities.AppointmentStatusScheduled}, nil)

		req := httptest.NewRequest("GET", "/api/appointments/appt-1", nil)
		req.SetPathValue("id", "appt-1")
		w := httptest.NewRecorder()

		handler.GetAppointment(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
