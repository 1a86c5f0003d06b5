package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/api/handlers"
	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// MockBookabilityResolver mocks resolution
type MockBookabilityResolver struct {
	mock.Mock
}

func (m *MockBookabilityResolver) Resolve(ctx context.Context, payerID string, opts services.ResolutionOptions) ([]entities.BookableProvider, error) {
	args := m.Called(ctx, payerID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.BookableProvider), args.Error(1)
}

func TestBookabilityHandler_GetBookableProviders(t *testing.T) {
	t.Run("returns resolved providers", func(t *testing.T) {
		mockResolver := new(MockBookabilityResolver)
		handler := handlers.NewBookabilityHandler(mockResolver, testDefaults())

		mockResolver.On("Resolve", mock.Anything, "payer-1", mock.Anything).
			Return([]entities.BookableProvider{
				{ProviderID: "prov-1", Kind: entities.ResolutionKindDirect, BillingProviderID: "prov-1"},
				{ProviderID: "prov-2", Kind: entities.ResolutionKindSupervised, BillingProviderID: "prov-1", AttendingProviderID: "prov-1"},
			}, nil)

		req := httptest.NewRequest("GET", "/api/payers/payer-1/bookable-providers", nil)
		req.SetPathValue("id", "payer-1")
		w := httptest.NewRecorder()

		handler.GetBookableProviders(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(2), response["count"])
	})

	t.Run("applies query filters on top of defaults", func(t *testing.T) {
		mockResolver := new(MockBookabilityResolver)
		handler := handlers.NewBookabilityHandler(mockResolver, testDefaults())

		mockResolver.On("Resolve", mock.Anything, "payer-1", mock.MatchedBy(func(opts services.ResolutionOptions) bool {
			return opts.TelehealthOnly && !opts.At.IsZero()
		})).Return([]entities.BookableProvider{}, nil)

		req := httptest.NewRequest("GET", "/api/payers/payer-1/bookable-providers?telehealth_only=true", nil)
		req.SetPathValue("id", "payer-1")
		w := httptest.NewRecorder()

		handler.GetBookableProviders(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockResolver.AssertExpectations(t)
	})

	t.Run("maps unknown payer to 404", func(t *testing.T) {
		mockResolver := new(MockBookabilityResolver)
		handler := handlers.NewBookabilityHandler(mockResolver, testDefaults())

		mockResolver.On("Resolve", mock.Anything, "missing", mock.Anything).
			Return(nil, apperrors.NewNotFoundError("payer not found"))

		req := httptest.NewRequest("GET", "/api/payers/missing/bookable-providers", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.GetBookableProviders(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
