package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
)

type invalidationFixture struct {
	invalidator *MockInvalidator
	cache       *MockCacheProvider
	eventBus    *MockEventBus
	events      chan *entities.ScheduleEvent
	service     *services.CacheInvalidationService
}

func newInvalidationFixture(t *testing.T) *invalidationFixture {
	f := &invalidationFixture{
		invalidator: new(MockInvalidator),
		cache:       new(MockCacheProvider),
		eventBus:    new(MockEventBus),
		events:      make(chan *entities.ScheduleEvent, 4),
	}
	f.eventBus.On("Subscribe", mock.Anything, providers.EventChannelScheduleUpdates).
		Return((<-chan *entities.ScheduleEvent)(f.events), nil)
	f.service = services.NewCacheInvalidationService(f.invalidator, f.cache, f.eventBus)
	require.NoError(t, f.service.Start())
	t.Cleanup(f.service.Stop)
	return f
}

func TestCacheInvalidationService(t *testing.T) {
	t.Run("schedule change invalidates the affected day", func(t *testing.T) {
		f := newInvalidationFixture(t)
		done := make(chan struct{})
		day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", day).
			Run(func(mock.Arguments) { close(done) }).Return(nil)

		f.events <- entities.NewScheduleEvent("prov-1", "2026-03-09",
			entities.ScheduleEventTypeTemplateChanged, nil)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("schedule event was not processed")
		}
		f.invalidator.AssertExpectations(t)
	})

	t.Run("contract change flushes the resolution cache for its payer", func(t *testing.T) {
		f := newInvalidationFixture(t)
		done := make(chan struct{})
		f.cache.On("Delete", mock.Anything, "contracts:payer:payer-1").Return(nil)
		f.cache.On("DeletePattern", mock.Anything, "supervision:attending:*").
			Run(func(mock.Arguments) { close(done) }).Return(nil)

		f.events <- entities.NewScheduleEvent("", "",
			entities.ScheduleEventTypeContractChanged, map[string]any{"payer_id": "payer-1"})

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("contract event was not processed")
		}
		f.cache.AssertExpectations(t)
		f.invalidator.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("its own invalidation events are ignored", func(t *testing.T) {
		f := newInvalidationFixture(t)
		done := make(chan struct{})
		day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		f.invalidator.On("Invalidate", mock.Anything, "prov-1", day).
			Run(func(mock.Arguments) { close(done) }).Return(nil)

		f.events <- entities.NewScheduleEvent("prov-1", "2026-03-09",
			entities.ScheduleEventTypeCacheInvalidated, nil)
		f.events <- entities.NewScheduleEvent("prov-1", "2026-03-10",
			entities.ScheduleEventTypeExceptionChanged, nil)

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("exception event was not processed")
		}
		f.invalidator.AssertNumberOfCalls(t, "Invalidate", 1)
	})

	t.Run("resolution cache flush propagates store failures", func(t *testing.T) {
		f := newInvalidationFixture(t)
		f.cache.On("Delete", mock.Anything, "contracts:payer:payer-1").
			Return(assert.AnError)

		err := f.service.InvalidateResolutionCache(context.Background(), "payer-1")

		assert.Error(t, err)
		f.cache.AssertNotCalled(t, "DeletePattern", mock.Anything, mock.Anything)
	})
}
