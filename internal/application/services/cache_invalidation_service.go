package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
)

// CacheInvalidationService performs out-of-band cache invalidation driven by
// schedule events. Admin tooling publishes template and exception changes on
// the updates channel; this service flags the affected slot-cache days so
// the next read repopulates them.
type CacheInvalidationService struct {
	invalidator Invalidator
	cache       providers.CacheProvider
	eventBus    providers.EventBus
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(invalidator Invalidator, cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		invalidator: invalidator,
		cache:       cache,
		eventBus:    eventBus,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins listening for schedule events
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelScheduleUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to schedule updates: %w", err)
	}

	go s.processEvents(eventChan)
	log.Println("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Println("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.ScheduleEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event := <-eventChan:
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent flags the slot-cache day named by a schedule change.
// cache_invalidated events are the output of invalidation, not a trigger,
// and are ignored to avoid loops. Contract changes carry no date; they flush
// the resolution cache for their payer instead.
func (s *CacheInvalidationService) handleEvent(event *entities.ScheduleEvent) {
	if event.EventType == entities.ScheduleEventTypeCacheInvalidated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("Processing cache invalidation for event: %s (provider: %s, type: %s)",
		event.ID, event.ProviderID, event.EventType)

	if event.EventType == entities.ScheduleEventTypeContractChanged {
		payerID, _ := event.Payload["payer_id"].(string)
		if payerID == "" {
			log.Printf("Warning: contract event %s names no payer, skipping", event.ID)
			return
		}
		if err := s.InvalidateResolutionCache(ctx, payerID); err != nil {
			log.Printf("Warning: failed to invalidate resolution cache for payer %s: %v", payerID, err)
		}
		return
	}

	date, err := time.Parse(entities.DateLayout, event.Date)
	if err != nil {
		log.Printf("Warning: event %s has no parseable date, skipping invalidation: %v", event.ID, err)
		return
	}

	if err := s.invalidator.Invalidate(ctx, event.ProviderID, date); err != nil {
		log.Printf("Warning: failed to invalidate availability for provider %s on %s: %v",
			event.ProviderID, event.Date, err)
	}
}

// InvalidateResolutionCache flushes the short-term Redis contract cache for
// a payer; called when contracts or supervision rows change
func (s *CacheInvalidationService) InvalidateResolutionCache(ctx context.Context, payerID string) error {
	pattern := fmt.Sprintf("contracts:payer:%s", payerID)
	if err := s.cache.Delete(ctx, pattern); err != nil {
		return fmt.Errorf("failed to invalidate contract cache: %w", err)
	}
	if err := s.cache.DeletePattern(ctx, "supervision:attending:*"); err != nil {
		return fmt.Errorf("failed to invalidate supervision cache: %w", err)
	}
	log.Printf("Invalidated resolution cache for payer %s", payerID)
	return nil
}
