package services

import (
	"context"
	"sort"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// AvailabilityReader is the slice of the cache service the merge path needs
type AvailabilityReader interface {
	Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, entities.CacheEntryStatus, error)
	Populate(ctx context.Context, providerID, serviceInstanceID string, from, to time.Time) (int, error)
}

// MergeService combines per-provider cached slots into the single
// patient-facing availability feed for a payer
type MergeService struct {
	resolver     Resolver
	instanceRepo repositories.ServiceInstanceRepository
	providerRepo repositories.ProviderRepository
	availability AvailabilityReader
}

// NewMergeService creates a new merge service
func NewMergeService(
	resolver Resolver,
	instanceRepo repositories.ServiceInstanceRepository,
	providerRepo repositories.ProviderRepository,
	availability AvailabilityReader,
) *MergeService {
	return &MergeService{
		resolver:     resolver,
		instanceRepo: instanceRepo,
		providerRepo: providerRepo,
		availability: availability,
	}
}

// GetMergedAvailability returns every bookable provider's open slots for a
// payer on a date, as one feed ordered by slot start ascending with ties
// broken by provider ID. Co-visit providers are annotated, never excluded.
// The language filter is applied on provider attributes after the cache
// read, so one cache serves all language queries.
func (s *MergeService) GetMergedAvailability(
	ctx context.Context,
	payerID string,
	date time.Time,
	durationMinutes int,
	languageFilter string,
	opts ResolutionOptions,
) ([]entities.MergedSlot, error) {
	if durationMinutes <= 0 {
		return nil, apperrors.NewValidationError("duration must be positive")
	}

	bookable, err := s.resolver.Resolve(ctx, payerID, opts)
	if err != nil {
		return nil, err
	}
	if len(bookable) == 0 {
		return []entities.MergedSlot{}, nil
	}

	instance, err := s.instanceRepo.GetByPayerAndDuration(ctx, payerID, durationMinutes)
	if err != nil {
		return nil, err
	}

	providerByID, err := s.loadProviders(ctx, bookable)
	if err != nil {
		// Provider metadata is non-critical unless a language filter needs
		// it; degrade to an empty feed rather than erroring in that case.
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("payer_id", payerID).
			Msg("provider metadata unavailable during merge")
		if languageFilter != "" {
			return []entities.MergedSlot{}, nil
		}
		providerByID = map[string]*entities.Provider{}
	}

	merged := []entities.MergedSlot{}
	for _, b := range bookable {
		if languageFilter != "" {
			provider, ok := providerByID[b.ProviderID]
			if !ok || !provider.SpeaksLanguage(languageFilter) {
				continue
			}
		}

		entry, err := s.entryFor(ctx, b.ProviderID, instance.ID, date)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("provider_id", b.ProviderID).
				Msg("skipping provider in merged feed")
			continue
		}
		if entry == nil {
			continue
		}

		for _, slot := range entry.Slots {
			if !slot.Available {
				continue
			}
			merged = append(merged, entities.MergedSlot{
				ProviderID:          b.ProviderID,
				Slot:                slot,
				SupervisionKind:     b.Kind,
				AttendingProviderID: b.AttendingProviderID,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].Slot.Start.Equal(merged[j].Slot.Start) {
			return merged[i].Slot.Start.Before(merged[j].Slot.Start)
		}
		return merged[i].ProviderID < merged[j].ProviderID
	})
	return merged, nil
}

// entryFor reads one provider's cached day, populating on demand when the
// key is still pending
func (s *MergeService) entryFor(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	entry, status, err := s.availability.Get(ctx, providerID, serviceInstanceID, date)
	if err != nil {
		return nil, err
	}
	if status != entities.CacheEntryStatusPending {
		return entry, nil
	}

	if _, err := s.availability.Populate(ctx, providerID, serviceInstanceID, date, date); err != nil {
		return nil, err
	}
	entry, status, err = s.availability.Get(ctx, providerID, serviceInstanceID, date)
	if err != nil {
		return nil, err
	}
	if status == entities.CacheEntryStatusPending {
		return nil, nil
	}
	return entry, nil
}

func (s *MergeService) loadProviders(ctx context.Context, bookable []entities.BookableProvider) (map[string]*entities.Provider, error) {
	ids := make([]string, 0, len(bookable))
	for _, b := range bookable {
		ids = append(ids, b.ProviderID)
	}
	providers, err := s.providerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entities.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}
	return byID, nil
}
