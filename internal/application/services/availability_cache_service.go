package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
	"github.com/carebook/carebook/backend/pkg/retry"
)

// Resolver is the bookability resolution dependency of the population and
// merge paths
type Resolver interface {
	Resolve(ctx context.Context, payerID string, opts ResolutionOptions) ([]entities.BookableProvider, error)
}

// AvailabilityCacheService maintains the precomputed slot cache. Entries are
// derived data: always reproducible from templates, exceptions and
// appointments, never the source of truth for bookability.
type AvailabilityCacheService struct {
	slotCache        repositories.SlotCacheRepository
	availabilityRepo repositories.AvailabilityRepository
	appointmentRepo  repositories.AppointmentRepository
	instanceRepo     repositories.ServiceInstanceRepository
	providerRepo     repositories.ProviderRepository
	payerRepo        repositories.PayerRepository
	resolver         Resolver
	generator        *SlotGeneratorService
	eventBus         providers.EventBus
	metrics          *observability.Metrics
	workers          int

	// keyMu serializes population per cache key so at most one recompute for
	// a key is in flight; keys for different providers/dates run in parallel
	mu     sync.Mutex
	keyMu  map[string]*sync.Mutex
	keyRef map[string]int
}

// NewAvailabilityCacheService creates a new availability cache service
func NewAvailabilityCacheService(
	slotCache repositories.SlotCacheRepository,
	availabilityRepo repositories.AvailabilityRepository,
	appointmentRepo repositories.AppointmentRepository,
	instanceRepo repositories.ServiceInstanceRepository,
	providerRepo repositories.ProviderRepository,
	payerRepo repositories.PayerRepository,
	resolver Resolver,
	generator *SlotGeneratorService,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	workers int,
) *AvailabilityCacheService {
	if workers <= 0 {
		workers = 4
	}
	return &AvailabilityCacheService{
		slotCache:        slotCache,
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		instanceRepo:     instanceRepo,
		providerRepo:     providerRepo,
		payerRepo:        payerRepo,
		resolver:         resolver,
		generator:        generator,
		eventBus:         eventBus,
		metrics:          metrics,
		workers:          workers,
		keyMu:            make(map[string]*sync.Mutex),
		keyRef:           make(map[string]int),
	}
}

func cacheKey(providerID, serviceInstanceID string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", providerID, serviceInstanceID, date.Format(entities.DateLayout))
}

// civilDate pins a request date to midnight of its calendar date in loc.
// Request dates arrive as midnight UTC; the year, month and day name the
// calendar date regardless of the instant's own zone, so converting the
// instant with In would shift west-of-UTC providers onto the previous day.
func civilDate(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// lockKey acquires the per-key mutex, creating it on first use and dropping
// it once no population holds or waits on it
func (s *AvailabilityCacheService) lockKey(key string) func() {
	s.mu.Lock()
	m, ok := s.keyMu[key]
	if !ok {
		m = &sync.Mutex{}
		s.keyMu[key] = m
	}
	s.keyRef[key]++
	s.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		s.mu.Lock()
		s.keyRef[key]--
		if s.keyRef[key] == 0 {
			delete(s.keyMu, key)
			delete(s.keyRef, key)
		}
		s.mu.Unlock()
	}
}

// Populate recomputes and upserts cache entries for every date in
// [from, to]. Each date is its own atomic unit: cancelling mid-run leaves
// the remaining keys unpopulated rather than inconsistent. Returns the
// number of entries written.
func (s *AvailabilityCacheService) Populate(ctx context.Context, providerID, serviceInstanceID string, from, to time.Time) (int, error) {
	if providerID == "" || serviceInstanceID == "" {
		return 0, apperrors.NewValidationError("provider id and service instance id are required")
	}
	if to.Before(from) {
		return 0, apperrors.NewValidationError("date range end precedes start")
	}

	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return 0, err
	}
	instance, err := s.instanceRepo.GetByID(ctx, serviceInstanceID)
	if err != nil {
		return 0, err
	}

	written := 0
	loc := provider.Location()
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return written, apperrors.NewInternalError("population aborted", err)
		}
		if err := s.populateDate(ctx, provider, instance, civilDate(date, loc)); err != nil {
			return written, err
		}
		written++
	}

	observability.RecordPopulation(ctx, s.metrics, written)
	return written, nil
}

// populateDate recomputes one (provider, service instance, date) key under
// its mutex and upserts the result
func (s *AvailabilityCacheService) populateDate(ctx context.Context, provider *entities.Provider, instance *entities.ServiceInstance, date time.Time) error {
	unlock := s.lockKey(cacheKey(provider.ID, instance.ID, date))
	defer unlock()

	entry, err := s.computeEntry(ctx, provider, instance, date)
	if err != nil {
		return err
	}
	return s.slotCache.Upsert(ctx, entry)
}

// computeEntry runs the slot generator and conflict filter for one key
func (s *AvailabilityCacheService) computeEntry(ctx context.Context, provider *entities.Provider, instance *entities.ServiceInstance, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	loc := provider.Location()
	localDate := civilDate(date, loc)

	templates, err := s.availabilityRepo.ListTemplatesForDay(ctx, provider.ID, int(localDate.Weekday()))
	if err != nil {
		return nil, err
	}
	exception, err := s.availabilityRepo.GetException(ctx, provider.ID, localDate)
	if err != nil {
		return nil, err
	}

	slots := s.generator.GenerateDay(templates, exception, localDate, instance.DurationMinutes, loc)

	dayStart := time.Date(localDate.Year(), localDate.Month(), localDate.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(localDate.Year(), localDate.Month(), localDate.Day()+1, 0, 0, 0, 0, loc)
	appointments, err := s.appointmentRepo.ListByProviderBetween(ctx, provider.ID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	slots = s.generator.MarkConflicts(slots, appointments)

	return &entities.AvailabilityCacheEntry{
		ProviderID:        provider.ID,
		ServiceInstanceID: instance.ID,
		Date:              dayStart,
		Slots:             slots,
		Stale:             false,
		ComputedAt:        time.Now().UTC(),
	}, nil
}

// populateItem is one unit of batch population work
type populateItem struct {
	provider *entities.Provider
	instance *entities.ServiceInstance
	date     time.Time
}

// PopulateAll recomputes the cache for every bookable provider under every
// payer, across a rolling horizon of days, using a bounded worker pool.
// Individual key failures are logged and skipped; the batch keeps going.
func (s *AvailabilityCacheService) PopulateAll(ctx context.Context, horizonDays int) (int, error) {
	if horizonDays <= 0 {
		return 0, apperrors.NewValidationError("horizon must be positive")
	}

	payers, err := s.payerRepo.List(ctx)
	if err != nil {
		return 0, err
	}

	items := make(chan populateItem)
	var written int64
	var wg sync.WaitGroup
	var countMu sync.Mutex

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range items {
				if ctx.Err() != nil {
					continue
				}
				if err := s.populateDate(ctx, item.provider, item.instance, item.date); err != nil {
					observability.LoggerFromContext(ctx).Warn().
						Err(err).
						Str("provider_id", item.provider.ID).
						Str("service_instance_id", item.instance.ID).
						Str("date", item.date.Format(entities.DateLayout)).
						Msg("population failed for key")
					continue
				}
				countMu.Lock()
				written++
				countMu.Unlock()
			}
		}()
	}

	feedErr := s.feedPopulateItems(ctx, payers, horizonDays, items)
	close(items)
	wg.Wait()

	total := int(written)
	observability.RecordPopulation(ctx, s.metrics, total)
	if feedErr != nil {
		return total, feedErr
	}
	if err := ctx.Err(); err != nil {
		return total, apperrors.NewInternalError("population aborted", err)
	}
	return total, nil
}

func (s *AvailabilityCacheService) feedPopulateItems(ctx context.Context, payers []*entities.Payer, horizonDays int, items chan<- populateItem) error {
	seen := make(map[string]bool)
	today := time.Now()

	for _, payer := range payers {
		bookable, err := s.resolver.Resolve(ctx, payer.ID, ResolutionOptions{At: today})
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("payer_id", payer.ID).
				Msg("skipping payer in population batch")
			continue
		}
		if len(bookable) == 0 {
			continue
		}
		instances, err := s.instanceRepo.ListByPayer(ctx, payer.ID)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("payer_id", payer.ID).
				Msg("skipping payer in population batch")
			continue
		}

		for _, b := range bookable {
			provider, err := s.providerRepo.GetByID(ctx, b.ProviderID)
			if err != nil {
				continue
			}
			loc := provider.Location()
			for _, instance := range instances {
				for day := 0; day < horizonDays; day++ {
					date := civilDate(today.In(loc).AddDate(0, 0, day), loc)
					key := cacheKey(provider.ID, instance.ID, date)
					if seen[key] {
						continue
					}
					seen[key] = true

					select {
					case <-ctx.Done():
						return apperrors.NewInternalError("population aborted", ctx.Err())
					case items <- populateItem{provider: provider, instance: instance, date: date}:
					}
				}
			}
		}
	}
	return nil
}

// Get returns the cached entry for a key together with its status. A missing
// row reports pending so callers can trigger on-demand population; a stale
// row is recomputed synchronously before being returned.
func (s *AvailabilityCacheService) Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, entities.CacheEntryStatus, error) {
	entry, err := s.getEntry(ctx, providerID, serviceInstanceID, date)
	if err != nil {
		switch {
		case apperrors.IsType(err, apperrors.ErrorTypeNotFound):
			return nil, entities.CacheEntryStatusPending, nil
		case apperrors.IsType(err, apperrors.ErrorTypeStaleCache):
			observability.RecordCacheMiss(ctx, s.metrics, cacheKey(providerID, serviceInstanceID, date))
			fresh, repErr := s.repopulate(ctx, providerID, serviceInstanceID, date)
			if repErr != nil {
				// The stale entry is still reproducible data; serve it rather
				// than failing the read.
				observability.LoggerFromContext(ctx).Warn().
					Err(repErr).
					Str("provider_id", providerID).
					Msg("stale repopulation failed; serving stale entry")
				return entry, entities.CacheEntryStatusPopulated, nil
			}
			return fresh, entities.CacheEntryStatusPopulated, nil
		default:
			return nil, "", err
		}
	}

	observability.RecordCacheHit(ctx, s.metrics, cacheKey(providerID, serviceInstanceID, date))
	return entry, entities.CacheEntryStatusPopulated, nil
}

// getEntry reads the store, retrying with backoff only when it is
// unavailable; other errors return immediately. An invalidated row comes back
// as the stale entry alongside a StaleCache error so the caller can both
// repopulate and fall back to the stale data if recompute fails.
func (s *AvailabilityCacheService) getEntry(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	var entry *entities.AvailabilityCacheEntry
	var readErr error

	retryErr := retry.Do(ctx, retry.ReadPathConfig(), func() error {
		e, err := s.slotCache.Get(ctx, providerID, serviceInstanceID, date)
		if err != nil && apperrors.IsType(err, apperrors.ErrorTypeUnavailable) {
			return err
		}
		entry, readErr = e, err
		return nil
	})
	if retryErr != nil {
		return nil, apperrors.NewUnavailableError("availability cache read failed", retryErr)
	}
	if readErr != nil {
		return nil, readErr
	}
	if entry.Stale {
		return entry, apperrors.NewStaleCacheError("cache entry invalidated; repopulation required")
	}
	return entry, nil
}

// repopulate recomputes one key synchronously and returns the fresh entry
func (s *AvailabilityCacheService) repopulate(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	instance, err := s.instanceRepo.GetByID(ctx, serviceInstanceID)
	if err != nil {
		return nil, err
	}

	// Normalized so this lock key matches the one populateDate takes for the
	// same calendar date
	date = civilDate(date, provider.Location())
	unlock := s.lockKey(cacheKey(providerID, serviceInstanceID, date))
	defer unlock()

	entry, err := s.computeEntry(ctx, provider, instance, date)
	if err != nil {
		return nil, err
	}
	if err := s.slotCache.Upsert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Invalidate marks every cache entry for the provider/date stale across all
// service instances and publishes an audit event best-effort. Triggered by
// template changes, exception changes, and appointment creation or
// cancellation.
func (s *AvailabilityCacheService) Invalidate(ctx context.Context, providerID string, date time.Time) error {
	flagged, err := s.slotCache.MarkStale(ctx, providerID, date)
	if err != nil {
		return err
	}

	// A nil bus means Redis is down; the entries are already flagged stale
	// and the audit record is best-effort anyway
	if s.eventBus != nil {
		event := entities.NewScheduleEvent(providerID, date.Format(entities.DateLayout),
			entities.ScheduleEventTypeCacheInvalidated, map[string]any{
				"entries_flagged": flagged,
			})
		if err := s.eventBus.Publish(ctx, providers.EventChannelAudit, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("provider_id", providerID).
				Msg("failed to publish invalidation audit event")
		}
	}
	return nil
}
