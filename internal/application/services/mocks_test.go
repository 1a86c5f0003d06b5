package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carebook/carebook/backend/internal/application/services"
	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
)

// Mocks shared by the service tests in this package.

type MockContractRepository struct {
	mock.Mock
}

func (m *MockContractRepository) ListByPayer(ctx context.Context, payerID string) ([]*entities.ProviderPayerContract, error) {
	args := m.Called(ctx, payerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ProviderPayerContract), args.Error(1)
}

func (m *MockContractRepository) ListSupervisionByAttending(ctx context.Context, attendingIDs []string) ([]*entities.SupervisionRelationship, error) {
	args := m.Called(ctx, attendingIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SupervisionRelationship), args.Error(1)
}

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Provider, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

type MockPayerRepository struct {
	mock.Mock
}

func (m *MockPayerRepository) GetByID(ctx context.Context, id string) (*entities.Payer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Payer), args.Error(1)
}

func (m *MockPayerRepository) List(ctx context.Context) ([]*entities.Payer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Payer), args.Error(1)
}

type MockSlotCacheRepository struct {
	mock.Mock
}

func (m *MockSlotCacheRepository) Upsert(ctx context.Context, entry *entities.AvailabilityCacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSlotCacheRepository) Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, error) {
	args := m.Called(ctx, providerID, serviceInstanceID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AvailabilityCacheEntry), args.Error(1)
}

func (m *MockSlotCacheRepository) MarkStale(ctx context.Context, providerID string, date time.Time) (int, error) {
	args := m.Called(ctx, providerID, date)
	return args.Int(0), args.Error(1)
}

func (m *MockSlotCacheRepository) DeleteByProvider(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

type MockAvailabilityRepository struct {
	mock.Mock
}

func (m *MockAvailabilityRepository) ListTemplates(ctx context.Context, providerID string) ([]*entities.AvailabilityTemplate, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AvailabilityTemplate), args.Error(1)
}

func (m *MockAvailabilityRepository) ListTemplatesForDay(ctx context.Context, providerID string, dayOfWeek int) ([]*entities.AvailabilityTemplate, error) {
	args := m.Called(ctx, providerID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AvailabilityTemplate), args.Error(1)
}

func (m *MockAvailabilityRepository) CreateTemplate(ctx context.Context, template *entities.AvailabilityTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockAvailabilityRepository) DeleteTemplate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAvailabilityRepository) GetException(ctx context.Context, providerID string, date time.Time) (*entities.AvailabilityException, error) {
	args := m.Called(ctx, providerID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AvailabilityException), args.Error(1)
}

func (m *MockAvailabilityRepository) UpsertException(ctx context.Context, exception *entities.AvailabilityException) error {
	args := m.Called(ctx, exception)
	return args.Error(0)
}

func (m *MockAvailabilityRepository) DeleteException(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) CreateExclusive(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAppointmentRepository) SetExternalEMRID(ctx context.Context, id, externalID string) error {
	args := m.Called(ctx, id, externalID)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListByProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]*entities.Appointment, error) {
	args := m.Called(ctx, providerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListByPatient(ctx context.Context, patientRef string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, patientRef, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

type MockServiceInstanceRepository struct {
	mock.Mock
}

func (m *MockServiceInstanceRepository) GetByID(ctx context.Context, id string) (*entities.ServiceInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ServiceInstance), args.Error(1)
}

func (m *MockServiceInstanceRepository) GetByPayerAndDuration(ctx context.Context, payerID string, durationMinutes int) (*entities.ServiceInstance, error) {
	args := m.Called(ctx, payerID, durationMinutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ServiceInstance), args.Error(1)
}

func (m *MockServiceInstanceRepository) ListByPayer(ctx context.Context, payerID string) ([]*entities.ServiceInstance, error) {
	args := m.Called(ctx, payerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ServiceInstance), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ScheduleEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ScheduleEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.ScheduleEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockEMRProvider struct {
	mock.Mock
}

func (m *MockEMRProvider) MirrorAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	args := m.Called(ctx, appointment)
	return args.String(0), args.Error(1)
}

func (m *MockEMRProvider) MirrorCancellation(ctx context.Context, externalID string, reason string) error {
	args := m.Called(ctx, externalID, reason)
	return args.Error(0)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, payerID string, opts services.ResolutionOptions) ([]entities.BookableProvider, error) {
	args := m.Called(ctx, payerID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.BookableProvider), args.Error(1)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) Invalidate(ctx context.Context, providerID string, date time.Time) error {
	args := m.Called(ctx, providerID, date)
	return args.Error(0)
}

type MockAvailabilityReader struct {
	mock.Mock
}

func (m *MockAvailabilityReader) Get(ctx context.Context, providerID, serviceInstanceID string, date time.Time) (*entities.AvailabilityCacheEntry, entities.CacheEntryStatus, error) {
	args := m.Called(ctx, providerID, serviceInstanceID, date)
	if args.Get(0) == nil {
		return nil, args.Get(1).(entities.CacheEntryStatus), args.Error(2)
	}
	return args.Get(0).(*entities.AvailabilityCacheEntry), args.Get(1).(entities.CacheEntryStatus), args.Error(2)
}

func (m *MockAvailabilityReader) Populate(ctx context.Context, providerID, serviceInstanceID string, from, to time.Time) (int, error) {
	args := m.Called(ctx, providerID, serviceInstanceID, from, to)
	return args.Int(0), args.Error(1)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	args := m.Called(ctx, key, value, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) SetMulti(ctx context.Context, items map[string][]byte, expirationSeconds int) error {
	args := m.Called(ctx, items, expirationSeconds)
	return args.Error(0)
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheProvider) TTL(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}
