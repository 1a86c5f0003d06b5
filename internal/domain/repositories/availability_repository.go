package repositories

import (
	"context"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// AvailabilityRepository defines the interface for recurring templates and
// date-specific exceptions
type AvailabilityRepository interface {
	// ListTemplates retrieves all templates for a provider
	ListTemplates(ctx context.Context, providerID string) ([]*entities.AvailabilityTemplate, error)

	// ListTemplatesForDay retrieves a provider's templates for a day of week
	ListTemplatesForDay(ctx context.Context, providerID string, dayOfWeek int) ([]*entities.AvailabilityTemplate, error)

	// CreateTemplate creates a new template
	CreateTemplate(ctx context.Context, template *entities.AvailabilityTemplate) error

	// DeleteTemplate deletes a template
	DeleteTemplate(ctx context.Context, id string) error

	// GetException retrieves the exception for a provider and exact date,
	// or nil when none exists
	GetException(ctx context.Context, providerID string, date time.Time) (*entities.AvailabilityException, error)

	// UpsertException creates or replaces the exception for its provider/date
	UpsertException(ctx context.Context, exception *entities.AvailabilityException) error

	// DeleteException deletes an exception
	DeleteException(ctx context.Context, id string) error
}

// ServiceInstanceRepository defines the interface for bookable service
// instances
type ServiceInstanceRepository interface {
	// GetByID retrieves a service instance by ID
	GetByID(ctx context.Context, id string) (*entities.ServiceInstance, error)

	// GetByPayerAndDuration retrieves the service instance offered under a
	// payer for a given appointment duration
	GetByPayerAndDuration(ctx context.Context, payerID string, durationMinutes int) (*entities.ServiceInstance, error)

	// ListByPayer retrieves all service instances offered under a payer
	ListByPayer(ctx context.Context, payerID string) ([]*entities.ServiceInstance, error)
}
