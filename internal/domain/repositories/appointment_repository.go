package repositories

import (
	"context"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// CreateExclusive inserts the appointment inside a transaction that
	// guarantees no non-cancelled appointment for the same provider overlaps
	// [Start, End); a losing concurrent insert returns a Conflict error
	CreateExclusive(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Cancel marks an appointment cancelled
	Cancel(ctx context.Context, id string) error

	// SetExternalEMRID records the downstream EMR identifier after mirroring
	SetExternalEMRID(ctx context.Context, id, externalID string) error

	// ListByProviderBetween retrieves a provider's non-cancelled appointments
	// intersecting [from, to)
	ListByProviderBetween(ctx context.Context, providerID string, from, to time.Time) ([]*entities.Appointment, error)

	// ListByPatient retrieves appointments for a patient reference
	ListByPatient(ctx context.Context, patientRef string, filter AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
