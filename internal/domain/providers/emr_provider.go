package providers

import (
	"context"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// EMRProvider mirrors committed appointments into the downstream practice
// management system. It is invoked only after the local commit succeeds and
// is never a precondition for the engine's own consistency.
type EMRProvider interface {
	// MirrorAppointment creates the appointment downstream and returns the
	// external identifier
	MirrorAppointment(ctx context.Context, appointment *entities.Appointment) (externalID string, err error)

	// MirrorCancellation propagates a cancellation downstream
	MirrorCancellation(ctx context.Context, externalID string, reason string) error
}
