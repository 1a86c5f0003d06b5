package emr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
)

// MockAdapter records mirrored appointments in memory for local development.
type MockAdapter struct {
	mu        sync.Mutex
	mirrored  map[string]string
	cancelled map[string]string
}

// NewMockAdapter creates a mock EMR provider.
func NewMockAdapter() providers.EMRProvider {
	return &MockAdapter{
		mirrored:  make(map[string]string),
		cancelled: make(map[string]string),
	}
}

// MirrorAppointment returns a deterministic mock external reference.
func (m *MockAdapter) MirrorAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.mirrored[appointment.ID]; ok {
		return existing, nil
	}
	externalID := fmt.Sprintf("emr-%s-%d", appointment.ID, time.Now().UnixNano())
	m.mirrored[appointment.ID] = externalID
	return externalID, nil
}

// MirrorCancellation records the cancellation and succeeds.
func (m *MockAdapter) MirrorCancellation(ctx context.Context, externalID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelled[externalID] = reason
	return nil
}
