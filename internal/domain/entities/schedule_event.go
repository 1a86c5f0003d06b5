package entities

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleEventType represents the type of schedule event
type ScheduleEventType string

const (
	ScheduleEventTypeTemplateChanged      ScheduleEventType = "template_changed"
	ScheduleEventTypeExceptionChanged     ScheduleEventType = "exception_changed"
	ScheduleEventTypeContractChanged      ScheduleEventType = "contract_changed"
	ScheduleEventTypeAppointmentCreated   ScheduleEventType = "appointment_created"
	ScheduleEventTypeAppointmentCancelled ScheduleEventType = "appointment_cancelled"
	ScheduleEventTypeCacheInvalidated     ScheduleEventType = "cache_invalidated"
)

// ScheduleEvent is a change notification for a provider's schedule; it drives
// cache invalidation and doubles as the best-effort audit record
type ScheduleEvent struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"provider_id"`
	Date       string            `json:"date"` // DateLayout; empty when the whole schedule changed
	EventType  ScheduleEventType `json:"event_type"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    map[string]any    `json:"payload,omitempty"`
}

// NewScheduleEvent creates a new schedule event
func NewScheduleEvent(providerID string, date string, eventType ScheduleEventType, payload map[string]any) *ScheduleEvent {
	return &ScheduleEvent{
		ID:         uuid.New().String(),
		ProviderID: providerID,
		Date:       date,
		EventType:  eventType,
		Timestamp:  time.Now(),
		Payload:    payload,
	}
}
