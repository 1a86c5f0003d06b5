package providers

import (
	"context"

	"github.com/carebook/carebook/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to schedule
// events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ScheduleEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ScheduleEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelScheduleUpdates is the channel for all schedule changes
	EventChannelScheduleUpdates = "schedule:updates"

	// EventChannelAudit carries commit and invalidation records for the
	// best-effort audit sink
	EventChannelAudit = "schedule:audit"

	// EventChannelProviderPrefix is the prefix for provider-specific channels
	EventChannelProviderPrefix = "schedule:provider:"
)

// GetProviderChannel returns the channel name for a specific provider
func GetProviderChannel(providerID string) string {
	return EventChannelProviderPrefix + providerID
}
