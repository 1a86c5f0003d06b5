package entities

import (
	"time"
)

// DateLayout is the wire/database format for calendar dates
const DateLayout = "2006-01-02"

// ClockLayout is the wire/database format for template window times
const ClockLayout = "15:04"

// AvailabilityTemplate is a recurring weekly availability window for a
// provider. Multiple templates may exist for the same day (split shifts);
// each one generates its own independent slot run.
type AvailabilityTemplate struct {
	ID          string    `json:"id" db:"id"`
	ProviderID  string    `json:"provider_id" db:"provider_id"`
	DayOfWeek   int       `json:"day_of_week" db:"day_of_week"` // 0 = Sunday
	StartTime   string    `json:"start_time" db:"start_time"`   // "HH:MM" provider-local
	EndTime     string    `json:"end_time" db:"end_time"`
	IsRecurring bool      `json:"is_recurring" db:"is_recurring"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AvailabilityException overrides templates for a single calendar date:
// either a full blackout or a replacement window
type AvailabilityException struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	Date       time.Time `json:"date" db:"date"`
	Blackout   bool      `json:"blackout" db:"blackout"`
	StartTime  string    `json:"start_time" db:"start_time"` // replacement window when not a blackout
	EndTime    string    `json:"end_time" db:"end_time"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ServiceInstance is a bookable appointment type/duration offered under a
// specific payer
type ServiceInstance struct {
	ID              string    `json:"id" db:"id"`
	PayerID         string    `json:"payer_id" db:"payer_id"`
	Name            string    `json:"name" db:"name"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Telehealth      bool      `json:"telehealth" db:"telehealth"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Slot is a discrete fixed-duration bookable interval. Slots that collide
// with committed appointments stay in the list with Available=false so the
// cache can explain why a time is gone rather than dropping it.
type Slot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Available       bool      `json:"available"`
	DurationMinutes int       `json:"duration_minutes"`
}

// Overlaps reports whether the half-open interval [Start, End) intersects
// [start, end)
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && start.Before(s.End)
}

// CacheEntryStatus signals whether a cache key has been computed yet;
// pending is distinct from populated-with-zero-slots
type CacheEntryStatus string

const (
	CacheEntryStatusPopulated CacheEntryStatus = "populated"
	CacheEntryStatusPending   CacheEntryStatus = "pending"
)

// AvailabilityCacheEntry is derived data keyed by (provider, service
// instance, date). It is reproducible from templates, exceptions and
// appointments and must never be treated as the source of truth for
// bookability.
type AvailabilityCacheEntry struct {
	ProviderID        string    `json:"provider_id" db:"provider_id"`
	ServiceInstanceID string    `json:"service_instance_id" db:"service_instance_id"`
	Date              time.Time `json:"date" db:"slot_date"`
	Slots             []Slot    `json:"slots" db:"slots"`
	Stale             bool      `json:"stale" db:"stale"`
	ComputedAt        time.Time `json:"computed_at" db:"computed_at"`
}
