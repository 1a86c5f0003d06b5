package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a committed booking. No two non-cancelled
// appointments for the same provider may have overlapping [Start, End)
// intervals; the commit transaction enforces this.
type Appointment struct {
	ID                string            `json:"id" db:"id"`
	ProviderID        string            `json:"provider_id" db:"provider_id"`
	PayerID           string            `json:"payer_id" db:"payer_id"`
	ServiceInstanceID string            `json:"service_instance_id" db:"service_instance_id"`
	PatientRef        string            `json:"patient_ref" db:"patient_ref"`
	Start             time.Time         `json:"start_time" db:"start_time"`
	End               time.Time         `json:"end_time" db:"end_time"`
	Status            AppointmentStatus `json:"status" db:"status"`
	BillingProviderID string            `json:"billing_provider_id" db:"billing_provider_id"`
	ExternalEMRID     *string           `json:"external_emr_id,omitempty" db:"external_emr_id"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// Blocks reports whether this appointment makes the half-open interval
// [start, end) unavailable; cancelled appointments never block
func (a *Appointment) Blocks(start, end time.Time) bool {
	if a.Status == AppointmentStatusCancelled {
		return false
	}
	return a.Start.Before(end) && start.Before(a.End)
}
