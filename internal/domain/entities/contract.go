package entities

import (
	"time"
)

// ContractStatus represents the network status of a provider-payer contract
type ContractStatus string

const (
	ContractStatusInNetwork    ContractStatus = "in_network"
	ContractStatusOutOfNetwork ContractStatus = "out_of_network"
	ContractStatusPending      ContractStatus = "pending"
	ContractStatusTerminated   ContractStatus = "terminated"
)

// ProviderPayerContract joins a provider to a payer. BillingProviderID may
// differ from ProviderID when claims are billed under a supervising provider.
type ProviderPayerContract struct {
	ID                string         `json:"id" db:"id"`
	ProviderID        string         `json:"provider_id" db:"provider_id"`
	PayerID           string         `json:"payer_id" db:"payer_id"`
	Status            ContractStatus `json:"status" db:"status"`
	EffectiveDate     time.Time      `json:"effective_date" db:"effective_date"`
	ExpirationDate    *time.Time     `json:"expiration_date" db:"expiration_date"`
	BillingProviderID string         `json:"billing_provider_id" db:"billing_provider_id"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// ActiveAt reports whether the contract is in network and its date window
// covers the given instant
func (c *ProviderPayerContract) ActiveAt(at time.Time) bool {
	if c.Status != ContractStatusInNetwork {
		return false
	}
	if c.EffectiveDate.After(at) {
		return false
	}
	if c.ExpirationDate != nil && !c.ExpirationDate.After(at) {
		return false
	}
	return true
}

// SupervisionLevel describes how closely an attending provider must be
// involved in a supervised provider's visits
type SupervisionLevel string

const (
	SupervisionLevelNone               SupervisionLevel = "none"
	SupervisionLevelSignOffOnly        SupervisionLevel = "sign_off_only"
	SupervisionLevelFirstVisitInPerson SupervisionLevel = "first_visit_in_person"
	SupervisionLevelCoVisitRequired    SupervisionLevel = "co_visit_required"
)

// SupervisionRelationship links a supervised provider to an attending
// provider. The supervised provider inherits bookability under a payer only
// when the attending holds an active direct contract with that payer, and the
// attending is always the billing provider.
type SupervisionRelationship struct {
	ID                   string           `json:"id" db:"id"`
	SupervisedProviderID string           `json:"supervised_provider_id" db:"supervised_provider_id"`
	AttendingProviderID  string           `json:"attending_provider_id" db:"attending_provider_id"`
	Level                SupervisionLevel `json:"level" db:"level"`
	Active               bool             `json:"active" db:"active"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}
