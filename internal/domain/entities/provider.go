package entities

import (
	"strings"
	"time"
)

// Provider represents a clinician who can receive patient bookings
type Provider struct {
	ID                 string    `json:"id" db:"id"`
	NPI                string    `json:"npi" db:"npi"`
	FirstName          string    `json:"first_name" db:"first_name"`
	LastName           string    `json:"last_name" db:"last_name"`
	Credentials        string    `json:"credentials" db:"credentials"`
	Languages          []string  `json:"languages" db:"languages"`
	Timezone           string    `json:"timezone" db:"timezone"`
	Active             bool      `json:"active" db:"active"`
	Bookable           bool      `json:"bookable" db:"bookable"`
	AcceptsNewPatients bool      `json:"accepts_new_patients" db:"accepts_new_patients"`
	Telehealth         bool      `json:"telehealth" db:"telehealth"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the provider's time zone, falling back to UTC when the
// configured zone name is missing or invalid
func (p *Provider) Location() *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	return time.UTC
}

// SpeaksLanguage reports whether the provider lists the given language;
// matching is case-insensitive on exact language codes/names
func (p *Provider) SpeaksLanguage(language string) bool {
	for _, l := range p.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// PayerType classifies an insurance plan
type PayerType string

const (
	PayerTypeCommercial PayerType = "commercial"
	PayerTypeMedicaid   PayerType = "medicaid"
	PayerTypeMedicare   PayerType = "medicare"
	PayerTypeSelfPay    PayerType = "self_pay"
)

// Payer represents an insurance plan
type Payer struct {
	ID                     string     `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name"`
	Type                   PayerType  `json:"type" db:"type"`
	State                  string     `json:"state" db:"state"`
	StatusCode             string     `json:"status_code" db:"status_code"`
	EffectiveDate          *time.Time `json:"effective_date" db:"effective_date"`
	ProjectedEffectiveDate *time.Time `json:"projected_effective_date" db:"projected_effective_date"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// IsSelfPay reports whether this payer is the cash/self-pay pseudo-payer,
// which bypasses contract resolution entirely
func (p *Payer) IsSelfPay() bool {
	return p.Type == PayerTypeSelfPay
}
