package services

import (
	"github.com/carebook/carebook/backend/pkg/config"
)

// ResolutionDefaults builds the baseline per-call options from configuration.
// Handlers start from these and apply explicit query parameters on top, so a
// resolution is always reproducible from the request plus the deployed
// config, never from hidden toggles.
type ResolutionDefaults struct {
	newPatientsOnly bool
}

// NewResolutionDefaults creates resolution defaults from config
func NewResolutionDefaults(cfg *config.AvailabilityConfig) *ResolutionDefaults {
	return &ResolutionDefaults{
		newPatientsOnly: cfg.NewPatientsOnly,
	}
}

// Options returns a fresh ResolutionOptions seeded with the defaults
func (d *ResolutionDefaults) Options() ResolutionOptions {
	return ResolutionOptions{
		NewPatientsOnly: d.newPatientsOnly,
	}
}
