package emr

import (
	"github.com/carebook/carebook/backend/internal/domain/providers"
	"github.com/carebook/carebook/backend/pkg/config"
)

// NewEMRProvider creates the EMR mirror configured by the environment. An
// unrecognized or empty provider name falls back to the in-memory mock so
// local development never needs downstream credentials.
func NewEMRProvider(cfg *config.EMRConfig) providers.EMRProvider {
	if cfg.Provider == "http" && cfg.BaseURL != "" {
		return NewHTTPAdapter(cfg.BaseURL, cfg.APIKey)
	}
	return NewMockAdapter()
}
