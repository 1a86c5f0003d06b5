package handlers

import (
	"net/http"
	"strconv"

	"github.com/carebook/carebook/backend/internal/domain/repositories"
)

// ProviderSearchHandler handles provider directory search requests
type ProviderSearchHandler struct {
	searchRepo repositories.ProviderSearchRepository
}

// NewProviderSearchHandler creates a new provider search handler
func NewProviderSearchHandler(searchRepo repositories.ProviderSearchRepository) *ProviderSearchHandler {
	return &ProviderSearchHandler{
		searchRepo: searchRepo,
	}
}

// SearchProviders handles GET /api/providers/search
func (h *ProviderSearchHandler) SearchProviders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 30
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	providers, err := h.searchRepo.Search(r.Context(), query.Get("q"), query.Get("language"), limit)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}
