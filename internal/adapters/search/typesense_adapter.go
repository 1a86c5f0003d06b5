package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	tsclient "github.com/carebook/carebook/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements the provider directory search using Typesense.
// The index holds only what search needs; callers hydrate full provider rows
// from the database when they need more than the directory card.
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProviderSearchRepository
var _ repositories.ProviderSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

func providerDocument(provider *entities.Provider) map[string]interface{} {
	languages := provider.Languages
	if languages == nil {
		languages = []string{}
	}
	return map[string]interface{}{
		"id":                   provider.ID,
		"name":                 strings.TrimSpace(provider.FirstName + " " + provider.LastName),
		"credentials":          provider.Credentials,
		"languages":            languages,
		"telehealth":           provider.Telehealth,
		"accepts_new_patients": provider.AcceptsNewPatients,
	}
}

// IndexProviders upserts providers into the search index. Inactive or
// non-bookable providers are removed rather than indexed so the directory
// never surfaces someone who cannot be booked.
func (a *TypesenseAdapter) IndexProviders(ctx context.Context, providers []*entities.Provider) error {
	for _, provider := range providers {
		if !provider.Active || !provider.Bookable {
			// Ignore delete errors for providers never indexed
			_, _ = a.client.Client().Collection(tsclient.ProvidersCollection).Document(provider.ID).Delete(ctx)
			continue
		}

		document := providerDocument(provider)
		if _, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, document); err != nil {
			return fmt.Errorf("failed to index provider %s: %w", provider.ID, err)
		}
	}
	return nil
}

// Search performs a name and credential search, optionally filtered to
// providers speaking a language
func (a *TypesenseAdapter) Search(ctx context.Context, query, language string, limit int) ([]*entities.Provider, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.TrimSpace(query)
	if q == "" {
		q = "*"
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("name,credentials"),
		PerPage: pointer.Int(limit),
	}
	if language != "" {
		searchParams.FilterBy = pointer.String(fmt.Sprintf("languages:=%s", strings.ToLower(language)))
	}

	result, err := a.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	providers := []*entities.Provider{}
	if result.Hits == nil {
		return providers, nil
	}
	for _, hit := range *result.Hits {
		doc := *hit.Document

		provider := &entities.Provider{
			Active:   true,
			Bookable: true,
		}
		if val, ok := doc["id"].(string); ok {
			provider.ID = val
		}
		if val, ok := doc["name"].(string); ok {
			parts := strings.SplitN(val, " ", 2)
			provider.FirstName = parts[0]
			if len(parts) > 1 {
				provider.LastName = parts[1]
			}
		}
		if val, ok := doc["credentials"].(string); ok {
			provider.Credentials = val
		}
		if vals, ok := doc["languages"].([]interface{}); ok {
			for _, v := range vals {
				if s, ok := v.(string); ok {
					provider.Languages = append(provider.Languages, s)
				}
			}
		}
		if val, ok := doc["telehealth"].(bool); ok {
			provider.Telehealth = val
		}
		if val, ok := doc["accepts_new_patients"].(bool); ok {
			provider.AcceptsNewPatients = val
		}

		providers = append(providers, provider)
	}

	return providers, nil
}

// RemoveProvider deletes a provider from the index
func (a *TypesenseAdapter) RemoveProvider(ctx context.Context, providerID string) error {
	if _, err := a.client.Client().Collection(tsclient.ProvidersCollection).Document(providerID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}
