package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/providers"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
)

// CachedContractAdapter wraps ContractAdapter with short-term caching.
// Contract and supervision rows change rarely but are read on every
// resolution, so even a small TTL absorbs most of the load.
type CachedContractAdapter struct {
	adapter repositories.ContractRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedContractAdapter creates a new cached contract adapter
func NewCachedContractAdapter(adapter repositories.ContractRepository, cache providers.CacheProvider, ttlSeconds int) repositories.ContractRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = 60
	}
	return &CachedContractAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
	}
}

// Cache key generators
func contractsByPayerCacheKey(payerID string) string {
	return fmt.Sprintf("contracts:payer:%s", payerID)
}

func supervisionCacheKey(attendingIDs []string) string {
	sorted := make([]string, len(attendingIDs))
	copy(sorted, attendingIDs)
	sort.Strings(sorted)
	return fmt.Sprintf("supervision:attending:%s", strings.Join(sorted, ","))
}

// ListByPayer retrieves a payer's contracts with caching
func (a *CachedContractAdapter) ListByPayer(ctx context.Context, payerID string) ([]*entities.ProviderPayerContract, error) {
	cacheKey := contractsByPayerCacheKey(payerID)

	// Try to get from cache first
	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var contracts []*entities.ProviderPayerContract
		if err := json.Unmarshal(cached, &contracts); err == nil {
			return contracts, nil
		}
		log.Printf("Failed to unmarshal cached contracts for payer %s: %v", payerID, err)
	}

	// Cache miss - fetch from database
	contracts, err := a.adapter.ListByPayer(ctx, payerID)
	if err != nil {
		return nil, err
	}

	// Update cache asynchronously to avoid blocking the response
	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(contracts); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, a.ttl); err != nil {
				log.Printf("Failed to cache contracts for payer %s: %v", payerID, err)
			}
		}
	}()

	return contracts, nil
}

// ListSupervisionByAttending retrieves supervision relationships with caching
func (a *CachedContractAdapter) ListSupervisionByAttending(ctx context.Context, attendingIDs []string) ([]*entities.SupervisionRelationship, error) {
	if len(attendingIDs) == 0 {
		return []*entities.SupervisionRelationship{}, nil
	}

	cacheKey := supervisionCacheKey(attendingIDs)

	if cached, err := a.cache.Get(ctx, cacheKey); err == nil {
		var relationships []*entities.SupervisionRelationship
		if err := json.Unmarshal(cached, &relationships); err == nil {
			return relationships, nil
		}
		log.Printf("Failed to unmarshal cached supervision relationships: %v", err)
	}

	relationships, err := a.adapter.ListSupervisionByAttending(ctx, attendingIDs)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(relationships); err == nil {
			if err := a.cache.Set(bgCtx, cacheKey, data, a.ttl); err != nil {
				log.Printf("Failed to cache supervision relationships: %v", err)
			}
		}
	}()

	return relationships, nil
}
