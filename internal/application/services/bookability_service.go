package services

import (
	"context"
	"sort"
	"time"

	"github.com/carebook/carebook/backend/internal/domain/entities"
	"github.com/carebook/carebook/backend/internal/domain/repositories"
	"github.com/carebook/carebook/backend/internal/infrastructure/observability"
	apperrors "github.com/carebook/carebook/backend/pkg/errors"
)

// ResolutionOptions controls a single bookability resolution. Passing the
// options per call keeps resolution reproducible; there is no ambient flag
// state to drift between calls.
type ResolutionOptions struct {
	NewPatientsOnly bool
	TelehealthOnly  bool
	At              time.Time
}

// BookabilityService decides which providers can be booked under a payer and
// how billing runs for each. Precedence and tie-break rules live here, in
// code, rather than in database views, so they stay testable.
type BookabilityService struct {
	contractRepo repositories.ContractRepository
	providerRepo repositories.ProviderRepository
	payerRepo    repositories.PayerRepository
}

// NewBookabilityService creates a new bookability service
func NewBookabilityService(
	contractRepo repositories.ContractRepository,
	providerRepo repositories.ProviderRepository,
	payerRepo repositories.PayerRepository,
) *BookabilityService {
	return &BookabilityService{
		contractRepo: contractRepo,
		providerRepo: providerRepo,
		payerRepo:    payerRepo,
	}
}

// Resolve returns the ordered set of providers bookable under a payer. The
// output is deterministic for a fixed data state: resolution kind precedence
// first (direct, supervised, co_visit), then provider ID ascending.
func (s *BookabilityService) Resolve(ctx context.Context, payerID string, opts ResolutionOptions) ([]entities.BookableProvider, error) {
	if payerID == "" {
		return nil, apperrors.NewValidationError("payer id is required")
	}
	at := opts.At
	if at.IsZero() {
		at = time.Now()
	}

	payer, err := s.payerRepo.GetByID(ctx, payerID)
	if err != nil {
		return nil, err
	}

	// Self-pay bypasses contracts entirely: every bookable provider who
	// takes new patients is directly bookable and bills as themselves.
	if payer.IsSelfPay() {
		return s.resolveSelfPay(ctx, opts)
	}

	contracts, err := s.contractRepo.ListByPayer(ctx, payerID)
	if err != nil {
		return nil, err
	}

	// One active contract per provider: the adapter orders by effective date
	// descending, so the first active row wins. A second active row is a
	// data integrity violation we tolerate and log, never surface.
	activeByProvider := make(map[string]*entities.ProviderPayerContract)
	for _, contract := range contracts {
		if !contract.ActiveAt(at) {
			continue
		}
		if kept, ok := activeByProvider[contract.ProviderID]; ok {
			observability.LoggerFromContext(ctx).Warn().
				Str("warning", "data_integrity").
				Str("provider_id", contract.ProviderID).
				Str("payer_id", payerID).
				Str("kept_contract_id", kept.ID).
				Str("dropped_contract_id", contract.ID).
				Msg("overlapping active contracts; keeping most recently effective")
			continue
		}
		activeByProvider[contract.ProviderID] = contract
	}

	candidates := make(map[string]entities.BookableProvider)
	attendingIDs := make([]string, 0, len(activeByProvider))
	for providerID, contract := range activeByProvider {
		attendingIDs = append(attendingIDs, providerID)
		billing := contract.BillingProviderID
		if billing == "" {
			billing = providerID
		}
		candidates[providerID] = entities.BookableProvider{
			ProviderID:          providerID,
			Kind:                entities.ResolutionKindDirect,
			BillingProviderID:   billing,
			RenderingProviderID: providerID,
		}
	}
	sort.Strings(attendingIDs)

	relationships, err := s.contractRepo.ListSupervisionByAttending(ctx, attendingIDs)
	if err != nil {
		return nil, err
	}

	for _, rel := range relationships {
		if !rel.Active || rel.Level == entities.SupervisionLevelNone {
			continue
		}
		attendingContract, ok := activeByProvider[rel.AttendingProviderID]
		if !ok {
			continue
		}

		kind := entities.ResolutionKindSupervised
		if rel.Level == entities.SupervisionLevelCoVisitRequired {
			kind = entities.ResolutionKindCoVisit
		}
		billing := attendingContract.BillingProviderID
		if billing == "" {
			billing = rel.AttendingProviderID
		}
		candidate := entities.BookableProvider{
			ProviderID:          rel.SupervisedProviderID,
			Kind:                kind,
			BillingProviderID:   billing,
			RenderingProviderID: rel.SupervisedProviderID,
			AttendingProviderID: rel.AttendingProviderID,
			SupervisionLevel:    rel.Level,
		}

		existing, ok := candidates[rel.SupervisedProviderID]
		if !ok {
			candidates[rel.SupervisedProviderID] = candidate
			continue
		}
		// Direct beats supervised beats co_visit; within the same kind the
		// lowest attending ID wins so repeated resolutions agree.
		if candidate.Kind.Beats(existing.Kind) ||
			(candidate.Kind == existing.Kind && candidate.AttendingProviderID < existing.AttendingProviderID) {
			candidates[rel.SupervisedProviderID] = candidate
		}
	}

	return s.filterAndOrder(ctx, candidates, opts)
}

func (s *BookabilityService) resolveSelfPay(ctx context.Context, opts ResolutionOptions) ([]entities.BookableProvider, error) {
	active, bookable, newPatients := true, true, true
	filter := repositories.ProviderFilter{
		Active:             &active,
		Bookable:           &bookable,
		AcceptsNewPatients: &newPatients,
	}
	if opts.TelehealthOnly {
		telehealth := true
		filter.Telehealth = &telehealth
	}

	providers, err := s.providerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]entities.BookableProvider, 0, len(providers))
	for _, provider := range providers {
		results = append(results, entities.BookableProvider{
			ProviderID:          provider.ID,
			Kind:                entities.ResolutionKindDirect,
			BillingProviderID:   provider.ID,
			RenderingProviderID: provider.ID,
		})
	}
	sortBookable(results)
	return results, nil
}

// filterAndOrder drops inactive or non-bookable providers, applies the
// per-call option filters, and produces the deterministic output order
func (s *BookabilityService) filterAndOrder(ctx context.Context, candidates map[string]entities.BookableProvider, opts ResolutionOptions) ([]entities.BookableProvider, error) {
	if len(candidates) == 0 {
		return []entities.BookableProvider{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	providers, err := s.providerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	providerByID := make(map[string]*entities.Provider, len(providers))
	for _, provider := range providers {
		providerByID[provider.ID] = provider
	}

	results := make([]entities.BookableProvider, 0, len(candidates))
	for _, id := range ids {
		provider, ok := providerByID[id]
		if !ok || !provider.Active || !provider.Bookable {
			continue
		}
		if opts.NewPatientsOnly && !provider.AcceptsNewPatients {
			continue
		}
		if opts.TelehealthOnly && !provider.Telehealth {
			continue
		}
		results = append(results, candidates[id])
	}
	sortBookable(results)
	return results, nil
}

func sortBookable(results []entities.BookableProvider) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Kind != results[j].Kind {
			return results[i].Kind.Beats(results[j].Kind)
		}
		return results[i].ProviderID < results[j].ProviderID
	})
}
