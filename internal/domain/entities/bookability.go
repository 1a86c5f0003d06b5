package entities

// ResolutionKind describes how a provider becomes bookable under a payer
type ResolutionKind string

const (
	// ResolutionKindDirect is an in-network contract held by the provider
	ResolutionKindDirect ResolutionKind = "direct"

	// ResolutionKindSupervised extends an attending provider's contract to a
	// supervised provider; billing runs under the attending
	ResolutionKindSupervised ResolutionKind = "supervised"

	// ResolutionKindCoVisit is a supervised arrangement that additionally
	// requires the attending to join the visit
	ResolutionKindCoVisit ResolutionKind = "co_visit"
)

// precedence orders resolution kinds when a provider qualifies multiple
// ways: direct wins over supervised, supervised over co_visit
func (k ResolutionKind) precedence() int {
	switch k {
	case ResolutionKindDirect:
		return 0
	case ResolutionKindSupervised:
		return 1
	default:
		return 2
	}
}

// Beats reports whether k takes priority over other during deduplication
func (k ResolutionKind) Beats(other ResolutionKind) bool {
	return k.precedence() < other.precedence()
}

// BookableProvider is one row of a bookability resolution: the rendering
// provider, how they qualified, and the billing identity to use
type BookableProvider struct {
	ProviderID          string           `json:"provider_id"`
	Kind                ResolutionKind   `json:"kind"`
	BillingProviderID   string           `json:"billing_provider_id"`
	RenderingProviderID string           `json:"rendering_provider_id"`
	AttendingProviderID string           `json:"attending_provider_id,omitempty"` // set for supervised and co_visit
	SupervisionLevel    SupervisionLevel `json:"supervision_level,omitempty"`
}

// MergedSlot is one entry of the patient-facing merged availability feed
type MergedSlot struct {
	ProviderID          string         `json:"provider_id"`
	Slot                Slot           `json:"slot"`
	SupervisionKind     ResolutionKind `json:"supervision_kind"`
	AttendingProviderID string         `json:"attending_provider_id,omitempty"`
}
