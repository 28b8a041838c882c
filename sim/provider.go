package sim

// ProviderID identifies a provider within one repetition, in construction order.
type ProviderID int

// Provider is a runtime provider agent. Owned by one Simulator.
type Provider struct {
	ID   ProviderID
	Spec ProviderSpec

	Available bool
	Current   *Subtask // nil when idle

	Assigned  int
	Computed  int
	Cancelled int
	Revenue   float64
}

func newProvider(id ProviderID, spec ProviderSpec) *Provider {
	return &Provider{ID: id, Spec: spec}
}

// computeTime is how long the provider needs for nominal CPU-seconds of work.
func (p *Provider) computeTime(nominal float64) float64 {
	return nominal / p.Spec.UsageFactor
}
