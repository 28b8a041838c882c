package sim

import "sort"

// Match is one provider/subtask pairing decided by the market.
type Match struct {
	Subtask  *Subtask
	Provider *Provider
}

// Market holds the pools of available providers and unassigned subtasks and
// pairs them deterministically.
//
// Selection policy: requestors are served in id order and their subtasks in
// task order; each subtask goes to the cheapest eligible provider, ties broken
// by provider id. A provider is eligible if its min price does not exceed the
// requestor's max price and the requestor's defence has not banned it.
type Market struct {
	available  []*Provider // sorted by (MinPrice, ID)
	requestors []*Requestor
}

// NewMarket creates a market over the given requestors, which must be in id order.
func NewMarket(requestors []*Requestor) *Market {
	return &Market{requestors: requestors}
}

// AddProvider inserts an available provider into the pool.
func (m *Market) AddProvider(p *Provider) {
	i := sort.Search(len(m.available), func(i int) bool {
		return providerBefore(p, m.available[i])
	})
	m.available = append(m.available, nil)
	copy(m.available[i+1:], m.available[i:])
	m.available[i] = p
}

// AddSubtasks appends a requestor's subtasks to its unassigned pool.
func (m *Market) AddSubtasks(r *Requestor, subtasks []*Subtask) {
	r.unassigned = append(r.unassigned, subtasks...)
}

// Available returns the number of providers waiting for work.
func (m *Market) Available() int {
	return len(m.available)
}

// Match pairs unassigned subtasks with available providers and removes the
// matched entries from both pools. Returned matches are in decision order.
func (m *Market) Match() []Match {
	var matches []Match
	for _, r := range m.requestors {
		if len(m.available) == 0 {
			break
		}
		n := 0
		for _, st := range r.unassigned {
			idx := m.cheapestEligible(r)
			if idx < 0 {
				// Later subtasks of r see the same provider pool.
				break
			}
			matches = append(matches, Match{Subtask: st, Provider: m.available[idx]})
			m.available = append(m.available[:idx], m.available[idx+1:]...)
			n++
		}
		r.unassigned = r.unassigned[n:]
	}
	return matches
}

// cheapestEligible returns the index of the first eligible provider, or -1.
func (m *Market) cheapestEligible(r *Requestor) int {
	for i, p := range m.available {
		if p.Spec.MinPrice > r.Spec.MaxPrice {
			return -1
		}
		if !r.Defence.Banned(p.ID) {
			return i
		}
	}
	return -1
}

func providerBefore(a, b *Provider) bool {
	if a.Spec.MinPrice != b.Spec.MinPrice {
		return a.Spec.MinPrice < b.Spec.MinPrice
	}
	return a.ID < b.ID
}
