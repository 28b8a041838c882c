package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// banList is a DefenceMechanism with a fixed blacklist.
type banList map[ProviderID]bool

func (b banList) Banned(p ProviderID) bool         { return b[p] }
func (banList) SubtaskSettled(ProviderID, float64) {}
func (banList) TaskCompleted()                     {}

func testProviders(prices ...float64) []*Provider {
	ps := make([]*Provider, len(prices))
	for i, price := range prices {
		ps[i] = newProvider(ProviderID(i), ProviderSpec{MinPrice: price, UsageFactor: 1})
	}
	return ps
}

func testRequestor(id RequestorID, maxPrice float64, subtasks int, defence DefenceMechanism) (*Requestor, []*Subtask) {
	r := newRequestor(id, RequestorSpec{MaxPrice: maxPrice, BudgetFactor: 1}, defence)
	t := &Task{Requestor: id}
	for i := 0; i < subtasks; i++ {
		t.Subtasks = append(t.Subtasks, &Subtask{Task: t, Index: i, NominalUsage: 1, State: SubtaskUnassigned})
	}
	return r, t.Subtasks
}

func matchedProviders(matches []Match) []ProviderID {
	ids := make([]ProviderID, len(matches))
	for i, m := range matches {
		ids[i] = m.Provider.ID
	}
	return ids
}

func TestMarket_CheapestProviderFirst(t *testing.T) {
	// GIVEN providers inserted out of price order
	r, subtasks := testRequestor(0, 10, 3, noDefence{})
	m := NewMarket([]*Requestor{r})
	for _, p := range testProviders(5, 1, 3) {
		m.AddProvider(p)
	}

	// WHEN three subtasks are matched
	m.AddSubtasks(r, subtasks)
	matches := m.Match()

	// THEN they go to the providers in ascending price order
	assert.Equal(t, []ProviderID{1, 2, 0}, matchedProviders(matches))
	for i, mt := range matches {
		assert.Same(t, subtasks[i], mt.Subtask)
	}
	assert.Equal(t, 0, m.Available())
	assert.Empty(t, r.unassigned)
}

func TestMarket_EqualPriceTieBrokenByID(t *testing.T) {
	r, subtasks := testRequestor(0, 10, 2, noDefence{})
	m := NewMarket([]*Requestor{r})
	ps := testProviders(2, 2, 2)
	m.AddProvider(ps[2])
	m.AddProvider(ps[0])
	m.AddProvider(ps[1])

	m.AddSubtasks(r, subtasks)
	assert.Equal(t, []ProviderID{0, 1}, matchedProviders(m.Match()))
	assert.Equal(t, 1, m.Available())
}

func TestMarket_PriceCeilingBlocksExpensiveProviders(t *testing.T) {
	// GIVEN one provider under and one over the requestor's max price
	r, subtasks := testRequestor(0, 2, 2, noDefence{})
	m := NewMarket([]*Requestor{r})
	for _, p := range testProviders(3, 2) {
		m.AddProvider(p)
	}

	// WHEN matching two subtasks
	m.AddSubtasks(r, subtasks)
	matches := m.Match()

	// THEN only the provider priced exactly at max price is used
	assert.Equal(t, []ProviderID{1}, matchedProviders(matches))
	require.Len(t, r.unassigned, 1)
	assert.Same(t, subtasks[1], r.unassigned[0])
	assert.Equal(t, 1, m.Available())
}

func TestMarket_RequestorsServedInIDOrder(t *testing.T) {
	// GIVEN two requestors competing for two providers
	r0, s0 := testRequestor(0, 10, 1, noDefence{})
	r1, s1 := testRequestor(1, 10, 2, noDefence{})
	m := NewMarket([]*Requestor{r0, r1})
	m.AddSubtasks(r1, s1)
	m.AddSubtasks(r0, s0)
	for _, p := range testProviders(1, 4) {
		m.AddProvider(p)
	}

	matches := m.Match()

	// THEN requestor 0 gets the cheapest provider, requestor 1 the other
	require.Len(t, matches, 2)
	assert.Same(t, s0[0], matches[0].Subtask)
	assert.Equal(t, ProviderID(0), matches[0].Provider.ID)
	assert.Same(t, s1[0], matches[1].Subtask)
	assert.Equal(t, ProviderID(1), matches[1].Provider.ID)
	assert.Len(t, r1.unassigned, 1)
}

func TestMarket_LowPricedRequestorDoesNotBlockOthers(t *testing.T) {
	r0, s0 := testRequestor(0, 1, 1, noDefence{})
	r1, s1 := testRequestor(1, 10, 1, noDefence{})
	m := NewMarket([]*Requestor{r0, r1})
	m.AddSubtasks(r0, s0)
	m.AddSubtasks(r1, s1)
	m.AddProvider(testProviders(5)[0])

	matches := m.Match()

	require.Len(t, matches, 1)
	assert.Same(t, s1[0], matches[0].Subtask)
	assert.Len(t, r0.unassigned, 1)
}

func TestMarket_BannedProviderSkipped(t *testing.T) {
	// GIVEN the cheapest provider is banned by the requestor's defence
	r, subtasks := testRequestor(0, 10, 1, banList{0: true})
	m := NewMarket([]*Requestor{r})
	for _, p := range testProviders(1, 2) {
		m.AddProvider(p)
	}

	m.AddSubtasks(r, subtasks)
	matches := m.Match()

	// THEN the next cheapest is chosen
	assert.Equal(t, []ProviderID{1}, matchedProviders(matches))
	assert.Equal(t, 1, m.Available())
}

func TestMarket_AllEligibleBanned(t *testing.T) {
	r, subtasks := testRequestor(0, 10, 1, banList{0: true, 1: true})
	m := NewMarket([]*Requestor{r})
	for _, p := range testProviders(1, 2) {
		m.AddProvider(p)
	}

	m.AddSubtasks(r, subtasks)
	assert.Empty(t, m.Match())
	assert.Len(t, r.unassigned, 1)
	assert.Equal(t, 2, m.Available())
}

func TestMarket_NothingToMatch(t *testing.T) {
	r, _ := testRequestor(0, 10, 0, noDefence{})
	m := NewMarket([]*Requestor{r})
	assert.Empty(t, m.Match())

	m.AddProvider(testProviders(1)[0])
	assert.Empty(t, m.Match())
	assert.Equal(t, 1, m.Available())
}
