package sim

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/market-sim/market-sim/sim/trace"
)

// loadExampleScenario decodes a file from ../scenarios with strict field checking.
func loadExampleScenario(t *testing.T, name string) *SimulationConfig {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "scenarios", name))
	require.NoError(t, err)
	var cfg SimulationConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	require.NoError(t, decoder.Decode(&cfg), "failed to load %s", name)
	require.NoError(t, cfg.Validate(), "validation failed for %s", name)
	return &cfg
}

// TestExampleScenarios_SinglePair verifies that single_pair.yaml runs one
// settled subtask to completion.
func TestExampleScenarios_SinglePair(t *testing.T) {
	// GIVEN the single_pair.yaml example scenario
	cfg := loadExampleScenario(t, "single_pair.yaml")

	// WHEN repetition 0 runs
	s, err := NewSimulator(cfg, NewSimulationKey(cfg.Seed, 0), trace.TraceLevelDecisions)
	require.NoError(t, err)
	s.Run()

	// THEN the subtask settles after 100 seconds at the provider's price
	tr := s.Trace()
	require.Len(t, tr.Verifications, 1)
	assert.True(t, tr.Verifications[0].Settled)
	assert.Equal(t, 100.0, tr.Verifications[0].Clock)
	snap := s.Snapshot()
	assert.InDelta(t, 0.01, snap.Providers[0].Revenue, 1e-12)
	assert.Equal(t, 1, snap.Requestors[0].TasksComputed)
}

// TestExampleScenarios_Undercut verifies that budget-undercutting providers
// in undercut.yaml are never cancelled and charge just under the budget.
func TestExampleScenarios_Undercut(t *testing.T) {
	// GIVEN the undercut.yaml example scenario
	cfg := loadExampleScenario(t, "undercut.yaml")
	assert.Equal(t, DefenceLGRola, cfg.Defence)
	require.Equal(t, UndercutBudget(0.01), cfg.Providers[2].Behaviour)

	// WHEN repetition 0 runs
	s, err := NewSimulator(cfg, NewSimulationKey(cfg.Seed, 0), trace.TraceLevelDecisions)
	require.NoError(t, err)
	s.Run()

	// THEN the cheapest provider, which undercuts, served work
	tr := s.Trace()
	undercut := 0
	for _, v := range tr.Verifications {
		if v.Provider != 2 {
			continue
		}
		undercut++
		// THEN it always settles, at budget minus epsilon
		assert.True(t, v.Settled)
		assert.InDelta(t, v.Budget-0.01, v.Cost(), 1e-9)
	}
	assert.Positive(t, undercut)
	assert.Zero(t, s.Snapshot().Providers[2].SubtasksCancelled)
}

// TestExampleScenarios_Mixed verifies that mixed.yaml expands its sources.
func TestExampleScenarios_Mixed(t *testing.T) {
	cfg := loadExampleScenario(t, "mixed.yaml")

	providers, requestors, err := BuildPopulation(cfg, NewSimulationKey(cfg.Seed, 0).NewSampler())
	require.NoError(t, err)
	assert.Len(t, providers, 100)
	assert.Len(t, requestors, 100)
	assert.Equal(t, LinearInflation(1.0), providers[60].Spec.Behaviour)
	assert.Equal(t, UndercutBudget(0.000001), providers[99].Spec.Behaviour)
	for _, r := range requestors {
		assert.True(t, r.Spec.Repeating)
		assert.GreaterOrEqual(t, len(r.queue[0].Subtasks), 1)
	}
}
