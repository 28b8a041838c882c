package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/market-sim/market-sim/sim/trace"
	"github.com/market-sim/market-sim/sim/workload"
)

// singlePairConfig is one provider and one requestor with a single one-subtask task.
func singlePairConfig(provider ProviderSpec, maxPrice float64, usage float64) *SimulationConfig {
	return &SimulationConfig{
		Seed:      1,
		Duration:  10000,
		Providers: []ProviderSpec{provider},
		Requestors: []RequestorSpec{{
			MaxPrice:     maxPrice,
			BudgetFactor: 1.0,
			Tasks:        []TaskSpec{{SubtaskCount: 1, NominalUsage: workload.Fixed(usage)}},
		}},
	}
}

// mixedConfig is a randomized population exercising every behaviour, sampled
// sources, repeating and one-shot requestors and advertisement delays.
func mixedConfig(defence DefenceType) *SimulationConfig {
	delay := workload.Exp(30)
	subtasks := workload.Uniform(1, 6)
	usage := workload.Lognormal(3, 0.5)
	return &SimulationConfig{
		Seed:               7,
		Duration:           3000,
		AdvertisementDelay: &delay,
		Defence:            defence,
		Providers: []ProviderSpec{
			{MinPrice: 0.8, UsageFactor: 2, Behaviour: UndercutBudget(0.01)},
		},
		ProviderSources: []ProviderSource{
			{Count: 4, MinPrice: workload.Uniform(0.2, 1.2), UsageFactor: workload.Choice(0.5, 1, 2)},
			{Count: 2, MinPrice: workload.Uniform(0.2, 1.2), UsageFactor: workload.Uniform(0.5, 2), Behaviour: LinearInflation(0.5)},
			{Count: 2, MinPrice: workload.Uniform(0.2, 1.2), UsageFactor: workload.Exp(1), Behaviour: UndercutBudget(0.05)},
		},
		Requestors: []RequestorSpec{{
			MaxPrice:     1.0,
			BudgetFactor: 1.2,
			Tasks: []TaskSpec{
				{SubtaskCount: 4, NominalUsage: workload.Uniform(10, 50)},
				{SubtaskCount: 2, NominalUsage: workload.Fixed(20)},
			},
		}},
		RequestorSources: []RequestorSource{
			{
				Count:        3,
				MaxPrice:     workload.Uniform(0.3, 1.5),
				BudgetFactor: workload.Uniform(0.8, 1.5),
				Tasks:        []TaskSpec{{SubtaskCount: 3, NominalUsage: workload.Exp(40)}},
				Repeating:    true,
			},
			{
				Count:        2,
				MaxPrice:     workload.Uniform(0.3, 1.5),
				BudgetFactor: workload.Fixed(1),
				SubtaskCount: &subtasks,
				NominalUsage: &usage,
				Repeating:    true,
			},
		},
	}
}

// runTraced builds and runs repetition k of cfg with full tracing.
func runTraced(t *testing.T, cfg *SimulationConfig, k int) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, NewSimulationKey(cfg.Seed, k), trace.TraceLevelEvents)
	require.NoError(t, err)
	s.Run()
	return s
}
