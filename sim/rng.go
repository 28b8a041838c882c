package sim

import "github.com/market-sim/market-sim/sim/workload"

// SimulationKey uniquely identifies a reproducible repetition.
// Two repetitions with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical event traces and statistics.
type SimulationKey int64

// NewSimulationKey derives the key of repetition k from the base seed.
func NewSimulationKey(baseSeed int64, repetition int) SimulationKey {
	return SimulationKey(baseSeed + int64(repetition))
}

// NewSampler returns the single random stream the repetition draws from.
// Never returns nil.
func (k SimulationKey) NewSampler() *workload.Sampler {
	return workload.NewSampler(int64(k))
}
