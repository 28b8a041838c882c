package sim

import (
	"fmt"
	"math"

	"github.com/market-sim/market-sim/sim/workload"
)

// BuildPopulation instantiates the providers and requestors of one repetition.
//
// Construction order defines agent ids: fixed providers, then each provider
// source expanded Count times in config order; likewise for requestors.
// Every subtask's nominal usage is sampled here, before any market
// interaction. Errors are configuration errors; no event has run yet.
func BuildPopulation(cfg *SimulationConfig, s *workload.Sampler) ([]*Provider, []*Requestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var providers []*Provider
	for _, spec := range cfg.Providers {
		providers = append(providers, newProvider(ProviderID(len(providers)), spec))
	}
	for i, src := range cfg.ProviderSources {
		prefix := fmt.Sprintf("provider_sources[%d]", i)
		for n := 0; n < src.Count; n++ {
			spec := ProviderSpec{
				MinPrice:    src.MinPrice.Sample(s),
				UsageFactor: src.UsageFactor.Sample(s),
				Behaviour:   src.Behaviour,
			}
			if err := validateProviderSpec(prefix, &spec); err != nil {
				return nil, nil, fmt.Errorf("sampled provider %d: %w", len(providers), err)
			}
			providers = append(providers, newProvider(ProviderID(len(providers)), spec))
		}
	}

	var requestors []*Requestor
	add := func(spec RequestorSpec) error {
		r := newRequestor(RequestorID(len(requestors)), spec, newDefence(cfg.Defence, RequestorID(len(requestors))))
		for _, ts := range spec.Tasks {
			if err := r.enqueue(ts, s); err != nil {
				return err
			}
		}
		requestors = append(requestors, r)
		return nil
	}
	for _, spec := range cfg.Requestors {
		if err := add(spec); err != nil {
			return nil, nil, err
		}
	}
	for i, src := range cfg.RequestorSources {
		prefix := fmt.Sprintf("requestor_sources[%d]", i)
		for n := 0; n < src.Count; n++ {
			spec := RequestorSpec{
				MaxPrice:     src.MaxPrice.Sample(s),
				BudgetFactor: src.BudgetFactor.Sample(s),
				Tasks:        src.Tasks,
				Repeating:    src.Repeating,
			}
			if src.SubtaskCount != nil {
				v := math.Round(src.SubtaskCount.Sample(s))
				if math.IsNaN(v) || v < 1 || v > MaxSubtaskCount {
					return nil, nil, fmt.Errorf("sampled requestor %d: %s.subtask_count must be in [1, %d], got %g",
						len(requestors), prefix, MaxSubtaskCount, v)
				}
				spec.Tasks = []TaskSpec{{SubtaskCount: int(v), NominalUsage: *src.NominalUsage}}
			}
			if err := validateRequestorSpec(prefix, &spec); err != nil {
				return nil, nil, fmt.Errorf("sampled requestor %d: %w", len(requestors), err)
			}
			if err := add(spec); err != nil {
				return nil, nil, err
			}
		}
	}
	return providers, requestors, nil
}
