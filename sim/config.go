package sim

import (
	"fmt"
	"math"

	"github.com/market-sim/market-sim/sim/workload"
)

// DefaultRetryInterval is the delay, in simulated seconds, before a requestor
// readvertises subtasks that found no provider.
const DefaultRetryInterval = 60.0

// MaxSubtaskCount bounds the number of subtasks in one task.
const MaxSubtaskCount = 1 << 20

// SimulationConfig describes one scenario. It is immutable for the lifetime of a
// repetition; each repetition builds its own population from it.
type SimulationConfig struct {
	Seed     int64   `yaml:"seed"`
	Duration float64 `yaml:"duration"`

	// RetryInterval is the readvertisement delay; 0 selects DefaultRetryInterval.
	RetryInterval float64 `yaml:"retry_interval,omitempty"`
	// AdvertisementDelay is sampled before every new task is advertised; nil means immediate.
	AdvertisementDelay *workload.Distribution `yaml:"advertisement_delay,omitempty"`
	Defence            DefenceType            `yaml:"defence,omitempty"`

	Providers        []ProviderSpec    `yaml:"providers,omitempty"`
	ProviderSources  []ProviderSource  `yaml:"provider_sources,omitempty"`
	Requestors       []RequestorSpec   `yaml:"requestors,omitempty"`
	RequestorSources []RequestorSource `yaml:"requestor_sources,omitempty"`
}

// ProviderSpec is a concrete provider.
type ProviderSpec struct {
	MinPrice    float64   `yaml:"min_price"`
	UsageFactor float64   `yaml:"usage_factor"`
	Behaviour   Behaviour `yaml:"behaviour,omitempty"`
}

// RequestorSpec is a concrete requestor with its ordered task list.
type RequestorSpec struct {
	MaxPrice     float64    `yaml:"max_price"`
	BudgetFactor float64    `yaml:"budget_factor"`
	Tasks        []TaskSpec `yaml:"tasks"`
	Repeating    bool       `yaml:"repeating,omitempty"`
}

// TaskSpec describes a task as a number of subtasks whose nominal usage
// (CPU-seconds) is drawn independently per subtask.
type TaskSpec struct {
	SubtaskCount int                   `yaml:"subtask_count"`
	NominalUsage workload.Distribution `yaml:"nominal_usage"`
}

// ProviderSource expands into Count providers with sampled parameters.
type ProviderSource struct {
	Count       int                   `yaml:"count"`
	MinPrice    workload.Distribution `yaml:"min_price"`
	UsageFactor workload.Distribution `yaml:"usage_factor"`
	Behaviour   Behaviour             `yaml:"behaviour,omitempty"`
}

// RequestorSource expands into Count requestors with sampled parameters.
// Either Tasks is given, or SubtaskCount and NominalUsage describe a single
// task whose subtask count is sampled (rounded) per requestor.
type RequestorSource struct {
	Count        int                    `yaml:"count"`
	MaxPrice     workload.Distribution  `yaml:"max_price"`
	BudgetFactor workload.Distribution  `yaml:"budget_factor"`
	Tasks        []TaskSpec             `yaml:"tasks,omitempty"`
	SubtaskCount *workload.Distribution `yaml:"subtask_count,omitempty"`
	NominalUsage *workload.Distribution `yaml:"nominal_usage,omitempty"`
	Repeating    bool                   `yaml:"repeating,omitempty"`
}

// retryInterval returns the effective readvertisement delay.
func (c *SimulationConfig) retryInterval() float64 {
	if c.RetryInterval == 0 {
		return DefaultRetryInterval
	}
	return c.RetryInterval
}

// Validate checks the configuration before any population is built.
// Sampled values are checked again by BuildPopulation.
func (c *SimulationConfig) Validate() error {
	if err := validateFinitePositive("duration", c.Duration); err != nil {
		return err
	}
	if c.RetryInterval != 0 {
		if err := validateFinitePositive("retry_interval", c.RetryInterval); err != nil {
			return err
		}
	}
	if c.AdvertisementDelay != nil {
		if err := validateDistribution("advertisement_delay", *c.AdvertisementDelay); err != nil {
			return err
		}
		if !c.AdvertisementDelay.NonNegative() {
			return fmt.Errorf("advertisement_delay: %s can produce negative delays", c.AdvertisementDelay)
		}
	}
	if !IsValidDefenceType(string(c.Defence)) {
		return fmt.Errorf("unknown defence %q; valid: none, lgrola, ctasks", c.Defence)
	}
	if len(c.Providers)+len(c.ProviderSources) == 0 {
		return fmt.Errorf("at least one provider or provider source required")
	}
	if len(c.Requestors)+len(c.RequestorSources) == 0 {
		return fmt.Errorf("at least one requestor or requestor source required")
	}
	for i := range c.Providers {
		if err := validateProviderSpec(fmt.Sprintf("providers[%d]", i), &c.Providers[i]); err != nil {
			return err
		}
	}
	for i := range c.ProviderSources {
		if err := validateProviderSource(fmt.Sprintf("provider_sources[%d]", i), &c.ProviderSources[i]); err != nil {
			return err
		}
	}
	for i := range c.Requestors {
		if err := validateRequestorSpec(fmt.Sprintf("requestors[%d]", i), &c.Requestors[i]); err != nil {
			return err
		}
	}
	for i := range c.RequestorSources {
		if err := validateRequestorSource(fmt.Sprintf("requestor_sources[%d]", i), &c.RequestorSources[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateProviderSpec(prefix string, p *ProviderSpec) error {
	if err := validateFiniteNonNegative(prefix+".min_price", p.MinPrice); err != nil {
		return err
	}
	if err := validateFinitePositive(prefix+".usage_factor", p.UsageFactor); err != nil {
		return err
	}
	if err := p.Behaviour.Validate(); err != nil {
		return fmt.Errorf("%s.behaviour: %w", prefix, err)
	}
	return nil
}

func validateProviderSource(prefix string, p *ProviderSource) error {
	if p.Count <= 0 {
		return fmt.Errorf("%s.count must be positive, got %d", prefix, p.Count)
	}
	if err := validateDistribution(prefix+".min_price", p.MinPrice); err != nil {
		return err
	}
	if err := validateDistribution(prefix+".usage_factor", p.UsageFactor); err != nil {
		return err
	}
	if err := p.Behaviour.Validate(); err != nil {
		return fmt.Errorf("%s.behaviour: %w", prefix, err)
	}
	return nil
}

func validateRequestorSpec(prefix string, r *RequestorSpec) error {
	if err := validateFiniteNonNegative(prefix+".max_price", r.MaxPrice); err != nil {
		return err
	}
	if err := validateFiniteNonNegative(prefix+".budget_factor", r.BudgetFactor); err != nil {
		return err
	}
	return validateTasks(prefix, r.Tasks, r.Repeating)
}

func validateRequestorSource(prefix string, r *RequestorSource) error {
	if r.Count <= 0 {
		return fmt.Errorf("%s.count must be positive, got %d", prefix, r.Count)
	}
	if err := validateDistribution(prefix+".max_price", r.MaxPrice); err != nil {
		return err
	}
	if err := validateDistribution(prefix+".budget_factor", r.BudgetFactor); err != nil {
		return err
	}
	sampled := r.SubtaskCount != nil || r.NominalUsage != nil
	switch {
	case sampled && len(r.Tasks) > 0:
		return fmt.Errorf("%s: tasks and subtask_count/nominal_usage are mutually exclusive", prefix)
	case sampled:
		if r.SubtaskCount == nil || r.NominalUsage == nil {
			return fmt.Errorf("%s: subtask_count and nominal_usage must be given together", prefix)
		}
		if err := validateDistribution(prefix+".subtask_count", *r.SubtaskCount); err != nil {
			return err
		}
		return validateUsage(prefix+".nominal_usage", *r.NominalUsage, r.Repeating)
	default:
		return validateTasks(prefix, r.Tasks, r.Repeating)
	}
}

func validateTasks(prefix string, tasks []TaskSpec, repeating bool) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%s.tasks: at least one task required", prefix)
	}
	for i, t := range tasks {
		p := fmt.Sprintf("%s.tasks[%d]", prefix, i)
		if t.SubtaskCount <= 0 {
			return fmt.Errorf("%s.subtask_count must be positive, got %d", p, t.SubtaskCount)
		}
		if t.SubtaskCount > MaxSubtaskCount {
			return fmt.Errorf("%s.subtask_count must be at most %d, got %d", p, MaxSubtaskCount, t.SubtaskCount)
		}
		if err := validateUsage(p+".nominal_usage", t.NominalUsage, repeating); err != nil {
			return err
		}
	}
	return nil
}

// validateUsage additionally requires strictly positive support for repeating
// tasks, because their usage is sampled mid-run where a bad draw cannot be
// reported as a configuration error.
func validateUsage(name string, d workload.Distribution, repeating bool) error {
	if err := validateDistribution(name, d); err != nil {
		return err
	}
	if repeating && !d.Positive() {
		return fmt.Errorf("%s: %s can produce non-positive usage, not allowed for repeating tasks", name, d)
	}
	return nil
}

func validateDistribution(name string, d workload.Distribution) error {
	if d.IsZero() {
		return fmt.Errorf("%s: distribution required", name)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateFiniteNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
