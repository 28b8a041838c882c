package sim

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// BehaviourKind enumerates provider usage-reporting strategies.
type BehaviourKind string

const (
	// BehaviourRegular reports nominal usage unchanged.
	BehaviourRegular BehaviourKind = "regular"
	// BehaviourLinearInflation reports nominal·(1+factor).
	BehaviourLinearInflation BehaviourKind = "linear_usage_inflation"
	// BehaviourUndercutBudget reports the usage that costs exactly budget−epsilon.
	BehaviourUndercutBudget BehaviourKind = "undercut_budget"
)

// behaviourAliases maps accepted scenario spellings to kinds.
var behaviourAliases = map[string]BehaviourKind{
	"regular":                BehaviourRegular,
	"linear_usage_inflation": BehaviourLinearInflation,
	"linear_inflation":       BehaviourLinearInflation,
	"undercut_budget":        BehaviourUndercutBudget,
}

// Behaviour is a closed tagged variant. Param is the inflation factor for
// LinearInflation and epsilon for UndercutBudget; Regular ignores it.
// The zero value behaves as Regular.
type Behaviour struct {
	Kind  BehaviourKind
	Param float64
}

func Regular() Behaviour { return Behaviour{Kind: BehaviourRegular} }

func LinearInflation(factor float64) Behaviour {
	return Behaviour{Kind: BehaviourLinearInflation, Param: factor}
}

func UndercutBudget(epsilon float64) Behaviour {
	return Behaviour{Kind: BehaviourUndercutBudget, Param: epsilon}
}

func (b Behaviour) kind() BehaviourKind {
	if b.Kind == "" {
		return BehaviourRegular
	}
	return b.Kind
}

// Validate rejects unknown kinds and out-of-domain parameters.
func (b Behaviour) Validate() error {
	if math.IsNaN(b.Param) || math.IsInf(b.Param, 0) {
		return fmt.Errorf("%s: parameter must be a finite number, got %f", b.kind(), b.Param)
	}
	switch b.kind() {
	case BehaviourRegular:
		return nil
	case BehaviourLinearInflation:
		if b.Param < 0 {
			return fmt.Errorf("linear_usage_inflation: factor must be non-negative, got %f", b.Param)
		}
	case BehaviourUndercutBudget:
		if b.Param < 0 {
			return fmt.Errorf("undercut_budget: epsilon must be non-negative, got %f", b.Param)
		}
	default:
		return fmt.Errorf("unknown behaviour %q; valid: regular, linear_usage_inflation, undercut_budget", b.Kind)
	}
	return nil
}

// ReportUsage returns the usage a provider with behaviour b reports for a
// subtask. It never alters the nominal usage itself.
func ReportUsage(b Behaviour, nominal, price, budget float64) float64 {
	switch b.kind() {
	case BehaviourRegular:
		return nominal
	case BehaviourLinearInflation:
		return nominal * (1 + b.Param)
	case BehaviourUndercutBudget:
		// Any usage is free at price 0.
		if price == 0 {
			return nominal
		}
		target := budget - b.Param
		r := math.Max(0, target/price)
		// The division can round up by an ulp; Verify must still see cost <= target.
		for r > 0 && r*price > target {
			r = math.Nextafter(r, 0)
		}
		return r
	default:
		panic(fmt.Sprintf("ReportUsage: unknown behaviour %q", b.Kind))
	}
}

func (b Behaviour) String() string {
	switch b.kind() {
	case BehaviourRegular:
		return string(BehaviourRegular)
	default:
		return fmt.Sprintf("%s(%g)", b.kind(), b.Param)
	}
}

// UnmarshalYAML accepts a bare kind name (regular) or a single-key mapping
// from kind to its parameter, e.g. {linear_usage_inflation: 1.5}.
func (b *Behaviour) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		kind, ok := behaviourAliases[node.Value]
		if !ok {
			return fmt.Errorf("line %d: unknown behaviour %q", node.Line, node.Value)
		}
		if kind != BehaviourRegular {
			return fmt.Errorf("line %d: behaviour %q requires a parameter", node.Line, node.Value)
		}
		*b = Regular()
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: behaviour must have exactly one kind key", node.Line)
		}
		kind, ok := behaviourAliases[node.Content[0].Value]
		if !ok {
			return fmt.Errorf("line %d: unknown behaviour %q", node.Line, node.Content[0].Value)
		}
		var param float64
		if kind != BehaviourRegular || node.Content[1].Tag != "!!null" {
			if err := node.Content[1].Decode(&param); err != nil {
				return fmt.Errorf("line %d: %s: %w", node.Line, kind, err)
			}
		}
		*b = Behaviour{Kind: kind, Param: param}
		return nil
	default:
		return fmt.Errorf("line %d: behaviour must be a name or a mapping", node.Line)
	}
}
