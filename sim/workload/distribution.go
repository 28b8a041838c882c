package workload

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

// Kind names a distribution family.
type Kind string

const (
	KindFixed     Kind = "fixed"
	KindChoice    Kind = "choice"
	KindUniform   Kind = "uniform"
	KindLognormal Kind = "lognormal"
	KindNormal    Kind = "normal"
	KindExp       Kind = "exp"
)

// paramCounts is the number of parameters each kind takes; -1 means "one or more".
var paramCounts = map[Kind]int{
	KindFixed:     1,
	KindChoice:    -1,
	KindUniform:   2,
	KindLognormal: 2,
	KindNormal:    2,
	KindExp:       1,
}

// Distribution is a scalar parameter distribution.
//
// Params layout per kind:
//   - fixed:     [value]
//   - choice:    [v0, v1, ...] (uniformly chosen)
//   - uniform:   [min, max]
//   - lognormal: [mean, std] of the underlying normal
//   - normal:    [mean, std]
//   - exp:       [mean]
type Distribution struct {
	Kind   Kind
	Params []float64
}

func Fixed(v float64) Distribution { return Distribution{Kind: KindFixed, Params: []float64{v}} }

func Choice(values ...float64) Distribution {
	return Distribution{Kind: KindChoice, Params: append([]float64(nil), values...)}
}

func Uniform(min, max float64) Distribution {
	return Distribution{Kind: KindUniform, Params: []float64{min, max}}
}

func Lognormal(mean, std float64) Distribution {
	return Distribution{Kind: KindLognormal, Params: []float64{mean, std}}
}

func Normal(mean, std float64) Distribution {
	return Distribution{Kind: KindNormal, Params: []float64{mean, std}}
}

func Exp(mean float64) Distribution { return Distribution{Kind: KindExp, Params: []float64{mean}} }

// IsZero reports whether d was never set (e.g. an omitted optional YAML field).
func (d Distribution) IsZero() bool {
	return d.Kind == "" && len(d.Params) == 0
}

// Validate checks that the parameters lie in the analytically valid domain.
func (d Distribution) Validate() error {
	want, ok := paramCounts[d.Kind]
	if !ok {
		return fmt.Errorf("unknown distribution kind %q; valid: fixed, choice, uniform, lognormal, normal, exp", d.Kind)
	}
	if want == -1 && len(d.Params) == 0 {
		return fmt.Errorf("%s: at least one value required", d.Kind)
	}
	if want > 0 && len(d.Params) != want {
		return fmt.Errorf("%s: expected %d parameter(s), got %d", d.Kind, want, len(d.Params))
	}
	for i, p := range d.Params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%s: parameter %d must be a finite number, got %f", d.Kind, i, p)
		}
	}
	switch d.Kind {
	case KindUniform:
		if d.Params[0] > d.Params[1] {
			return fmt.Errorf("uniform: min %f greater than max %f", d.Params[0], d.Params[1])
		}
	case KindLognormal, KindNormal:
		if d.Params[1] < 0 {
			return fmt.Errorf("%s: std must be non-negative, got %f", d.Kind, d.Params[1])
		}
	case KindExp:
		if d.Params[0] <= 0 {
			return fmt.Errorf("exp: mean must be positive, got %f", d.Params[0])
		}
	}
	return nil
}

// lowerBound returns the infimum of the support.
func (d Distribution) lowerBound() float64 {
	switch d.Kind {
	case KindFixed, KindUniform:
		return d.Params[0]
	case KindChoice:
		lo := math.Inf(1)
		for _, v := range d.Params {
			lo = math.Min(lo, v)
		}
		return lo
	case KindLognormal, KindExp:
		return 0
	default:
		return math.Inf(-1)
	}
}

// Positive reports whether every draw is strictly positive. Assumes Validate passed.
func (d Distribution) Positive() bool {
	switch d.Kind {
	case KindLognormal, KindExp:
		return true
	default:
		return d.lowerBound() > 0
	}
}

// NonNegative reports whether every draw is >= 0. Assumes Validate passed.
func (d Distribution) NonNegative() bool {
	return d.lowerBound() >= 0
}

// Sample draws one value. Continuous kinds use inverse-CDF sampling on a
// uniform draw from s, so the sequence depends only on s's seed.
func (d Distribution) Sample(s *Sampler) float64 {
	switch d.Kind {
	case KindFixed:
		return d.Params[0]
	case KindChoice:
		return d.Params[s.Intn(len(d.Params))]
	case KindUniform:
		if d.Params[0] == d.Params[1] {
			return d.Params[0]
		}
		return distuv.Uniform{Min: d.Params[0], Max: d.Params[1]}.Quantile(s.Float64())
	case KindLognormal:
		return distuv.LogNormal{Mu: d.Params[0], Sigma: d.Params[1]}.Quantile(s.openFloat64())
	case KindNormal:
		return distuv.Normal{Mu: d.Params[0], Sigma: d.Params[1]}.Quantile(s.openFloat64())
	case KindExp:
		return distuv.Exponential{Rate: 1 / d.Params[0]}.Quantile(s.openFloat64())
	default:
		panic(fmt.Sprintf("sampling unknown distribution kind %q", d.Kind))
	}
}

func (d Distribution) String() string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		parts[i] = fmt.Sprintf("%g", p)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, strings.Join(parts, ", "))
}

// UnmarshalYAML accepts a bare number (fixed) or a single-key mapping from
// kind to parameters, e.g. {uniform: [1, 2]} or {exp: 900}.
func (d *Distribution) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("line %d: distribution: %w", node.Line, err)
		}
		*d = Fixed(v)
		return nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: distribution must have exactly one kind key", node.Line)
		}
		kind := Kind(strings.ToLower(node.Content[0].Value))
		if _, ok := paramCounts[kind]; !ok {
			return fmt.Errorf("line %d: unknown distribution kind %q", node.Line, node.Content[0].Value)
		}
		val := node.Content[1]
		var params []float64
		switch val.Kind {
		case yaml.ScalarNode:
			var v float64
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("line %d: %s: %w", val.Line, kind, err)
			}
			params = []float64{v}
		case yaml.SequenceNode:
			if err := val.Decode(&params); err != nil {
				return fmt.Errorf("line %d: %s: %w", val.Line, kind, err)
			}
		default:
			return fmt.Errorf("line %d: %s: parameters must be a number or a list", val.Line, kind)
		}
		*d = Distribution{Kind: kind, Params: params}
		return nil
	default:
		return fmt.Errorf("line %d: distribution must be a number or a mapping", node.Line)
	}
}
