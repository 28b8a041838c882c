package workload

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleMean(d Distribution, s *Sampler, n int) float64 {
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += d.Sample(s)
	}
	return sum / float64(n)
}

func TestFixed_AlwaysReturnsValue(t *testing.T) {
	s := NewSampler(42)
	d := Fixed(100)
	for i := 0; i < 100; i++ {
		require.Equal(t, 100.0, d.Sample(s))
	}
}

func TestChoice_OnlyDeclaredValues(t *testing.T) {
	s := NewSampler(42)
	d := Choice(0.5, 1, 2)
	seen := map[float64]int{}
	for i := 0; i < 3000; i++ {
		seen[d.Sample(s)]++
	}
	assert.Len(t, seen, 3)
	for _, v := range []float64{0.5, 1, 2} {
		assert.InDelta(t, 1000, seen[v], 150, "value %g drawn %d times", v, seen[v])
	}
}

func TestUniform_WithinBoundsAndMean(t *testing.T) {
	s := NewSampler(42)
	d := Uniform(1, 3)
	sum := 0.0
	n := 10000
	for i := 0; i < n; i++ {
		v := d.Sample(s)
		require.GreaterOrEqual(t, v, 1.0)
		require.LessOrEqual(t, v, 3.0)
		sum += v
	}
	mean := sum / float64(n)
	if math.Abs(mean-2)/2 > 0.05 {
		t.Errorf("uniform mean = %.3f, want ≈ 2 (within 5%%)", mean)
	}
}

func TestUniform_DegenerateRange(t *testing.T) {
	s := NewSampler(1)
	assert.Equal(t, 5.0, Uniform(5, 5).Sample(s))
}

func TestNormal_MeanMatchesParam(t *testing.T) {
	mean := sampleMean(Normal(10, 2), NewSampler(42), 10000)
	if math.Abs(mean-10)/10 > 0.05 {
		t.Errorf("normal mean = %.3f, want ≈ 10 (within 5%%)", mean)
	}
}

func TestLognormal_UsesUnderlyingNormalParams(t *testing.T) {
	// GIVEN lognormal(mu=0, sigma=0.5), whose mean is exp(mu + sigma²/2)
	want := math.Exp(0.125)
	mean := sampleMean(Lognormal(0, 0.5), NewSampler(42), 20000)

	// THEN the sample mean is close and every draw is positive
	if math.Abs(mean-want)/want > 0.05 {
		t.Errorf("lognormal mean = %.3f, want ≈ %.3f (within 5%%)", mean, want)
	}
	s := NewSampler(7)
	for i := 0; i < 1000; i++ {
		require.Greater(t, Lognormal(0, 0.5).Sample(s), 0.0)
	}
}

func TestExp_MeanMatchesParam(t *testing.T) {
	mean := sampleMean(Exp(900), NewSampler(42), 20000)
	if math.Abs(mean-900)/900 > 0.05 {
		t.Errorf("exp mean = %.1f, want ≈ 900 (within 5%%)", mean)
	}
}

func TestSample_SameSeedSameSequence(t *testing.T) {
	dists := []Distribution{Choice(1, 2, 3), Uniform(0, 1), Normal(0, 1), Lognormal(1, 1), Exp(3)}
	a, b := NewSampler(99), NewSampler(99)
	for i := 0; i < 200; i++ {
		d := dists[i%len(dists)]
		require.Equal(t, d.Sample(a), d.Sample(b), "draw %d diverged", i)
	}
}

func TestValidate_RejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name string
		dist Distribution
	}{
		{"unknown kind", Distribution{Kind: "pareto", Params: []float64{1}}},
		{"empty choice", Choice()},
		{"fixed arity", Distribution{Kind: KindFixed, Params: []float64{1, 2}}},
		{"uniform inverted", Uniform(3, 1)},
		{"normal negative std", Normal(0, -1)},
		{"lognormal negative std", Lognormal(0, -0.1)},
		{"exp zero mean", Exp(0)},
		{"exp negative mean", Exp(-5)},
		{"nan", Fixed(math.NaN())},
		{"inf", Uniform(0, math.Inf(1))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.dist.Validate())
		})
	}
}

func TestValidate_AcceptsValidParameters(t *testing.T) {
	for _, d := range []Distribution{Fixed(0), Choice(1), Uniform(1, 1), Lognormal(0, 0), Normal(-3, 1), Exp(0.1)} {
		assert.NoError(t, d.Validate(), d.String())
	}
}

func TestPositiveAndNonNegative(t *testing.T) {
	tests := []struct {
		dist        Distribution
		positive    bool
		nonNegative bool
	}{
		{Fixed(1), true, true},
		{Fixed(0), false, true},
		{Choice(0, 1), false, true},
		{Choice(-1, 1), false, false},
		{Uniform(0.5, 2), true, true},
		{Uniform(0, 2), false, true},
		{Lognormal(0, 1), true, true},
		{Exp(1), true, true},
		{Normal(100, 1), false, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.positive, tc.dist.Positive(), "Positive(%s)", tc.dist)
		assert.Equal(t, tc.nonNegative, tc.dist.NonNegative(), "NonNegative(%s)", tc.dist)
	}
}

func TestUnmarshalYAML_TaggedForms(t *testing.T) {
	tests := []struct {
		in   string
		want Distribution
	}{
		{"2.5", Fixed(2.5)},
		{"{fixed: 1.0}", Fixed(1)},
		{"{choice: [0.5, 1]}", Choice(0.5, 1)},
		{"{uniform: [1, 2]}", Uniform(1, 2)},
		{"{lognormal: [0, 1]}", Lognormal(0, 1)},
		{"{normal: [0, 0.5]}", Normal(0, 0.5)},
		{"{exp: 900}", Exp(900)},
		{`{"uniform": [1, 2]}`, Uniform(1, 2)},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			var got Distribution
			require.NoError(t, yaml.Unmarshal([]byte(tc.in), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnmarshalYAML_Malformed(t *testing.T) {
	for _, in := range []string{
		"{gamma: [1, 2]}",
		"{fixed: 1, exp: 2}",
		"{uniform: {min: 1}}",
		"[1, 2]",
		"abc",
	} {
		var got Distribution
		assert.Error(t, yaml.Unmarshal([]byte(in), &got), in)
	}
}
