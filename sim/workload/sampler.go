package workload

import "math/rand"

// Sampler is the seeded random stream a single repetition draws from.
// Every random choice of a repetition goes through one Sampler, which makes the
// whole event trace a function of the seed.
//
// Thread-safety: NOT thread-safe. Owned by one repetition.
type Sampler struct {
	seed int64
	rng  *rand.Rand
}

// NewSampler creates a Sampler seeded with seed.
func NewSampler(seed int64) *Sampler {
	return &Sampler{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the stream was created with.
func (s *Sampler) Seed() int64 {
	return s.seed
}

// Float64 returns a uniform draw in [0, 1).
func (s *Sampler) Float64() float64 {
	return s.rng.Float64()
}

// Intn returns a uniform integer in [0, n).
func (s *Sampler) Intn(n int) int {
	return s.rng.Intn(n)
}

// openFloat64 returns a uniform draw in (0, 1), as required by quantile
// functions that diverge at 0.
func (s *Sampler) openFloat64() float64 {
	for {
		if u := s.rng.Float64(); u > 0 {
			return u
		}
	}
}
