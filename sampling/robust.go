package sampling

import (
	"math/rand"

	cfr "github.com/timpalpant/go-simcfr"
)

// RobustSampler implements cfr.Sampler by exploring a fixed number of
// actions chosen uniformly at random, without replacement. Every action
// has sampling probability k/n.
//
// A RobustSampler owns its random number generator and must
// not be shared between goroutines.
type RobustSampler struct {
	k       int
	rng     *rand.Rand
	explore []bool
	p       []float64
}

func NewRobustSampler(k int) *RobustSampler {
	return NewRobustSamplerWithRand(k, newRand())
}

func NewRobustSamplerWithRand(k int, rng *rand.Rand) *RobustSampler {
	if k < 1 {
		k = 1
	}

	return &RobustSampler{
		k:   k,
		rng: rng,
	}
}

// Sample implements cfr.Sampler.
func (rs *RobustSampler) Sample(probs, strategySum []float64) cfr.SamplePlan {
	n := len(probs)
	rs.explore = extendBool(rs.explore, n)
	rs.p = extendFloat(rs.p, n)
	if n <= rs.k {
		for i := range rs.p {
			rs.explore[i] = true
			rs.p[i] = 1.0
		}

		return cfr.SamplePlan{Explore: rs.explore, Probs: rs.p}
	}

	q := float64(rs.k) / float64(n)
	for i := range rs.p {
		rs.explore[i] = i < rs.k
		rs.p[i] = q
	}

	rs.rng.Shuffle(n, func(i, j int) {
		rs.explore[i], rs.explore[j] = rs.explore[j], rs.explore[i]
	})

	return cfr.SamplePlan{Explore: rs.explore, Probs: rs.p}
}
