package sampling

import (
	"math/rand"

	cfr "github.com/timpalpant/go-simcfr"
)

// OutcomeSampler implements cfr.Sampler by exploring a single action,
// drawn from the current strategy blended with uniform exploration.
// All other actions are followed by a rollout.
//
// An OutcomeSampler owns its random number generator and must
// not be shared between goroutines.
type OutcomeSampler struct {
	eps     float64
	rng     *rand.Rand
	explore []bool
	p       []float64
}

func NewOutcomeSampler(explorationEps float64) *OutcomeSampler {
	return NewOutcomeSamplerWithRand(explorationEps, newRand())
}

func NewOutcomeSamplerWithRand(explorationEps float64, rng *rand.Rand) *OutcomeSampler {
	return &OutcomeSampler{
		eps: explorationEps,
		rng: rng,
	}
}

// Sample implements cfr.Sampler. The sampling probability of each
// action is its probability in the blended distribution.
func (os *OutcomeSampler) Sample(probs, strategySum []float64) cfr.SamplePlan {
	n := len(probs)
	os.explore = extendBool(os.explore, n)
	os.p = extendFloat(os.p, n)
	u := os.eps / float64(n)
	for i, p := range probs {
		os.explore[i] = false
		os.p[i] = (1-os.eps)*p + u
	}

	selected := SampleOne(os.p, os.rng.Float64())
	os.explore[selected] = true
	return cfr.SamplePlan{Explore: os.explore, Probs: os.p}
}
