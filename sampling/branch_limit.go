package sampling

import (
	"math/rand"

	cfr "github.com/timpalpant/go-simcfr"
)

// BranchLimitSampler implements cfr.Sampler by drawing K actions (with
// replacement) from the current strategy. Actions that are not drawn are
// followed by a single rollout.
//
// A BranchLimitSampler owns its random number generator and must
// not be shared between goroutines.
type BranchLimitSampler struct {
	k       int
	rng     *rand.Rand
	explore []bool
	p       []float64
}

func NewBranchLimitSampler(k int) *BranchLimitSampler {
	if k < 1 {
		k = 1
	}

	return &BranchLimitSampler{
		k:   k,
		rng: newRand(),
	}
}

// Sample implements cfr.Sampler.
func (bs *BranchLimitSampler) Sample(probs, strategySum []float64) cfr.SamplePlan {
	n := len(probs)
	bs.explore = extendBool(bs.explore, n)
	bs.p = extendFloat(bs.p, n)
	for i, p := range probs {
		bs.explore[i] = false
		bs.p[i] = p
	}

	for j := 0; j < bs.k; j++ {
		i := SampleOne(probs, bs.rng.Float64())
		bs.explore[i] = true
	}

	return cfr.SamplePlan{Explore: bs.explore, Probs: bs.p}
}
