package sampling

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	cfr "github.com/timpalpant/go-simcfr"
)

// AverageStrategyParams configure average strategy sampling.
// See: https://papers.nips.cc/paper/4569-efficient-monte-carlo-counterfactual-regret-minimization-in-games-with-many-player-actions
type AverageStrategyParams struct {
	// Exploration is the minimum acceptance probability of any action.
	Exploration float64
	// Bonus is added to the accumulated strategy weights so that early
	// iterations explore broadly.
	Bonus float64
	// Threshold scales each action's accumulated strategy weight.
	Threshold float64
	// Bound caps the number of actions accepted at a node. Zero is unbounded.
	Bound int
}

// AverageStrategySampler implements cfr.Sampler. Each action is accepted
// independently with probability
//
//	rho = max(Exploration, (Bonus + Threshold*s(a)) / (Bonus + sum(s)))
//
// where s is the accumulated average strategy at the node. Actions that
// are not accepted are not skipped: they are followed by a single rollout.
// If no action has been accepted by the time the last action is reached,
// the last action is accepted regardless of its roll.
//
// The sampling probability reported for each action, which scales the
// sample weight of its subtree, is min(1, p(a) + Exploration) where p is
// the current strategy.
//
// An AverageStrategySampler owns its random number generator and must
// not be shared between goroutines.
type AverageStrategySampler struct {
	params  AverageStrategyParams
	rng     *rand.Rand
	explore []bool
	p       []float64
}

func NewAverageStrategySampler(params AverageStrategyParams) *AverageStrategySampler {
	return NewAverageStrategySamplerWithRand(params, newRand())
}

// NewAverageStrategySamplerWithRand returns a sampler that draws its
// acceptance rolls from rng.
func NewAverageStrategySamplerWithRand(params AverageStrategyParams, rng *rand.Rand) *AverageStrategySampler {
	return &AverageStrategySampler{
		params: params,
		rng:    rng,
	}
}

// Sample implements cfr.Sampler.
func (as *AverageStrategySampler) Sample(probs, strategySum []float64) cfr.SamplePlan {
	n := len(probs)
	as.explore = extendBool(as.explore, n)
	as.p = extendFloat(as.p, n)

	sSum := floats.Sum(strategySum)
	numTaken := 0
	for i := 0; i < n; i++ {
		rho := computeRho(strategySum[i], sSum, as.params)
		as.p[i] = minF64(probs[i]+as.params.Exploration, 1.0)

		x := as.rng.Float64()
		accept := x < rho
		if as.params.Bound > 0 && numTaken >= as.params.Bound {
			accept = false
		}

		if !accept && i == n-1 && numTaken == 0 {
			accept = true
		}

		as.explore[i] = accept
		if accept {
			numTaken++
		}
	}

	return cfr.SamplePlan{Explore: as.explore, Probs: as.p}
}

func minF64(x, y float64) float64 {
	if x < y {
		return x
	}

	return y
}

func computeRho(s, sSum float64, params AverageStrategyParams) float64 {
	var rho float64
	if params.Bonus+sSum != 0 {
		rho = (params.Bonus + params.Threshold*s) / (params.Bonus + sSum)
	}

	if rho < params.Exploration {
		return params.Exploration
	}

	return rho
}
