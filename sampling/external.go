package sampling

import (
	cfr "github.com/timpalpant/go-simcfr"
)

// ExternalSampler implements cfr.Sampler by exploring every on-player action.
type ExternalSampler struct {
	explore []bool
	p       []float64
}

func NewExternalSampler() *ExternalSampler {
	return &ExternalSampler{}
}

// Sample implements cfr.Sampler.
func (es *ExternalSampler) Sample(probs, strategySum []float64) cfr.SamplePlan {
	n := len(probs)
	es.explore = extendBool(es.explore, n)
	es.p = extendFloat(es.p, n)
	for i, p := range probs {
		es.explore[i] = true
		es.p[i] = p
	}

	return cfr.SamplePlan{Explore: es.explore, Probs: es.p}
}
