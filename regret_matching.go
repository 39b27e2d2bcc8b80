package cfr

import (
	"gonum.org/v1/gonum/floats"
)

// RegretMatch converts a vector of regrets (or predicted advantages) into a
// probability distribution: each action is played in proportion to its
// positive regret. If no regret is positive, all probability is placed on
// the action with the largest raw regret, ties going to the lowest index.
//
// The input is not modified. RegretMatch panics if regrets is empty.
func RegretMatch(regrets []float64) []float64 {
	result := make([]float64, len(regrets))
	RegretMatchTo(result, regrets)
	return result
}

// RegretMatchTo is like RegretMatch but writes the distribution into dst,
// which must have the same length as regrets.
func RegretMatchTo(dst, regrets []float64) {
	if len(regrets) == 0 {
		panic(ErrEmptyDistribution)
	}

	if len(dst) != len(regrets) {
		panic("regret matching: length mismatch")
	}

	var total float64
	for i, r := range regrets {
		if r > 0 {
			dst[i] = r
			total += r
		} else {
			dst[i] = 0
		}
	}

	if total > 0 {
		floats.Scale(1.0/total, dst)
		return
	}

	for i := range dst {
		dst[i] = 0
	}

	dst[floats.MaxIdx(regrets)] = 1.0
}
