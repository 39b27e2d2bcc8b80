// Package sampling implements the action sampling policies used by the
// traversal engine to decide which on-player actions are explored.
package sampling

import (
	"fmt"
	"math/rand"
)

const tol = 1e-3

// SampleOne returns the first element i of pv where sum(pv[:i+1]) > x.
func SampleOne(pv []float64, x float64) int {
	var cumProb float64
	for i, p := range pv {
		cumProb += p
		if cumProb > x {
			return i
		}
	}

	if cumProb < 1.0-tol { // Leave room for floating point error.
		panic(fmt.Errorf("probability distribution does not sum to 1! x=%v, pv=%v", x, pv))
	}

	return len(pv) - 1
}

// Uniform returns the uniform distribution over n actions.
func Uniform(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = 1.0 / float64(n)
	}

	return result
}

// Explore blends a distribution with uniform exploration:
// (1-epsilon)*pv + epsilon/n.
func Explore(pv []float64, epsilon float64) []float64 {
	result := make([]float64, len(pv))
	u := epsilon / float64(len(pv))
	for i, p := range pv {
		result[i] = (1-epsilon)*p + u
	}

	return result
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(rand.Int63()))
}

func extendBool(v []bool, n int) []bool {
	if n > len(v) {
		return append(v, make([]bool, n-len(v))...)
	}

	return v[:n]
}

func extendFloat(v []float64, n int) []float64 {
	if n > len(v) {
		return append(v, make([]float64, n-len(v))...)
	}

	return v[:n]
}
