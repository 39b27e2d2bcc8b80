package cfr

import (
	"math"
	"math/rand"
	"testing"
)

func TestRegretMatch_SumsToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 1000; trial++ {
		n := 1 + rng.Intn(10)
		regrets := make([]float64, n)
		for i := range regrets {
			regrets[i] = rng.NormFloat64()
		}
		regrets[rng.Intn(n)] = math.Abs(regrets[0]) + 0.1

		probs := RegretMatch(regrets)
		var total float64
		for i, p := range probs {
			total += p
			if regrets[i] <= 0 && p != 0 {
				t.Errorf("non-positive regret %v got probability %v", regrets[i], p)
			}
		}

		if math.Abs(total-1.0) > 1e-9 {
			t.Errorf("probabilities %v sum to %v", probs, total)
		}
	}
}

func TestRegretMatch_ArgmaxFallback(t *testing.T) {
	cases := []struct {
		regrets []float64
		want    []float64
	}{
		{[]float64{0, 0, 0}, []float64{1, 0, 0}},
		{[]float64{-3, -1, -2}, []float64{0, 1, 0}},
		{[]float64{-1, -0.5, -0.5}, []float64{0, 1, 0}},
		{[]float64{-5}, []float64{1}},
	}

	for _, tc := range cases {
		got := RegretMatch(tc.regrets)
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("RegretMatch(%v) = %v, want %v", tc.regrets, got, tc.want)
				break
			}
		}
	}
}

func TestRegretMatch_DoesNotModifyInput(t *testing.T) {
	regrets := []float64{1, -2, 3}
	RegretMatch(regrets)
	if regrets[0] != 1 || regrets[1] != -2 || regrets[2] != 3 {
		t.Errorf("input modified: %v", regrets)
	}
}

func TestNextSampleWeight(t *testing.T) {
	q := 1.0
	for _, p := range []float64{1.0, 0.5, 0.0, 0.001, 2.0, 0.3} {
		next := nextSampleWeight(q, p)
		if next > q {
			t.Errorf("sample weight increased from %v to %v with p = %v", q, next, p)
		}

		if next <= 0 {
			t.Errorf("sample weight became %v with p = %v", next, p)
		}

		q = next
	}

	if got := nextSampleWeight(1.0, 0); got != minSampleProb {
		t.Errorf("expected floor %v, got %v", minSampleProb, got)
	}
}

func BenchmarkRegretMatch(b *testing.B) {
	regrets := []float64{0.5, -1, 2, 0, 3, -0.25}
	dst := make([]float64, len(regrets))
	for i := 0; i < b.N; i++ {
		RegretMatchTo(dst, regrets)
	}
}
