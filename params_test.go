package cfr

import (
	"math"
	"testing"
)

func TestGetDiscountFactors(t *testing.T) {
	pos, neg, sum := DiscountParams{}.GetDiscountFactors(10)
	if pos != 1 || neg != 1 || sum != 1 {
		t.Errorf("expected no discounting, got %v %v %v", pos, neg, sum)
	}

	pos, neg, sum = DiscountParams{
		DiscountAlpha: 1.5,
		DiscountBeta:  0,
		DiscountGamma: 2,
	}.GetDiscountFactors(4)

	wantPos := math.Pow(4, 1.5) / (math.Pow(4, 1.5) + 1)
	if math.Abs(pos-wantPos) > 1e-12 {
		t.Errorf("positive discount: got %v, want %v", pos, wantPos)
	}

	if neg != 1 {
		t.Errorf("negative discount: got %v, want 1", neg)
	}

	if math.Abs(sum-0.64) > 1e-12 {
		t.Errorf("strategy discount: got %v, want 0.64", sum)
	}
}

func TestTablePolicy_Discounting(t *testing.T) {
	p := NewTablePolicy(DiscountParams{DiscountAlpha: 1, UseRegretMatchingPlus: true})
	is := InfoSet{"x"}
	actions := []Action{"a", "b"}
	explored := []bool{true, true}

	p.AddRegret(0, is, actions, []float64{1, -1}, explored, 0, 0)
	got := p.Regrets(0, is, actions)
	if got[0] != 1 || got[1] != 0 {
		t.Errorf("after first update: %v", got)
	}

	// Player iteration 2 (engine iteration 2): previous positive regret
	// is discounted by 2/3 before adding.
	p.AddRegret(0, is, actions, []float64{1, 0}, explored, 0, 2)
	got = p.Regrets(0, is, actions)
	if math.Abs(got[0]-(1.0*2.0/3.0+1)) > 1e-12 {
		t.Errorf("after discounted update: %v", got)
	}

	p.AddRegret(0, is, actions, []float64{5, 5}, []bool{false, true}, 0, 2)
	got = p.Regrets(0, is, actions)
	if math.Abs(got[0]-(1.0*2.0/3.0+1)) > 1e-12 || got[1] != 5 {
		t.Errorf("unexplored action updated: %v", got)
	}

	if other := p.Regrets(1, is, actions); other[0] != 0 || other[1] != 0 {
		t.Errorf("player tables not independent: %v", other)
	}
}

func TestTablePolicy_AverageStrategy(t *testing.T) {
	p := NewTablePolicy(DiscountParams{})
	is := InfoSet{"x"}
	actions := []Action{"a", "b", "c"}

	uniform := p.AverageStrategy(1, is, actions)
	for _, x := range uniform {
		if math.Abs(x-1.0/3) > 1e-12 {
			t.Errorf("expected uniform strategy before any updates, got %v", uniform)
		}
	}

	p.AddStrategy(1, is, actions, []float64{1, 0, 0}, 1, 1)
	p.AddStrategy(1, is, actions, []float64{0, 1, 0}, 3, 3)
	avg := p.AverageStrategy(1, is, actions)
	want := []float64{0.25, 0.75, 0}
	for i := range want {
		if math.Abs(avg[i]-want[i]) > 1e-12 {
			t.Errorf("average strategy: got %v, want %v", avg, want)
		}
	}

	p.Reset()
	if p.NumEntries(1) != 0 || p.StrategySum(1, is, actions)[1] != 0 {
		t.Error("reset did not clear the tables")
	}
}
