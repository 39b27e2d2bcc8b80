package cfr

import (
	"reflect"
	"testing"
)

func TestTablePolicy_Merge(t *testing.T) {
	actions := []Action{"fold", "call"}
	a := NewTablePolicy(DiscountParams{})
	b := NewTablePolicy(DiscountParams{})
	a.AddRegret(0, InfoSet{"x"}, actions, []float64{1, -1}, []bool{true, true}, 0, 1)
	b.AddRegret(0, InfoSet{"x"}, actions, []float64{2, 0.5}, []bool{true, true}, 0, 1)
	b.AddRegret(1, InfoSet{"y"}, actions, []float64{-3, 3}, []bool{true, true}, 0, 1)
	a.AddStrategy(1, InfoSet{"y"}, actions, []float64{0.25, 0.75}, 1, 1)
	b.AddStrategy(1, InfoSet{"y"}, actions, []float64{0.5, 0.5}, 2, 1)

	a.Merge(b)
	if got := a.Regrets(0, InfoSet{"x"}, actions); !reflect.DeepEqual(got, []float64{3, -0.5}) {
		t.Errorf("player 0 regrets: got %v, want [3 -0.5]", got)
	}

	if got := a.Regrets(1, InfoSet{"y"}, actions); !reflect.DeepEqual(got, []float64{-3, 3}) {
		t.Errorf("player 1 regrets: got %v, want [-3 3]", got)
	}

	if got := a.StrategySum(1, InfoSet{"y"}, actions); !reflect.DeepEqual(got, []float64{1.25, 1.75}) {
		t.Errorf("player 1 strategy sum: got %v, want [1.25 1.75]", got)
	}

	if got := b.Regrets(0, InfoSet{"x"}, actions); !reflect.DeepEqual(got, []float64{2, 0.5}) {
		t.Errorf("merge modified its argument: got %v", got)
	}

	before := a.Snapshot()
	a.Merge(a)
	if !reflect.DeepEqual(before, a.Snapshot()) {
		t.Errorf("merging a policy into itself changed it")
	}
}
