package cfr

import (
	"gonum.org/v1/gonum/floats"

	"github.com/timpalpant/go-simcfr/internal/defaultmap"
)

// TableKey identifies one (infoset, action) entry of a regret or
// strategy table. InfoSet is the content-derived InfoSet.Key().
type TableKey struct {
	InfoSet string
	Action  Action
}

type table = defaultmap.Map[TableKey, float64]

func newTable() *table {
	return defaultmap.New[TableKey, float64](func() float64 { return 0 })
}

// TablePolicy implements Policy with tabular regret and strategy sums,
// one pair of tables per player. Absent entries read as zero.
//
// Tables accumulate across all iterations of a search. Call Reset
// between independent searches.
type TablePolicy struct {
	params      DiscountParams
	regrets     [2]*table
	strategySum [2]*table
}

// NewTablePolicy returns an empty TablePolicy with the given DiscountParams.
func NewTablePolicy(params DiscountParams) *TablePolicy {
	return &TablePolicy{
		params:      params,
		regrets:     [2]*table{newTable(), newTable()},
		strategySum: [2]*table{newTable(), newTable()},
	}
}

// Reset clears all accumulated regrets and strategies.
func (p *TablePolicy) Reset() {
	for player := range p.regrets {
		p.regrets[player].Reset()
		p.strategySum[player].Reset()
	}
}

// Regrets implements Policy.
func (p *TablePolicy) Regrets(player int, infoSet InfoSet, actions []Action) []float64 {
	return lookup(p.regrets[player], infoSet, actions)
}

// StrategySum implements Policy.
func (p *TablePolicy) StrategySum(player int, infoSet InfoSet, actions []Action) []float64 {
	return lookup(p.strategySum[player], infoSet, actions)
}

// AddRegret implements Policy. Previously accumulated regret is discounted
// before the new regret is added; unexplored actions are left untouched.
func (p *TablePolicy) AddRegret(player int, infoSet InfoSet, actions []Action, regrets []float64, explored []bool, ev float64, iter int) error {
	discountPos, discountNeg, _ := p.params.GetDiscountFactors(PlayerIter(iter))
	key := infoSet.Key()
	t := p.regrets[player]
	for i, a := range actions {
		if !explored[i] {
			continue
		}

		r := regrets[i]
		t.Update(TableKey{key, a}, func(old float64) float64 {
			if old > 0 {
				old *= discountPos
			} else if old < 0 {
				old *= discountNeg
			}

			x := old + r
			if p.params.UseRegretMatchingPlus && x < 0 {
				x = 0
			}

			return x
		})
	}

	return nil
}

// AddStrategy implements Policy.
func (p *TablePolicy) AddStrategy(player int, infoSet InfoSet, actions []Action, probs []float64, weight float64, iter int) error {
	_, _, discountSum := p.params.GetDiscountFactors(PlayerIter(iter))
	key := infoSet.Key()
	t := p.strategySum[player]
	for i, a := range actions {
		x := weight * probs[i]
		t.Update(TableKey{key, a}, func(old float64) float64 {
			return discountSum*old + x
		})
	}

	return nil
}

// CurrentStrategy returns the regret-matched strategy for the given player.
func (p *TablePolicy) CurrentStrategy(player int, infoSet InfoSet, actions []Action) []float64 {
	return RegretMatch(p.Regrets(player, infoSet, actions))
}

// AverageStrategy returns the normalized accumulated strategy for the
// given player. It is uniform if nothing has been accumulated.
func (p *TablePolicy) AverageStrategy(player int, infoSet InfoSet, actions []Action) []float64 {
	return normalize(p.StrategySum(player, infoSet, actions))
}

// TableSnapshot is a copy of every entry of a TablePolicy.
type TableSnapshot struct {
	Regrets     [2]map[TableKey]float64
	StrategySum [2]map[TableKey]float64
}

// Snapshot returns a deep copy of all table entries.
func (p *TablePolicy) Snapshot() TableSnapshot {
	var s TableSnapshot
	for player := range p.regrets {
		s.Regrets[player] = p.regrets[player].Copy()
		s.StrategySum[player] = p.strategySum[player].Copy()
	}

	return s
}

// Merge adds every regret and strategy-sum entry of other into p.
// Policies trained by independent workers are combined this way.
func (p *TablePolicy) Merge(other *TablePolicy) {
	if other == p {
		return
	}

	for player := range p.regrets {
		mergeTable(p.regrets[player], other.regrets[player])
		mergeTable(p.strategySum[player], other.strategySum[player])
	}
}

func mergeTable(dst, src *table) {
	for key, x := range src.Copy() {
		x := x
		dst.Update(key, func(old float64) float64 { return old + x })
	}
}

// NumEntries returns the number of (infoset, action) entries with
// accumulated regret for the given player.
func (p *TablePolicy) NumEntries(player int) int {
	return p.regrets[player].Count()
}

func lookup(t *table, infoSet InfoSet, actions []Action) []float64 {
	key := infoSet.Key()
	result := make([]float64, len(actions))
	for i, a := range actions {
		result[i] = t.Get(TableKey{key, a})
	}

	return result
}

func normalize(v []float64) []float64 {
	result := make([]float64, len(v))
	if total := floats.Sum(v); total > 0 {
		floats.ScaleTo(result, 1.0/total, v)
	} else {
		for i := range result {
			result[i] = 1.0 / float64(len(result))
		}
	}

	return result
}
