// Package deepcfr implements the model-backed variant of the traversal
// engine's Policy: instead of updating tables in place, every regret and
// strategy update becomes a training Sample for a function approximator,
// and lookups are answered by the most recently trained Predictor.
package deepcfr

import (
	"context"

	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// Policy implements cfr.Policy with one advantage Model and one
// strategy Model per player.
//
// Advantage samples are weighted by the player's iteration, so that the
// trained advantages are the linearly weighted average of the sampled
// instantaneous regrets. Unlike the tabular policy, samples record the
// regret of every offered action, explored or not.
type Policy struct {
	advantage [2]*Model
	strategy  [2]*Model
}

// NewPolicy returns a new Policy over the given models, indexed by player.
func NewPolicy(advantage, strategy [2]*Model) *Policy {
	return &Policy{
		advantage: advantage,
		strategy:  strategy,
	}
}

// Models returns all models of the policy.
func (p *Policy) Models() []*Model {
	return []*Model{p.advantage[0], p.advantage[1], p.strategy[0], p.strategy[1]}
}

// AdvantageModel returns the advantage model of the given player.
func (p *Policy) AdvantageModel(player int) *Model {
	return p.advantage[player]
}

// StrategyModel returns the strategy model of the given player.
func (p *Policy) StrategyModel(player int) *Model {
	return p.strategy[player]
}

// Regrets implements cfr.Policy.
func (p *Policy) Regrets(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	scores, _ := p.advantage[player].Predict(infoSet, actions)
	return scores
}

// StrategySum implements cfr.Policy.
func (p *Policy) StrategySum(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	scores, _ := p.strategy[player].Predict(infoSet, actions)
	for i, x := range scores {
		if x < 0 {
			scores[i] = 0
		}
	}

	return scores
}

// AddRegret implements cfr.Policy.
func (p *Policy) AddRegret(player int, infoSet cfr.InfoSet, actions []cfr.Action, regrets []float64, explored []bool, ev float64, iter int) error {
	w := float64(cfr.PlayerIter(iter))
	s := NewSample(infoSet, actions, regrets, w, ev)
	return errors.Wrap(p.advantage[player].AddSample(s), "adding advantage sample")
}

// AddStrategy implements cfr.Policy.
func (p *Policy) AddStrategy(player int, infoSet cfr.InfoSet, actions []cfr.Action, probs []float64, weight float64, iter int) error {
	w := weight * float64(cfr.PlayerIter(iter))
	s := NewSample(infoSet, actions, probs, w, 0)
	return errors.Wrap(p.strategy[player].AddSample(s), "adding strategy sample")
}

// AverageStrategy returns the average strategy predicted by the given
// player's strategy model. It is uniform if the model has no
// information about the infoset.
func (p *Policy) AverageStrategy(player int, infoSet cfr.InfoSet, actions []cfr.Action) []float64 {
	strat := p.StrategySum(player, infoSet, actions)
	total := 0.0
	for _, x := range strat {
		total += x
	}

	if total <= 0 {
		for i := range strat {
			strat[i] = 1.0 / float64(len(strat))
		}

		return strat
	}

	for i := range strat {
		strat[i] /= total
	}

	return strat
}

// Flush writes the sample cache of every model to the store.
func (p *Policy) Flush() error {
	for _, m := range p.Models() {
		if err := m.Flush(); err != nil {
			return err
		}
	}

	return nil
}

// ValueEvaluator is a cfr.Evaluator that uses the on player's advantage
// model to estimate the value of a depth-limited position.
type ValueEvaluator struct {
	policy *Policy
}

func NewValueEvaluator(policy *Policy) *ValueEvaluator {
	return &ValueEvaluator{policy: policy}
}

// Evaluate implements cfr.Evaluator.
func (v *ValueEvaluator) Evaluate(ctx context.Context, s cfr.Session, turn cfr.Turn, onPlayer int) (float64, error) {
	infoSet, err := s.InfoSet(ctx, onPlayer)
	if err != nil {
		return 0, errors.Wrapf(err, "getting infoset for player %d", onPlayer)
	}

	_, value := v.policy.advantage[onPlayer].Predict(infoSet, turn.Actions)
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}

	return value, nil
}
