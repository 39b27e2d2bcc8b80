package cfr

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	eps = 1e-3

	// minSampleProb is the floor applied to an action's sampling
	// probability when it is folded into the sample weight.
	minSampleProb = 0.01
)

// traversal is the state threaded through every recursive call of a
// single traversal. It is passed by value.
type traversal struct {
	iter      int
	onPlayer  int
	offPlayer int
	depth     int
	q         float64
	rollout   bool
}

func newTraversal(iter int) traversal {
	onPlayer := iter % 2
	return traversal{
		iter:      iter,
		onPlayer:  onPlayer,
		offPlayer: 1 - onPlayer,
		q:         1.0,
	}
}

// child returns the traversal state for the child reached by an on-player
// action that was sampled with probability p.
func (t traversal) child(p float64, rollout bool) traversal {
	t.depth++
	t.q = nextSampleWeight(t.q, p)
	t.rollout = rollout
	return t
}

func nextSampleWeight(q, p float64) float64 {
	if p < minSampleProb {
		p = minSampleProb
	}

	if p > 1.0 {
		p = 1.0
	}

	return q * p
}

// TerminalValue rescales a payoff in [-2, 2], reported from the point of
// view of terminalPlayer, to a value in [0, 1] for onPlayer.
func TerminalValue(payoff float64, terminalPlayer, onPlayer int) float64 {
	if terminalPlayer == onPlayer {
		return (payoff + 2) / 4
	}

	return (-payoff + 2) / 4
}

// Engine runs Monte Carlo CFR traversals over games driven by external
// simulators. Since a Session cannot branch, the engine follows the first
// explored action of each on-player decision with the live session and
// reconstructs the decision point for every other action by replaying the
// game's Ledger into a new session.
//
// The player being updated alternates with the iteration: on iteration i,
// player i%2 is the on player and explores actions according to the
// Sampler, while the other player samples a single action from its
// current strategy.
//
// An Engine is not safe for concurrent use; run one Engine per worker.
type Engine struct {
	params     Params
	policy     Policy
	sampler    Sampler
	evaluator  Evaluator
	newSession SessionFactory

	slicePool *floatSlicePool
	rng       *rand.Rand
	stats     TraversalStats
}

// NewEngine returns a new Engine that creates replay sessions with
// newSession, learns into policy, and explores on-player actions
// according to sampler.
func NewEngine(newSession SessionFactory, policy Policy, sampler Sampler, params Params) *Engine {
	return &Engine{
		params:     params,
		policy:     policy,
		sampler:    sampler,
		newSession: newSession,
		slicePool:  &floatSlicePool{},
		rng:        rand.New(rand.NewSource(rand.Int63())),
		stats:      newTraversalStats(),
	}
}

// SetEvaluator sets the Evaluator used when the depth limit is reached
// with EvaluateHeuristic.
func (e *Engine) SetEvaluator(ev Evaluator) {
	e.evaluator = ev
}

// SetRand replaces the engine's random number generator.
func (e *Engine) SetRand(rng *rand.Rand) {
	e.rng = rng
}

// Policy returns the policy the engine learns into.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Stats returns the counters accumulated since the engine was created
// or ResetStats was last called.
func (e *Engine) Stats() TraversalStats {
	return e.stats
}

// ResetStats zeroes the traversal counters.
func (e *Engine) ResetStats() {
	e.stats = newTraversalStats()
}

// Play replays ledger into a new session (starting a fresh game if the
// ledger is empty), runs one traversal for the given iteration, and closes
// the session.
func (e *Engine) Play(ctx context.Context, ledger Ledger, iter int) (ev float64, err error) {
	s, err := Replay(ctx, e.newSession, ledger, e.params.MaxWaits)
	if err != nil {
		return 0, err
	}

	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "closing session")
		}
	}()

	return e.Run(ctx, s, ledger, iter)
}

// Run performs one traversal for the given iteration starting from session s,
// which must be positioned at the point described by ledger. It returns
// the expected value of the game for the on player, in [0, 1].
//
// The caller retains ownership of s.
func (e *Engine) Run(ctx context.Context, s Session, ledger Ledger, iter int) (float64, error) {
	t := newTraversal(iter)
	ev, err := e.traverse(ctx, s, ledger, t)
	if err != nil {
		return 0, errors.Wrapf(err, "iteration %d", iter)
	}

	glog.V(2).Infof("Iteration %d: on player %d ev = %.4f", iter, t.onPlayer, ev)
	return ev, nil
}

// Rollout estimates the value of the position for the on player of the
// given iteration by following a single path, with every player acting
// according to its current strategy. Nothing is learned.
func (e *Engine) Rollout(ctx context.Context, s Session, ledger Ledger, iter int) (float64, error) {
	t := newTraversal(iter)
	t.rollout = true
	ev, err := e.traverse(ctx, s, ledger, t)
	return ev, errors.Wrapf(err, "rollout for iteration %d", iter)
}

func (e *Engine) traverse(ctx context.Context, s Session, ledger Ledger, t traversal) (float64, error) {
	e.stats.visit(t)
	turn, err := NextTurn(ctx, s, e.params.MaxWaits)
	if err != nil {
		return 0, err
	}

	switch turn.Request.Kind {
	case Win:
		e.stats.Terminals++
		return e.scale(TerminalValue(turn.Request.Payoff, turn.Player, t.onPlayer), t), nil
	case Decision:
	default:
		return 0, protocolErrorf("unexpected request kind: %v", turn.Request.Kind)
	}

	if len(turn.Actions) == 0 {
		return 0, errors.Wrapf(ErrProtocol, "player %d: %v", turn.Player, ErrEmptyDistribution)
	}

	switch turn.Player {
	case t.onPlayer:
		return e.handleTraversingPlayerNode(ctx, s, ledger, turn, t)
	case t.offPlayer:
		return e.handleSampledPlayerNode(ctx, s, ledger, turn, t)
	default:
		return 0, protocolErrorf("unknown player %d", turn.Player)
	}
}

// Sample one off-player action according to the exploration-blended
// current strategy and record the strategy for the average.
func (e *Engine) handleSampledPlayerNode(ctx context.Context, s Session, ledger Ledger, turn Turn, t traversal) (float64, error) {
	player := turn.Player
	infoSet, err := s.InfoSet(ctx, player)
	if err != nil {
		return 0, errors.Wrapf(err, "getting infoset for player %d", player)
	}

	probs := RegretMatch(e.policy.Regrets(player, infoSet, turn.Actions))
	exploreProbs := probs
	if e.params.Exploration > 0 {
		exploreProbs = explore(probs, e.params.Exploration)
	}

	selected := sampleOne(exploreProbs, e.rng.Float64())

	if !t.rollout {
		weight := 1.0
		if e.params.ImportanceWeighting {
			weight /= t.q
		}

		if err := e.policy.AddStrategy(player, infoSet, turn.Actions, probs, weight, t.iter); err != nil {
			return 0, errors.Wrapf(err, "adding strategy for player %d", player)
		}
	}

	if err := s.TakeAction(ctx, player, turn.Request, selected); err != nil {
		return 0, errors.Wrapf(err, "player %d taking action %d", player, selected)
	}

	// Off-player turns do not deepen the traversal.
	return e.traverse(ctx, s, ledger.Extend(Entry{Player: player, Action: selected}), t)
}

func (e *Engine) handleTraversingPlayerNode(ctx context.Context, s Session, ledger Ledger, turn Turn, t traversal) (float64, error) {
	if e.params.DepthLimit > 0 && t.depth >= e.params.DepthLimit && !t.rollout {
		switch e.params.Evaluation {
		case EvaluateHeuristic:
			if e.evaluator == nil {
				return 0, errors.New("heuristic evaluation requested without an Evaluator")
			}

			v, err := e.evaluator.Evaluate(ctx, s, turn, t.onPlayer)
			if err != nil {
				return 0, errors.Wrap(err, "evaluating position")
			}

			e.stats.Evaluations++
			return e.scale(v, t), nil
		default:
			t.rollout = true
		}
	}

	player := turn.Player
	infoSet, err := s.InfoSet(ctx, player)
	if err != nil {
		return 0, errors.Wrapf(err, "getting infoset for player %d", player)
	}

	nActions := len(turn.Actions)
	probs := RegretMatch(e.policy.Regrets(player, infoSet, turn.Actions))
	if t.rollout {
		// Follow a single action and learn nothing.
		selected := sampleOne(probs, e.rng.Float64())
		e.stats.RolloutNodes++
		if err := s.TakeAction(ctx, player, turn.Request, selected); err != nil {
			return 0, errors.Wrapf(err, "player %d taking action %d", player, selected)
		}

		entry := Entry{Player: player, Action: selected}
		return e.traverse(ctx, s, ledger.Extend(entry), t.child(probs[selected], true))
	}

	strategySum := e.policy.StrategySum(player, infoSet, turn.Actions)
	plan := e.sampler.Sample(probs, strategySum)
	explored := make([]bool, nActions)
	copy(explored, plan.Explore)
	sampleProbs := e.slicePool.alloc(nActions)
	copy(sampleProbs, plan.Probs)
	defer e.slicePool.free(sampleProbs)

	values := e.slicePool.alloc(nActions)
	defer e.slicePool.free(values)
	for i := 0; i < nActions; i++ {
		rollout := !explored[i]
		v, err := e.traverseAction(ctx, s, ledger, turn, i, t.child(sampleProbs[i], rollout))
		if err != nil {
			return 0, err
		}

		values[i] = v
	}

	ev := floats.Dot(probs, values)
	regrets := e.slicePool.alloc(nActions)
	defer e.slicePool.free(regrets)
	copy(regrets, values)
	floats.AddConst(-ev, regrets)
	if err := e.policy.AddRegret(player, infoSet, turn.Actions, regrets, explored, ev, t.iter); err != nil {
		return 0, errors.Wrapf(err, "adding regret for player %d", player)
	}

	if t.depth == 0 {
		glog.V(3).Infof("player %d at %v: probs=%v values=%v ev=%.4f", player, infoSet, probs, values, ev)
	}

	return ev, nil
}

// traverseAction takes action i from the decision point described by
// ledger and traverses the resulting subtree. The live session is used
// for the first action; every later action replays ledger into a new
// session, which is closed once its subtree has been traversed.
func (e *Engine) traverseAction(ctx context.Context, s Session, ledger Ledger, turn Turn, i int, child traversal) (v float64, err error) {
	req := turn.Request
	if i > 0 {
		e.stats.Replays++
		s, err = Replay(ctx, e.newSession, ledger, e.params.MaxWaits)
		if err != nil {
			return 0, err
		}

		defer func() {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "closing replayed session")
			}
		}()

		replayed, err := NextTurn(ctx, s, e.params.MaxWaits)
		if err != nil {
			return 0, err
		}

		if replayed.Player != turn.Player || len(replayed.Actions) != len(turn.Actions) {
			return 0, protocolErrorf("replay diverged: expected player %d with %d actions, got player %d with %d actions",
				turn.Player, len(turn.Actions), replayed.Player, len(replayed.Actions))
		}

		req = replayed.Request
	}

	entry := Entry{Player: turn.Player, Action: i}
	if e.params.ReseedBranches {
		entry.Seed = e.rng.Int63()
		entry.HasSeed = true
		if err := reseed(ctx, s, entry.Seed); err != nil {
			return 0, err
		}
	}

	if err := s.TakeAction(ctx, turn.Player, req, i); err != nil {
		return 0, errors.Wrapf(err, "player %d taking action %d", turn.Player, i)
	}

	return e.traverse(ctx, s, ledger.Extend(entry), child)
}

func (e *Engine) scale(v float64, t traversal) float64 {
	if e.params.ImportanceWeighting {
		return v / t.q
	}

	return v
}

// explore and sampleOne mirror sampling.Explore and sampling.SampleOne,
// which cannot be imported here without a cycle.
func explore(pv []float64, epsilon float64) []float64 {
	result := make([]float64, len(pv))
	u := epsilon / float64(len(pv))
	for i, p := range pv {
		result[i] = (1-epsilon)*p + u
	}

	return result
}

func sampleOne(pv []float64, x float64) int {
	var cumProb float64
	for i, p := range pv {
		cumProb += p
		if cumProb > x {
			return i
		}
	}

	if cumProb < 1.0-eps { // Leave room for floating point error.
		panic(fmt.Errorf("probability distribution does not sum to 1! x=%v, pv=%v", x, pv))
	}

	return len(pv) - 1
}
