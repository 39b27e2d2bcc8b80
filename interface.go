package cfr

import (
	"context"
)

// RequestKind is the kind of request a game session makes of the acting player.
type RequestKind int

const (
	// Waiting means the simulator has nothing for the agent yet; ask again.
	Waiting RequestKind = iota
	// Win means the game is over. Request.Payoff holds the result.
	Win
	// Decision means the acting player must choose one of Turn.Actions.
	Decision
)

var requestKindStr = [...]string{
	"waiting",
	"win",
	"decision",
}

func (k RequestKind) String() string {
	if k < 0 || int(k) >= len(requestKindStr) {
		return "unknown"
	}

	return requestKindStr[k]
}

// Request is the tagged request attached to a Turn.
type Request struct {
	Kind RequestKind
	// Payoff is the terminal payoff in [-2, 2] from the point of view
	// of Turn.Player. Only meaningful for Kind == Win.
	Payoff float64
	// State is an opaque, simulator-defined description of the decision.
	// It is passed back unchanged to TakeAction.
	State []byte
}

// Action is an opaque action label offered by a Decision request.
type Action string

// Turn is one request from a game session: who must act, what is
// being asked, and (for decisions) which actions are offered.
type Turn struct {
	Player  int
	Request Request
	Actions []Action
}

// Session is a handle to one live game instance driven by an external,
// single-path simulator. A Session cannot be forked or rewound: branching
// is done by replaying a Ledger into a fresh Session.
//
// Implementations must be deterministic: the same seed followed by the
// same sequence of actions must produce the same sequence of requests.
// A Session is used by one goroutine at a time.
type Session interface {
	// Start begins the game. It must be called exactly once before Turn.
	Start(ctx context.Context) error
	// Turn blocks until the simulator has a request for one of the players.
	Turn(ctx context.Context) (Turn, error)
	// TakeAction applies the action with the given index in the offered
	// actions of req on behalf of player.
	TakeAction(ctx context.Context, player int, req Request, action int) error
	// InfoSet returns the information set of the given player at the
	// current point in the game.
	InfoSet(ctx context.Context, player int) (InfoSet, error)
	// Close drains any outstanding simulator output and releases the session.
	Close() error
}

// Reseeder is implemented by sessions whose random number generator can
// be reset mid-game.
type Reseeder interface {
	Reseed(ctx context.Context, seed int64) error
}

// SessionFactory creates a new, un-started Session for the given seed.
type SessionFactory func(seed int64) (Session, error)

// Policy stores the learned quantities the traversal engine consults
// and updates at each decision point. Slices passed to a Policy are
// reused by the engine and must be copied if retained.
type Policy interface {
	// Regrets returns the current regret (or advantage) estimates for the
	// given player at the given infoset, one per offered action.
	Regrets(player int, infoSet InfoSet, actions []Action) []float64
	// StrategySum returns the accumulated average-strategy weights
	// for the given player at the given infoset, one per offered action.
	StrategySum(player int, infoSet InfoSet, actions []Action) []float64
	// AddRegret records instantaneous regrets for the given player.
	// Only entries with explored[i] == true carry a real learning signal.
	// ev is the node's expected value and iter the engine iteration.
	AddRegret(player int, infoSet InfoSet, actions []Action, regrets []float64, explored []bool, ev float64, iter int) error
	// AddStrategy records one sample of the player's current strategy
	// with the given weight.
	AddStrategy(player int, infoSet InfoSet, actions []Action, probs []float64, weight float64, iter int) error
}

// SamplePlan is the result of a Sampler: which of the offered actions are
// explored by full traversal, and the per-action sampling probability
// used to compute the sample weight of each child.
type SamplePlan struct {
	// Explore[i] is false for actions that are followed by a rollout only.
	Explore []bool
	// Probs[i] is the probability used in the child's sample weight.
	Probs []float64
}

// Sampler selects the subset of actions the on player explores at a
// decision point.
type Sampler interface {
	// Sample returns a plan given the regret-matched strategy and the
	// accumulated strategy sums at this decision point. The returned
	// plan must not be retained by the Sampler.
	Sample(probs, strategySum []float64) SamplePlan
}

// Evaluator estimates the value of a position for the on player, in [0, 1].
// It is used in place of further traversal once the depth limit is reached.
type Evaluator interface {
	Evaluate(ctx context.Context, session Session, turn Turn, onPlayer int) (float64, error)
}
