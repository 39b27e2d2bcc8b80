package cfr

import (
	"math"
)

// EvaluationMode selects what happens when a traversal reaches the depth limit.
type EvaluationMode int

const (
	// EvaluateRollout continues the game as a single-path rollout.
	EvaluateRollout EvaluationMode = iota
	// EvaluateHeuristic ends the sub-traversal with the value returned
	// by the configured Evaluator.
	EvaluateHeuristic
)

// Params are the configuration options of the traversal engine.
// The zero value is valid: external sampling with no depth limit,
// no exploration and no discounting.
type Params struct {
	// Exploration is blended uniformly into the off player's
	// action distribution before an action is drawn.
	Exploration float64
	// DepthLimit is the number of on-player decisions after which the
	// traversal stops branching. Zero means unlimited.
	DepthLimit int
	// Evaluation is applied once the depth limit is reached.
	Evaluation EvaluationMode
	// ImportanceWeighting divides terminal values and strategy updates
	// by the sample weight of the path.
	ImportanceWeighting bool
	// ReseedBranches reseeds the simulator with a fresh seed before each
	// on-player action, recording the seed in the ledger.
	ReseedBranches bool
	// MaxWaits bounds the number of consecutive Waiting requests.
	MaxWaits int

	Discount DiscountParams
}

// DiscountParams configure regret flooring and discounting.
// The iteration count t used for discounting is the number of
// iterations the player has traversed: iter/2 + 1.
type DiscountParams struct {
	UseRegretMatchingPlus bool    // CFR+
	LinearWeighting       bool    // Linear CFR
	DiscountAlpha         float64 // Discounted CFR
	DiscountBeta          float64 // Discounted CFR
	DiscountGamma         float64 // Discounted CFR
}

// GetDiscountFactors returns the factors applied to previously accumulated
// positive regrets, negative regrets, and strategy sums at player
// iteration t.
func (p DiscountParams) GetDiscountFactors(t int) (positive, negative, sum float64) {
	positive = 1.0
	negative = 1.0
	sum = 1.0

	// See: https://arxiv.org/pdf/1809.04040.pdf
	// Linear CFR is equivalent to weighting the reach prob on each
	// iteration by (t / (t+1)), and this reduces numerical instability.
	if p.LinearWeighting {
		sum = float64(t) / float64(t+1)
	}

	if p.DiscountAlpha != 0 {
		// t^alpha / (t^alpha + 1)
		x := math.Pow(float64(t), p.DiscountAlpha)
		positive = x / (x + 1.0)
	}

	if p.DiscountBeta != 0 {
		// t^beta / (t^beta + 1)
		x := math.Pow(float64(t), p.DiscountBeta)
		negative = x / (x + 1.0)
	}

	if p.DiscountGamma != 0 {
		// (t / (t+1)) ^ gamma
		x := float64(t) / float64(t+1)
		sum = math.Pow(x, p.DiscountGamma)
	}

	return
}

// PlayerIter returns the discounting iteration count for an engine iteration.
func PlayerIter(iter int) int {
	return iter/2 + 1
}
