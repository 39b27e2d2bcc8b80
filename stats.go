package cfr

import (
	"fmt"
	"math"
)

// TraversalStats are counters accumulated by an Engine across traversals.
type TraversalStats struct {
	NodesVisited int64
	Terminals    int64
	// Replays is the number of sessions reconstructed from a Ledger
	// to explore sibling actions.
	Replays int64
	// RolloutNodes is the number of on-player decisions followed
	// by a single-action rollout.
	RolloutNodes int64
	// Evaluations is the number of positions valued by the Evaluator.
	Evaluations int64
	MaxDepth    int
	// MinSampleWeight is the smallest sample weight q seen on any path.
	MinSampleWeight float64
}

func newTraversalStats() TraversalStats {
	return TraversalStats{MinSampleWeight: math.Inf(1)}
}

func (s *TraversalStats) visit(t traversal) {
	s.NodesVisited++
	if t.depth > s.MaxDepth {
		s.MaxDepth = t.depth
	}

	if t.q < s.MinSampleWeight {
		s.MinSampleWeight = t.q
	}
}

// Add accumulates the counters of other into s.
func (s *TraversalStats) Add(other TraversalStats) {
	s.NodesVisited += other.NodesVisited
	s.Terminals += other.Terminals
	s.Replays += other.Replays
	s.RolloutNodes += other.RolloutNodes
	s.Evaluations += other.Evaluations
	if other.MaxDepth > s.MaxDepth {
		s.MaxDepth = other.MaxDepth
	}

	if other.MinSampleWeight < s.MinSampleWeight {
		s.MinSampleWeight = other.MinSampleWeight
	}
}

func (s TraversalStats) String() string {
	return fmt.Sprintf("nodes=%d terminals=%d replays=%d rollouts=%d evals=%d max_depth=%d min_q=%.3g",
		s.NodesVisited, s.Terminals, s.Replays, s.RolloutNodes, s.Evaluations, s.MaxDepth, s.MinSampleWeight)
}
