package deepcfr

import (
	"context"
	"encoding/binary"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/vocab"
)

const (
	infoSetKind = "infoset"
	actionKind  = "action"
)

// TabularTrainer is a Trainer that fits the weighted mean of each action's
// targets at each distinct infoset. It does not generalize to unseen
// infosets.
//
// Tokens are encoded through a shared vocab.Registry so that every
// Predictor produced by the trainer agrees on the encoding.
type TabularTrainer struct {
	registry *vocab.Registry
}

func NewTabularTrainer(registry *vocab.Registry) *TabularTrainer {
	return &TabularTrainer{registry: registry}
}

// Train implements Trainer. Every sample is visited once per call, so
// epochs is ignored.
func (t *TabularTrainer) Train(ctx context.Context, samples []Sample, epochs int) (Predictor, error) {
	entries := make(map[string]*TabularEntry)
	for i, s := range samples {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		key := encodeIDs(t.registry.Encode(infoSetKind, s.InfoSet))
		entry, ok := entries[key]
		if !ok {
			entry = newTabularEntry()
			entries[key] = entry
		}

		for j, a := range s.Actions {
			if j >= len(s.Targets) {
				break
			}

			id := t.registry.ID(actionKind, string(a))
			entry.Targets[id] += s.Weight * s.Targets[j]
			entry.Weights[id] += s.Weight
		}

		entry.Value += s.Weight * s.Value
		entry.ValueWeight += s.Weight
	}

	return &TabularPredictor{registry: t.registry, entries: entries}, nil
}

// TabularEntry holds the weighted sums accumulated for one infoset.
type TabularEntry struct {
	Targets     map[int]float64
	Weights     map[int]float64
	Value       float64
	ValueWeight float64
}

func newTabularEntry() *TabularEntry {
	return &TabularEntry{
		Targets: make(map[int]float64),
		Weights: make(map[int]float64),
	}
}

// TabularPredictor is the Predictor produced by TabularTrainer.
// It is immutable and therefore safe for concurrent use.
type TabularPredictor struct {
	registry *vocab.Registry
	entries  map[string]*TabularEntry
}

// Predict implements Predictor. Infosets and actions never seen in
// training predict a score of 0, and unseen infosets a value of 0.5.
func (p *TabularPredictor) Predict(infoSet cfr.InfoSet, actions []cfr.Action) ([]float64, float64) {
	scores := make([]float64, len(actions))
	entry, ok := p.lookup(infoSet)
	if !ok {
		return scores, 0.5
	}

	for i, a := range actions {
		id, ok := p.registry.Lookup(actionKind, string(a))
		if !ok {
			continue
		}

		if w := entry.Weights[id]; w > 0 {
			scores[i] = entry.Targets[id] / w
		}
	}

	value := 0.5
	if entry.ValueWeight > 0 {
		value = entry.Value / entry.ValueWeight
	}

	return scores, value
}

// Len returns the number of distinct infosets in the table.
func (p *TabularPredictor) Len() int {
	return len(p.entries)
}

func (p *TabularPredictor) lookup(infoSet cfr.InfoSet) (*TabularEntry, bool) {
	ids := make([]int, len(infoSet))
	for i, tok := range infoSet {
		id, ok := p.registry.Lookup(infoSetKind, tok)
		if !ok {
			return nil, false
		}

		ids[i] = id
	}

	entry, ok := p.entries[encodeIDs(ids)]
	return entry, ok
}

func encodeIDs(ids []int) string {
	buf := make([]byte, 0, 2*len(ids))
	for _, id := range ids {
		buf = binary.AppendUvarint(buf, uint64(id))
	}

	return string(buf)
}
