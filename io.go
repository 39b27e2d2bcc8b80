package cfr

import (
	"encoding/gob"
	"io"

	"github.com/pkg/errors"
)

type tableEntry struct {
	InfoSet string
	Action  Action
	Value   float64
}

// LoadTablePolicy reads a TablePolicy previously written with MarshalTo.
func LoadTablePolicy(r io.Reader) (*TablePolicy, error) {
	dec := gob.NewDecoder(r)
	var params DiscountParams
	if err := dec.Decode(&params); err != nil {
		return nil, errors.Wrap(err, "decoding discount params")
	}

	p := NewTablePolicy(params)
	for player := range p.regrets {
		for _, t := range []*table{p.regrets[player], p.strategySum[player]} {
			var entries []tableEntry
			if err := dec.Decode(&entries); err != nil {
				return nil, errors.Wrapf(err, "decoding tables for player %d", player)
			}

			for _, e := range entries {
				t.Set(TableKey{e.InfoSet, e.Action}, e.Value)
			}
		}
	}

	return p, nil
}

// MarshalTo writes the policy's parameters and tables to w.
func (p *TablePolicy) MarshalTo(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(p.params); err != nil {
		return err
	}

	for player := range p.regrets {
		for _, t := range []*table{p.regrets[player], p.strategySum[player]} {
			entries := make([]tableEntry, 0, t.Count())
			t.Foreach(func(k TableKey, v float64) bool {
				entries = append(entries, tableEntry{k.InfoSet, k.Action, v})
				return true
			})

			if err := enc.Encode(entries); err != nil {
				return err
			}
		}
	}

	return nil
}
