package deepcfr

import (
	"bufio"
	"encoding/gob"
	"io"

	"github.com/pkg/errors"

	"github.com/timpalpant/go-simcfr/vocab"
)

// MarshalTo writes the predictor and its token registry to w.
func (p *TabularPredictor) MarshalTo(w io.Writer) error {
	if err := p.registry.MarshalTo(w); err != nil {
		return err
	}

	return gob.NewEncoder(w).Encode(p.entries)
}

// LoadTabularPredictor reads a predictor written with MarshalTo.
// The returned predictor has its own registry, which should be passed
// to NewTabularTrainer to continue training with the same encoding.
func LoadTabularPredictor(r io.Reader) (*TabularPredictor, error) {
	// Both decoders must share one io.ByteReader so that neither
	// buffers past the end of its own stream.
	br := bufio.NewReader(r)
	registry, err := vocab.Load(br)
	if err != nil {
		return nil, err
	}

	var entries map[string]*TabularEntry
	if err := gob.NewDecoder(br).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decoding tabular entries")
	}

	return &TabularPredictor{registry: registry, entries: entries}, nil
}

// Registry returns the token registry used by the predictor.
func (p *TabularPredictor) Registry() *vocab.Registry {
	return p.registry
}
