package deepcfr

import (
	"context"
	"io"

	cfr "github.com/timpalpant/go-simcfr"
)

// SampleStore is persistent storage for the samples of named models.
// Implementations must be safe for concurrent use, though writers are
// additionally serialized by the write lock shared between Models.
type SampleStore interface {
	// AddSamples appends samples to the named model's collection.
	AddSamples(name string, samples []Sample) error
	// Samples returns all samples stored for the named model.
	Samples(name string) ([]Sample, error)
	// Len returns the number of samples stored for the named model.
	Len(name string) (int, error)
	// Clear removes all samples of the named model.
	Clear(name string) error
	io.Closer
}

// Trainer fits a function approximator to a set of samples.
type Trainer interface {
	Train(ctx context.Context, samples []Sample, epochs int) (Predictor, error)
}

// Predictor is a trained snapshot of a Model. It must be safe
// for concurrent use.
type Predictor interface {
	// Predict returns one score per offered action and a value estimate
	// in [0, 1] for the acting player at the given infoset.
	Predict(infoSet cfr.InfoSet, actions []cfr.Action) (scores []float64, value float64)
}
