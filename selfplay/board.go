package selfplay

import (
	"sync"

	"github.com/timpalpant/go-simcfr/deepcfr"
)

// Board is the state shared between workers: the latest trained
// predictor of each model, keyed by model name.
type Board struct {
	mx         sync.RWMutex
	predictors map[string]deepcfr.Predictor
}

func NewBoard() *Board {
	return &Board{predictors: make(map[string]deepcfr.Predictor)}
}

// Publish makes p the latest predictor of the named model.
func (b *Board) Publish(name string, p deepcfr.Predictor) {
	b.mx.Lock()
	b.predictors[name] = p
	b.mx.Unlock()
}

// Get returns the latest predictor of the named model, if any.
func (b *Board) Get(name string) (deepcfr.Predictor, bool) {
	b.mx.RLock()
	defer b.mx.RUnlock()
	p, ok := b.predictors[name]
	return p, ok
}

// Names returns the names of all published models.
func (b *Board) Names() []string {
	b.mx.RLock()
	defer b.mx.RUnlock()
	names := make([]string, 0, len(b.predictors))
	for name := range b.predictors {
		names = append(names, name)
	}

	return names
}
