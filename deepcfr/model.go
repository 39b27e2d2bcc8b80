package deepcfr

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
)

// Model collects samples for one named function approximator, flushes
// them to a SampleStore, and trains new Predictors from the stored samples.
//
// Samples are first buffered in a local cache. The cache is written to the
// store once it holds more than cacheSize samples, or when Flush is called.
// Writes to the store hold writeLock, which should be shared by every Model
// writing to the same store.
//
// A Model is safe for concurrent use.
type Model struct {
	name      string
	trainer   Trainer
	store     SampleStore
	writeLock sync.Locker
	cacheSize int

	mx        sync.Mutex
	cache     []Sample
	predictor Predictor
}

// NewModel returns a new Model with the given name.
// A cacheSize <= 0 disables automatic flushing.
func NewModel(name string, trainer Trainer, store SampleStore, writeLock sync.Locker, cacheSize int) *Model {
	return &Model{
		name:      name,
		trainer:   trainer,
		store:     store,
		writeLock: writeLock,
		cacheSize: cacheSize,
	}
}

func (m *Model) Name() string {
	return m.name
}

// AddSample buffers a sample, flushing the cache to the store if it
// has grown past its capacity.
func (m *Model) AddSample(s Sample) error {
	m.mx.Lock()
	m.cache = append(m.cache, s)
	full := m.cacheSize > 0 && len(m.cache) > m.cacheSize
	m.mx.Unlock()

	if full {
		return m.Flush()
	}

	return nil
}

// CacheLen returns the number of samples not yet flushed to the store.
func (m *Model) CacheLen() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.cache)
}

// Flush writes all cached samples to the store under the write lock
// and empties the cache.
func (m *Model) Flush() error {
	m.mx.Lock()
	cache := m.cache
	m.cache = nil
	m.mx.Unlock()

	if len(cache) == 0 {
		return nil
	}

	m.writeLock.Lock()
	defer m.writeLock.Unlock()
	glog.V(3).Infof("[%s] Flushing %d samples", m.name, len(cache))
	return errors.Wrapf(m.store.AddSamples(m.name, cache), "flushing %d samples of %s", len(cache), m.name)
}

// Train flushes the cache and fits a new Predictor to all stored samples.
// If no samples have been stored, the current Predictor is kept and returned.
func (m *Model) Train(ctx context.Context, epochs int) (Predictor, error) {
	if err := m.Flush(); err != nil {
		return nil, err
	}

	m.writeLock.Lock()
	samples, err := m.store.Samples(m.name)
	m.writeLock.Unlock()
	if err != nil {
		return nil, errors.Wrapf(err, "loading samples of %s", m.name)
	}

	if len(samples) == 0 {
		glog.V(1).Infof("[%s] No samples collected, skipping training", m.name)
		return m.Predictor(), nil
	}

	glog.V(1).Infof("[%s] Training on %d samples for %d epochs", m.name, len(samples), epochs)
	p, err := m.trainer.Train(ctx, samples, epochs)
	if err != nil {
		return nil, errors.Wrapf(err, "training %s", m.name)
	}

	m.SetPredictor(p)
	return p, nil
}

// Predictor returns the most recently trained or set Predictor, or nil.
func (m *Model) Predictor() Predictor {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.predictor
}

func (m *Model) SetPredictor(p Predictor) {
	m.mx.Lock()
	m.predictor = p
	m.mx.Unlock()
}

// Predict uses the current Predictor. An untrained model predicts zero
// scores and a neutral value of 0.5.
func (m *Model) Predict(infoSet cfr.InfoSet, actions []cfr.Action) ([]float64, float64) {
	p := m.Predictor()
	if p == nil {
		return make([]float64, len(actions)), 0.5
	}

	return p.Predict(infoSet, actions)
}
