package deepcfr

import (
	"encoding/gob"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is a SampleStore that keeps each model's samples in a
// ReservoirBuffer in memory.
type MemoryStore struct {
	maxSize     int
	maxParallel int

	mx      sync.Mutex
	buffers map[string]*ReservoirBuffer
}

// NewMemoryStore returns a MemoryStore that keeps at most maxSize samples
// per model (unbounded if maxSize <= 0).
func NewMemoryStore(maxSize, maxParallel int) *MemoryStore {
	return &MemoryStore{
		maxSize:     maxSize,
		maxParallel: maxParallel,
		buffers:     make(map[string]*ReservoirBuffer),
	}
}

func (m *MemoryStore) buffer(name string) *ReservoirBuffer {
	m.mx.Lock()
	defer m.mx.Unlock()
	b, ok := m.buffers[name]
	if !ok {
		b = NewReservoirBuffer(m.maxSize, m.maxParallel)
		m.buffers[name] = b
	}

	return b
}

// AddSamples implements SampleStore.
func (m *MemoryStore) AddSamples(name string, samples []Sample) error {
	b := m.buffer(name)
	for _, s := range samples {
		b.AddSample(s)
	}

	return nil
}

// Samples implements SampleStore.
func (m *MemoryStore) Samples(name string) ([]Sample, error) {
	return m.buffer(name).GetSamples(), nil
}

// Len implements SampleStore.
func (m *MemoryStore) Len(name string) (int, error) {
	return m.buffer(name).Len(), nil
}

// Clear implements SampleStore.
func (m *MemoryStore) Clear(name string) error {
	m.buffer(name).Reset()
	return nil
}

// Close implements io.Closer.
func (m *MemoryStore) Close() error {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.buffers = make(map[string]*ReservoirBuffer)
	return nil
}

// MarshalTo writes every model's reservoir to w.
func (m *MemoryStore) MarshalTo(w io.Writer) error {
	m.mx.Lock()
	buffers := make(map[string]*ReservoirBuffer, len(m.buffers))
	for name, b := range m.buffers {
		buffers[name] = b
	}
	m.mx.Unlock()

	return gob.NewEncoder(w).Encode(buffers)
}

// LoadMemoryStore reads a store written with MarshalTo. Loaded reservoirs
// keep the max size they were saved with; maxSize and maxParallel apply
// to models first seen after loading.
func LoadMemoryStore(r io.Reader, maxSize, maxParallel int) (*MemoryStore, error) {
	var buffers map[string]*ReservoirBuffer
	if err := gob.NewDecoder(r).Decode(&buffers); err != nil {
		return nil, errors.Wrap(err, "decoding sample store")
	}

	m := NewMemoryStore(maxSize, maxParallel)
	for name, b := range buffers {
		m.buffers[name] = b
	}

	return m, nil
}
