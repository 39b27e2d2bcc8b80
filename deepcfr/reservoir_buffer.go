package deepcfr

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/pkg/errors"
)

// ReservoirBuffer is a collection of samples held in memory.
// Once the buffer's max size is reached, additional
// samples are added via reservoir sampling, maintaining
// a uniform distribution over all previous values.
// A max size <= 0 means the buffer is unbounded.
//
// It is safe to call AddSample concurrently from multiple goroutines.
type ReservoirBuffer struct {
	mx          sync.Mutex
	maxSize     int
	maxParallel int
	samples     []Sample
	n           int
	rngPool     randPool
}

// NewReservoirBuffer returns an empty buffer with the given max size.
func NewReservoirBuffer(maxSize, maxParallel int) *ReservoirBuffer {
	capacity := maxSize
	if capacity <= 0 {
		capacity = 0
	}

	return &ReservoirBuffer{
		maxSize:     maxSize,
		maxParallel: maxParallel,
		samples:     make([]Sample, 0, capacity),
		rngPool:     newRandPool(2 * maxParallel),
	}
}

func (b *ReservoirBuffer) AddSample(sample Sample) {
	b.mx.Lock()
	if b.maxSize <= 0 || b.n < b.maxSize {
		b.samples = append(b.samples, sample)
		b.n++
		b.mx.Unlock()
		return
	}

	// Rand is slow and at steady-state most of the time we will discard the sample.
	// So we unlock now and if we need to relock to store it; this is faster on average.
	n := b.n
	b.n++
	b.mx.Unlock()

	if m := b.rngPool.Intn(n); m < b.maxSize {
		b.mx.Lock()
		b.samples[m] = sample
		b.mx.Unlock()
	}
}

// Len returns the number of samples held.
func (b *ReservoirBuffer) Len() int {
	b.mx.Lock()
	defer b.mx.Unlock()
	return len(b.samples)
}

// Seen returns the number of samples ever added.
func (b *ReservoirBuffer) Seen() int {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.n
}

// GetSamples returns a copy of the samples held.
func (b *ReservoirBuffer) GetSamples() []Sample {
	b.mx.Lock()
	defer b.mx.Unlock()
	result := make([]Sample, len(b.samples))
	copy(result, b.samples)
	return result
}

// Reset discards all samples.
func (b *ReservoirBuffer) Reset() {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.samples = b.samples[:0]
	b.n = 0
}

// reservoirState is the serialized form of a ReservoirBuffer.
type reservoirState struct {
	MaxSize     int
	MaxParallel int
	Seen        int
	Samples     []Sample
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (b *ReservoirBuffer) MarshalBinary() ([]byte, error) {
	b.mx.Lock()
	state := reservoirState{
		MaxSize:     b.maxSize,
		MaxParallel: b.maxParallel,
		Seen:        b.n,
		Samples:     b.samples,
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(state)
	b.mx.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "encoding reservoir")
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The random
// number pool is rebuilt, so reservoir replacement continues from Seen.
func (b *ReservoirBuffer) UnmarshalBinary(buf []byte) error {
	var state reservoirState
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&state); err != nil {
		return errors.Wrap(err, "decoding reservoir")
	}

	b.mx.Lock()
	defer b.mx.Unlock()
	b.maxSize = state.MaxSize
	b.maxParallel = state.MaxParallel
	b.n = state.Seen
	b.samples = state.Samples
	b.rngPool = newRandPool(2 * b.maxParallel)
	return nil
}
