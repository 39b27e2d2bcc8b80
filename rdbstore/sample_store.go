package rdbstore

import (
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	rocksdb "github.com/tecbot/gorocksdb"

	"github.com/timpalpant/go-simcfr/deepcfr"
)

const (
	samplePrefix = 'x'
	countPrefix  = 'n'
)

// SampleStore implements deepcfr.SampleStore with every model's samples
// kept in a RocksDB database. Each model holds at most maxSize samples;
// beyond that, new samples replace old ones by reservoir sampling.
//
// It is functionally equivalent to deepcfr.MemoryStore. In practice, it will
// be somewhat slower but use less memory since all samples are kept on disk.
type SampleStore struct {
	params  Params
	db      *rocksdb.DB
	maxSize int

	mx     sync.Mutex
	counts map[string]int
	rng    *rand.Rand
}

// NewSampleStore returns a new SampleStore with the given max number of samples
// per model (unbounded if maxSize <= 0), backed by a RocksDB database.
func NewSampleStore(params Params, maxSize int) (*SampleStore, error) {
	db, err := params.open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", params.Path)
	}

	return &SampleStore{
		params:  params,
		db:      db,
		maxSize: maxSize,
		counts:  make(map[string]int),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Close implements io.Closer.
func (s *SampleStore) Close() error {
	s.db.Close()
	return nil
}

func nameKey(prefix byte, name string) []byte {
	key := make([]byte, 0, 1+binary.MaxVarintLen64+len(name)+8)
	key = append(key, prefix)
	key = binary.AppendUvarint(key, uint64(len(name)))
	return append(key, name...)
}

func sampleKey(name string, idx int) []byte {
	return binary.BigEndian.AppendUint64(nameKey(samplePrefix, name), uint64(idx))
}

// Must be called with s.mx held.
func (s *SampleStore) count(name string) (int, error) {
	if n, ok := s.counts[name]; ok {
		return n, nil
	}

	result, err := s.db.Get(s.params.ReadOptions, nameKey(countPrefix, name))
	if err != nil {
		return 0, err
	}
	defer result.Free()

	n := 0
	if result.Exists() {
		x, m := binary.Uvarint(result.Data())
		if m <= 0 {
			return 0, errors.Errorf("corrupt sample count for %s", name)
		}

		n = int(x)
	}

	s.counts[name] = n
	return n, nil
}

// AddSamples implements deepcfr.SampleStore.
func (s *SampleStore) AddSamples(name string, samples []deepcfr.Sample) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	n, err := s.count(name)
	if err != nil {
		return err
	}

	wb := rocksdb.NewWriteBatch()
	defer wb.Destroy()
	for _, sample := range samples {
		n++
		idx := n - 1
		if s.maxSize > 0 && n > s.maxSize {
			idx = s.rng.Intn(n)
			if idx >= s.maxSize {
				continue
			}
		}

		value, err := sample.MarshalBinary()
		if err != nil {
			return err
		}

		wb.Put(sampleKey(name, idx), value)
	}

	wb.Put(nameKey(countPrefix, name), binary.AppendUvarint(nil, uint64(n)))
	if err := s.db.Write(s.params.WriteOptions, wb); err != nil {
		return errors.Wrapf(err, "writing samples of %s", name)
	}

	s.counts[name] = n
	return nil
}

// Samples implements deepcfr.SampleStore.
func (s *SampleStore) Samples(name string) ([]deepcfr.Sample, error) {
	var samples []deepcfr.Sample
	err := prefixKeys(s.db, s.params.ReadOptions, nameKey(samplePrefix, name), func(key, value []byte) error {
		var sample deepcfr.Sample
		if err := sample.UnmarshalBinary(value); err != nil {
			return errors.Wrapf(err, "decoding sample of %s", name)
		}

		samples = append(samples, sample)
		return nil
	})

	return samples, err
}

// Len implements deepcfr.SampleStore.
func (s *SampleStore) Len(name string) (int, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	n, err := s.count(name)
	if s.maxSize > 0 && n > s.maxSize {
		n = s.maxSize
	}

	return n, err
}

// Clear implements deepcfr.SampleStore.
func (s *SampleStore) Clear(name string) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	wb := rocksdb.NewWriteBatch()
	defer wb.Destroy()
	err := prefixKeys(s.db, s.params.ReadOptions, nameKey(samplePrefix, name), func(key, value []byte) error {
		wb.Delete(key)
		return nil
	})
	if err != nil {
		return err
	}

	wb.Delete(nameKey(countPrefix, name))
	if err := s.db.Write(s.params.WriteOptions, wb); err != nil {
		return errors.Wrapf(err, "clearing samples of %s", name)
	}

	s.counts[name] = 0
	return nil
}
