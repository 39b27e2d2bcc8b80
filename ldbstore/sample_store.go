package ldbstore

import (
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/timpalpant/go-simcfr/deepcfr"
)

const (
	samplePrefix = 'x'
	countPrefix  = 'n'
)

// SampleStore implements deepcfr.SampleStore with every model's samples
// kept in a LevelDB database. Each model holds at most maxSize samples;
// beyond that, new samples replace old ones by reservoir sampling.
//
// It is functionally equivalent to deepcfr.MemoryStore. In practice, it will
// be somewhat slower but use less memory since all samples are kept on disk.
type SampleStore struct {
	path    string
	maxSize int

	db    *leveldb.DB
	rOpts *opt.ReadOptions
	wOpts *opt.WriteOptions

	mx     sync.Mutex
	counts map[string]int
	rng    *rand.Rand
}

// NewSampleStore returns a new SampleStore with the given max number of samples
// per model (unbounded if maxSize <= 0), backed by a LevelDB database at
// the given directory path. Samples already in the database are kept.
func NewSampleStore(path string, opts *opt.Options, maxSize int) (*SampleStore, error) {
	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	return &SampleStore{
		path:    path,
		maxSize: maxSize,
		db:      db,
		counts:  make(map[string]int),
		rng:     rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

// Close implements io.Closer.
func (s *SampleStore) Close() error {
	return s.db.Close()
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

// count returns the number of samples ever added to the named model.
// Must be called with s.mx held.
func (s *SampleStore) count(name string) (int, error) {
	if n, ok := s.counts[name]; ok {
		return n, nil
	}

	buf, err := s.db.Get(nameKey(countPrefix, name), s.rOpts)
	if err == leveldb.ErrNotFound {
		s.counts[name] = 0
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	n, m := binary.Uvarint(buf)
	if m <= 0 {
		return 0, errors.Errorf("corrupt sample count for %s", name)
	}

	s.counts[name] = int(n)
	return int(n), nil
}

// AddSamples implements deepcfr.SampleStore.
func (s *SampleStore) AddSamples(name string, samples []deepcfr.Sample) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	n, err := s.count(name)
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
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

		batch.Put(sampleKey(name, idx), value)
	}

	batch.Put(nameKey(countPrefix, name), binary.AppendUvarint(nil, uint64(n)))
	if err := s.db.Write(batch, s.wOpts); err != nil {
		return errors.Wrapf(err, "writing samples of %s", name)
	}

	s.counts[name] = n
	return nil
}

// Samples implements deepcfr.SampleStore.
func (s *SampleStore) Samples(name string) ([]deepcfr.Sample, error) {
	iter := s.db.NewIterator(util.BytesPrefix(nameKey(samplePrefix, name)), s.rOpts)
	defer iter.Release()

	var samples []deepcfr.Sample
	for iter.Next() {
		var sample deepcfr.Sample
		if err := sample.UnmarshalBinary(iter.Value()); err != nil {
			return nil, errors.Wrapf(err, "decoding sample of %s", name)
		}

		samples = append(samples, sample)
	}

	return samples, iter.Error()
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

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix(nameKey(samplePrefix, name)), s.rOpts)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}

	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	batch.Delete(nameKey(countPrefix, name))
	if err := s.db.Write(batch, s.wOpts); err != nil {
		return errors.Wrapf(err, "clearing samples of %s", name)
	}

	s.counts[name] = 0
	return nil
}
