// Package pqstore implements a deepcfr.SampleStore that archives each
// flushed batch of samples as a zstd-compressed Parquet file, so that
// collected training data can also be consumed by external trainers.
package pqstore

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/deepcfr"
)

const schemaVersion = "cfr_sample_v1"

// SampleRow is the Parquet schema of one stored sample.
type SampleRow struct {
	InfoSet []string  `parquet:"infoset"`
	Actions []string  `parquet:"actions"`
	Targets []float64 `parquet:"targets"`
	Weight  float64   `parquet:"weight"`
	Value   float64   `parquet:"value"`
}

func toRow(s deepcfr.Sample) SampleRow {
	actions := make([]string, len(s.Actions))
	for i, a := range s.Actions {
		actions[i] = string(a)
	}

	return SampleRow{
		InfoSet: []string(s.InfoSet),
		Actions: actions,
		Targets: s.Targets,
		Weight:  s.Weight,
		Value:   s.Value,
	}
}

func fromRow(row SampleRow) deepcfr.Sample {
	actions := make([]cfr.Action, len(row.Actions))
	for i, a := range row.Actions {
		actions[i] = cfr.Action(a)
	}

	// The reader may reuse row buffers, so NewSample copies them.
	return deepcfr.NewSample(cfr.InfoSet(row.InfoSet), actions, row.Targets, row.Weight, row.Value)
}

// Store keeps the samples of each model in its own directory,
// one Parquet file per call to AddSamples. Files are written to a
// temporary directory and renamed into place, so readers never observe
// a partially written batch. The store is append-only: it keeps every
// sample it is given.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating store directory")
	}

	return &Store{dir: dir}, nil
}

func (s *Store) modelDir(name string) (string, error) {
	if name == "" || name == "tmp" || strings.ContainsAny(name, `/\.`) {
		return "", errors.Errorf("invalid model name %q", name)
	}

	return filepath.Join(s.dir, name), nil
}

func (s *Store) files(name string) ([]string, error) {
	dir, err := s.modelDir(name)
	if err != nil {
		return nil, err
	}

	return filepath.Glob(filepath.Join(dir, "batch_*.parquet"))
}

// AddSamples implements deepcfr.SampleStore.
func (s *Store) AddSamples(name string, samples []deepcfr.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	dir, err := s.modelDir(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", name)
	}

	rows := make([]SampleRow, len(samples))
	for i, sample := range samples {
		rows[i] = toRow(sample)
	}

	filename := "batch_" + uuid.NewString() + ".parquet"
	tmpPath := filepath.Join(s.dir, "tmp", filename)
	finalPath := filepath.Join(dir, filename)
	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.KeyValueMetadata("schema", schemaVersion),
		parquet.KeyValueMetadata("model", name),
	); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "writing parquet")
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "renaming parquet")
	}

	glog.V(2).Infof("Wrote %d samples of %s to %s", len(rows), name, finalPath)
	return nil
}

func readFile(path string, fn func(rows []SampleRow)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[SampleRow](f)
	defer reader.Close()

	buf := make([]SampleRow, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}

		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "reading %s", path)
		}
	}
}

// Samples implements deepcfr.SampleStore.
func (s *Store) Samples(name string) ([]deepcfr.Sample, error) {
	files, err := s.files(name)
	if err != nil {
		return nil, err
	}

	var samples []deepcfr.Sample
	for _, path := range files {
		err := readFile(path, func(rows []SampleRow) {
			for _, row := range rows {
				samples = append(samples, fromRow(row))
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return samples, nil
}

// Len implements deepcfr.SampleStore.
func (s *Store) Len(name string) (int, error) {
	files, err := s.files(name)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return 0, err
		}

		reader := parquet.NewGenericReader[SampleRow](f)
		n += int(reader.NumRows())
		reader.Close()
		f.Close()
	}

	return n, nil
}

// Clear implements deepcfr.SampleStore.
func (s *Store) Clear(name string) error {
	files, err := s.files(name)
	if err != nil {
		return err
	}

	for _, path := range files {
		if err := os.Remove(path); err != nil {
			return err
		}
	}

	return nil
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return nil
}
