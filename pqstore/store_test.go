package pqstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
	"github.com/timpalpant/go-simcfr/deepcfr"
	"github.com/timpalpant/go-simcfr/vocab"
)

var actions = []cfr.Action{"fold", "call", "raise"}

func makeSamples(n int, card string) []deepcfr.Sample {
	samples := make([]deepcfr.Sample, n)
	for i := range samples {
		samples[i] = deepcfr.NewSample(
			cfr.InfoSet{"start", "hand", card},
			actions,
			[]float64{float64(i), 0.5, -float64(i)},
			float64(i+1), 0.25)
	}

	return samples
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first := makeSamples(10, "7")
	second := makeSamples(5, "13")
	if err := store.AddSamples("advantage0", first); err != nil {
		t.Fatal(err)
	}

	if err := store.AddSamples("advantage0", second); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "advantage0", "*.parquet"))
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Errorf("expected one file per batch, got %v", files)
	}

	if n, err := store.Len("advantage0"); err != nil || n != 15 {
		t.Errorf("expected 15 samples, got %d (%v)", n, err)
	}

	samples, err := store.Samples("advantage0")
	if err != nil {
		t.Fatal(err)
	}

	if len(samples) != 15 {
		t.Fatalf("expected 15 samples, got %d", len(samples))
	}

	// Batches are files with random names, so compare as a multiset.
	want := make(map[string]int)
	for _, s := range append(first, second...) {
		buf, _ := s.MarshalBinary()
		want[string(buf)]++
	}

	for _, s := range samples {
		buf, _ := s.MarshalBinary()
		if want[string(buf)] == 0 {
			t.Errorf("unexpected sample %+v", s)
		}
		want[string(buf)]--
	}

	tmp, err := os.ReadDir(filepath.Join(dir, "tmp"))
	if err != nil {
		t.Fatal(err)
	}

	if len(tmp) != 0 {
		t.Errorf("expected no temporary files left, got %d", len(tmp))
	}
}

func TestStore_Clear(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.AddSamples("strategy0", makeSamples(3, "2")); err != nil {
		t.Fatal(err)
	}

	if err := store.AddSamples("strategy1", makeSamples(4, "3")); err != nil {
		t.Fatal(err)
	}

	if err := store.Clear("strategy0"); err != nil {
		t.Fatal(err)
	}

	if n, _ := store.Len("strategy0"); n != 0 {
		t.Errorf("expected no samples after clear, got %d", n)
	}

	if n, _ := store.Len("strategy1"); n != 4 {
		t.Errorf("expected other model untouched, got %d samples", n)
	}
}

func TestStore_InvalidName(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"", "tmp", "../escape", "a/b"} {
		if err := store.AddSamples(name, makeSamples(1, "2")); err == nil {
			t.Errorf("expected error for model name %q", name)
		}
	}
}

func TestStore_TrainModel(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	m := deepcfr.NewModel("advantage1", deepcfr.NewTabularTrainer(vocab.New()), store, &sync.Mutex{}, 4)
	for _, s := range makeSamples(10, "9") {
		if err := m.AddSample(s); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := m.Train(ctx, 1); err != nil {
		t.Fatal(err)
	}

	scores, value := m.Predict(cfr.InfoSet{"start", "hand", "9"}, actions)
	if len(scores) != len(actions) || scores[1] != 0.5 || value != 0.25 {
		t.Errorf("unexpected prediction %v, %v", scores, value)
	}
}
