package deepcfr

import (
	"bytes"
	"reflect"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
)

func TestMemoryStore_MarshalTo(t *testing.T) {
	store := NewMemoryStore(4, 2)
	actions := []cfr.Action{"fold", "call"}
	for i := 0; i < 10; i++ {
		s := NewSample(cfr.InfoSet{"a", "b"}, actions, []float64{float64(i), -1}, float64(i+1), 0.5)
		if err := store.AddSamples("advantage0", []Sample{s}); err != nil {
			t.Fatal(err)
		}
	}

	strategy := NewSample(cfr.InfoSet{"c"}, actions, []float64{0.25, 0.75}, 2, 0)
	if err := store.AddSamples("strategy1", []Sample{strategy}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := store.MarshalTo(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadMemoryStore(&buf, 100, 1)
	if err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"advantage0", "strategy1"} {
		want, _ := store.Samples(name)
		got, _ := loaded.Samples(name)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got samples %v, want %v", name, got, want)
		}
	}

	if seen := loaded.buffer("advantage0").Seen(); seen != 10 {
		t.Errorf("expected 10 samples seen, got %d", seen)
	}

	// The reservoir keeps its saved max size.
	loaded.AddSamples("advantage0", []Sample{strategy})
	if n, _ := loaded.Len("advantage0"); n != 4 {
		t.Errorf("expected reservoir to stay at 4 samples, got %d", n)
	}

	if n, _ := loaded.Len("value0"); n != 0 {
		t.Errorf("expected new model to be empty, got %d", n)
	}
}
