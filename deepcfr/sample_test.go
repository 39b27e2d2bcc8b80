package deepcfr

import (
	"reflect"
	"testing"

	cfr "github.com/timpalpant/go-simcfr"
)

func TestSampleMarshalBinary(t *testing.T) {
	s := NewSample(
		cfr.InfoSet{"start", "hand", "12", "0raise"},
		[]cfr.Action{"fold", "call", "raise"},
		[]float64{-0.25, 0.125, 0.5},
		17, 0.625)

	buf, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var decoded Sample
	if err := decoded.UnmarshalBinary(buf); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(decoded, s) {
		t.Errorf("expected %+v, got %+v", s, decoded)
	}
}

func TestSampleUnmarshalCorrupt(t *testing.T) {
	s := NewSample(cfr.InfoSet{"a"}, []cfr.Action{"x", "y"}, []float64{1, 2}, 1, 0.5)
	buf, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var decoded Sample
	if err := decoded.UnmarshalBinary(buf[:3]); err == nil {
		t.Error("expected error decoding truncated sample")
	}

	if err := decoded.UnmarshalBinary(buf[2:]); err == nil {
		t.Error("expected error decoding sample with missing header")
	}
}

func TestNewSampleCopies(t *testing.T) {
	is := cfr.InfoSet{"a", "b"}
	targets := []float64{1, 2}
	s := NewSample(is, []cfr.Action{"x", "y"}, targets, 1, 0)
	is[0] = "z"
	targets[0] = 5
	if s.InfoSet[0] != "a" || s.Targets[0] != 1 {
		t.Errorf("sample aliases its inputs: %+v", s)
	}
}
