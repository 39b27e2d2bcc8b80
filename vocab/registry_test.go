package vocab

import (
	"bytes"
	"sync"
	"testing"
)

func TestRegistry_Sequential(t *testing.T) {
	r := New()
	ids := r.Encode("token", []string{"start", "hand", "7", "hand"})
	want := []int{0, 1, 2, 1}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got ids %v, want %v", ids, want)
		}
	}

	if id := r.ID("action", "call"); id != 0 {
		t.Errorf("kinds should have independent sequences, got id %d", id)
	}

	if _, ok := r.Lookup("action", "fold"); ok {
		t.Error("Lookup assigned an id")
	}

	r.Reset()
	if r.Size("token") != 0 {
		t.Errorf("expected empty registry after reset")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.ID("token", string(rune('a'+i%26)))
			}
		}()
	}
	wg.Wait()

	if n := r.Size("token"); n != 26 {
		t.Errorf("expected 26 distinct ids, got %d", n)
	}
}

func TestRegistry_MarshalTo(t *testing.T) {
	r := New()
	r.Encode("token", []string{"a", "b", "c"})
	var buf bytes.Buffer
	if err := r.MarshalTo(&buf); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if id, ok := loaded.Lookup("token", "c"); !ok || id != 2 {
		t.Errorf("expected id 2 for c, got %d (%v)", id, ok)
	}

	if id := loaded.ID("token", "d"); id != 3 {
		t.Errorf("expected next id 3, got %d", id)
	}
}
