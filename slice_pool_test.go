package cfr

import (
	"testing"
)

func TestSlicePoolZeroes(t *testing.T) {
	pool := &floatSlicePool{}
	v := pool.alloc(4)
	for i := range v {
		v[i] = float64(i + 1)
	}
	pool.free(v)

	w := pool.alloc(3)
	if len(w) != 3 {
		t.Fatalf("expected length 3, got %d", len(w))
	}

	for i, x := range w {
		if x != 0 {
			t.Errorf("reused slice not zeroed at %d: %v", i, x)
		}
	}

	var nilPool *floatSlicePool
	if u := nilPool.alloc(2); len(u) != 2 {
		t.Errorf("nil pool returned slice of length %d", len(u))
	}
}

// BenchmarkAllocFree-24              	200000000	         7.79 ns/op
func BenchmarkAllocFree(b *testing.B) {
	pool := &floatSlicePool{}
	for i := 0; i < b.N; i++ {
		v := pool.alloc(10)
		pool.free(v)
	}
}
