package grid

import (
	"errors"
	"math"
	"testing"
)

func TestLogGrid(t *testing.T) {
	g, err := New(0.1, 100, 2000, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Len() != 2000 {
		t.Fatalf("len = %d, want 2000", g.Len())
	}
	if math.Abs(g.Hz[0]-0.1) > 1e-12 || math.Abs(g.Hz[1999]-100) > 1e-9 {
		t.Errorf("endpoints = %g, %g, want 0.1, 100", g.Hz[0], g.Hz[1999])
	}
	for i := 1; i < g.Len(); i++ {
		if g.Hz[i] <= g.Hz[i-1] {
			t.Fatalf("not strictly ascending at %d: %g <= %g", i, g.Hz[i], g.Hz[i-1])
		}
	}
	// Log spacing: constant ratio between neighbors.
	r0 := g.Hz[1] / g.Hz[0]
	rMid := g.Hz[1001] / g.Hz[1000]
	if math.Abs(r0-rMid) > 1e-9 {
		t.Errorf("ratio drifts: %g vs %g", r0, rMid)
	}
	for i, f := range g.Hz {
		if g.Omega[i] != 2*math.Pi*f {
			t.Fatalf("omega[%d] mismatch", i)
		}
	}
}

func TestLinearGrid(t *testing.T) {
	g, err := New(1, 5, 5, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{1, 2, 3, 4, 5}
	for i := range want {
		if math.Abs(g.Hz[i]-want[i]) > 1e-12 {
			t.Errorf("Hz[%d] = %g, want %g", i, g.Hz[i], want[i])
		}
	}
}

func TestInvalidRanges(t *testing.T) {
	cases := []struct {
		name       string
		min, max   float64
		n          int
		log        bool
	}{
		{"zero min", 0, 100, 100, true},
		{"negative min", -1, 100, 100, true},
		{"inverted", 100, 0.1, 100, true},
		{"equal bounds", 1, 1, 100, true},
		{"one point", 0.1, 100, 1, true},
	}
	for _, tc := range cases {
		if _, err := New(tc.min, tc.max, tc.n, tc.log); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("%s: err = %v, want ErrInvalidRange", tc.name, err)
		}
	}
}
