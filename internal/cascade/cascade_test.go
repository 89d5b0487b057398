package cascade

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/history"
)

func mustInstance(t *testing.T, name string, overrides map[string]float64) *block.Instance {
	t.Helper()
	in, err := block.Instantiate(name, overrides)
	if err != nil {
		t.Fatalf("instantiate %s: %v", name, err)
	}
	return in
}

func testGrid() []float64 {
	w := make([]float64, 40)
	for i := range w {
		w[i] = 2 * math.Pi * math.Pow(10, -1+3*float64(i)/39) // 0.1..100 Hz
	}
	return w
}

func TestEvaluateEmptyIsUnity(t *testing.T) {
	w := testGrid()
	h, err := New().Evaluate(w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range h {
		if v != 1 {
			t.Fatalf("H[%d] = %v, want 1+0i", i, v)
		}
	}
}

func TestEvaluateGainOnly(t *testing.T) {
	c := New()
	if err := c.Append(mustInstance(t, "gain", map[string]float64{"K": 2})); err != nil {
		t.Fatalf("append: %v", err)
	}
	h, err := c.Evaluate(testGrid())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range h {
		if v != 2 {
			t.Errorf("H[%d] = %v, want 2+0i", i, v)
		}
		if cmplx.Phase(v) != 0 {
			t.Errorf("phase[%d] = %g, want 0", i, cmplx.Phase(v))
		}
	}
}

func TestEvaluateEnabledSubsets(t *testing.T) {
	w := testGrid()
	c := New()
	for _, in := range []*block.Instance{
		mustInstance(t, "gain", map[string]float64{"K": 2}),
		mustInstance(t, "leadlag", nil),
		mustInstance(t, "sos", nil),
	} {
		if err := c.Append(in); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	for mask := 0; mask < 8; mask++ {
		for i := 0; i < 3; i++ {
			if err := c.SetEnabled(i, mask&(1<<i) != 0); err != nil {
				t.Fatalf("mask %d: set enabled %d: %v", mask, i, err)
			}
		}
		got, err := c.Evaluate(w)
		if err != nil {
			t.Fatalf("mask %d: evaluate: %v", mask, err)
		}

		want := make([]complex128, len(w))
		for i := range want {
			want[i] = 1
		}
		for i, in := range c.Blocks() {
			if !in.Enabled {
				continue
			}
			bh, err := in.Response(w)
			if err != nil {
				t.Fatalf("mask %d: block %d response: %v", mask, i, err)
			}
			for j := range want {
				want[j] *= bh[j]
			}
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("mask %d: H[%d] = %v, want %v", mask, j, got[j], want[j])
			}
		}
	}
}

func TestEvaluateAllDisabled(t *testing.T) {
	c := New()
	if err := c.Append(mustInstance(t, "gain", map[string]float64{"K": 5})); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.Append(mustInstance(t, "sos", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < c.Len(); i++ {
		if err := c.SetEnabled(i, false); err != nil {
			t.Fatalf("disable %d: %v", i, err)
		}
	}
	h, err := c.Evaluate(testGrid())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range h {
		if v != 1 {
			t.Fatalf("H[%d] = %v, want 1+0i", i, v)
		}
	}
}

func TestEvaluateMergesSingularities(t *testing.T) {
	w := []float64{2 * math.Pi * 10, 2 * math.Pi * 20, 2 * math.Pi * 30, 2 * math.Pi * 40}
	c := New()
	if err := c.Append(mustInstance(t, "sos", map[string]float64{"fn": 20, "zeta": 0})); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.Append(mustInstance(t, "sos", map[string]float64{"fn": 30, "zeta": 0})); err != nil {
		t.Fatalf("append: %v", err)
	}

	h, err := c.Evaluate(w)
	if !errors.Is(err, block.ErrNumericSingularity) {
		t.Fatalf("err = %v, want ErrNumericSingularity", err)
	}
	var sing *block.SingularityError
	if !errors.As(err, &sing) {
		t.Fatalf("error %T carries no points", err)
	}
	if len(sing.Points) != 2 || sing.Points[0] != 1 || sing.Points[1] != 2 {
		t.Errorf("points = %v, want [1 2]", sing.Points)
	}
	for _, i := range []int{1, 2} {
		if !cmplx.IsNaN(h[i]) {
			t.Errorf("H[%d] = %v, want NaN", i, h[i])
		}
	}
	for _, i := range []int{0, 3} {
		if cmplx.IsNaN(h[i]) || cmplx.IsInf(h[i]) {
			t.Errorf("H[%d] = %v, want a finite value", i, h[i])
		}
	}
}

func TestAddRemoveMove(t *testing.T) {
	c := New()
	for _, name := range []string{"gain", "leadlag", "sos"} {
		if err := c.Append(mustInstance(t, name, nil)); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}

	order := func() []string {
		out := make([]string, c.Len())
		for i, in := range c.Blocks() {
			out[i] = in.Type()
		}
		return out
	}
	assertOrder := func(want ...string) {
		t.Helper()
		got := order()
		if len(got) != len(want) {
			t.Fatalf("order = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	}

	assertOrder("gain", "leadlag", "sos")

	if err := c.Move(0, 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOrder("leadlag", "sos", "gain")

	if err := c.Move(2, 0); err != nil {
		t.Fatalf("move back: %v", err)
	}
	assertOrder("gain", "leadlag", "sos")

	if err := c.Add(mustInstance(t, "real_pole_zero", nil), 1); err != nil {
		t.Fatalf("add at 1: %v", err)
	}
	assertOrder("gain", "real_pole_zero", "leadlag", "sos")

	if err := c.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertOrder("gain", "leadlag", "sos")

	for _, tc := range []struct{ from, to int }{{-1, 0}, {0, 3}, {3, 0}} {
		if err := c.Move(tc.from, tc.to); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("move %d->%d: err = %v, want ErrIndexOutOfRange", tc.from, tc.to, err)
		}
	}
	if err := c.Remove(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("remove 3: err = %v, want ErrIndexOutOfRange", err)
	}
	if err := c.Add(mustInstance(t, "gain", nil), 5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("add at 5: err = %v, want ErrIndexOutOfRange", err)
	}
	if err := c.SetParam(7, "K", 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("set param at 7: err = %v, want ErrIndexOutOfRange", err)
	}
	if err := c.SetEnabled(7, false); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("set enabled at 7: err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestSetParamRejectsOutOfRange(t *testing.T) {
	h := history.New(0)
	c := New(WithHistory(h))
	if err := c.Append(mustInstance(t, "gain", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	before := h.Len()

	if err := c.SetParam(0, "K", 1e6); !errors.Is(err, block.ErrParamOutOfRange) {
		t.Fatalf("err = %v, want ErrParamOutOfRange", err)
	}
	if got := c.Blocks()[0].Params["K"]; got != 1 {
		t.Errorf("failed set mutated K to %g", got)
	}
	if h.Len() != before {
		t.Errorf("failed set committed history: %d -> %d entries", before, h.Len())
	}
}

func TestHistoryIntegration(t *testing.T) {
	h := history.New(0)
	c := New(WithHistory(h))

	if err := c.Append(mustInstance(t, "gain", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.SetParam(0, "K", 2); err != nil {
		t.Fatalf("set param: %v", err)
	}

	// init + add + set
	if h.Len() != 3 {
		t.Fatalf("history len = %d, want 3", h.Len())
	}

	e, err := h.Undo()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	c.Restore(e.Blocks)
	if got := c.Blocks()[0].Params["K"]; got != 1 {
		t.Errorf("after undo K = %g, want 1", got)
	}

	e, err = h.Redo()
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	c.Restore(e.Blocks)
	if got := c.Blocks()[0].Params["K"]; got != 2 {
		t.Errorf("after redo K = %g, want 2", got)
	}
}

func TestLoadCommitsOnce(t *testing.T) {
	h := history.New(0)
	c := New(WithHistory(h))
	if err := c.Append(mustInstance(t, "gain", map[string]float64{"K": 3})); err != nil {
		t.Fatalf("append: %v", err)
	}
	before := h.Len()

	c.Load([]*block.Instance{
		mustInstance(t, "leadlag", nil),
		mustInstance(t, "sos", nil),
	}, "load preset")

	if h.Len() != before+1 {
		t.Fatalf("bulk load committed %d entries, want 1", h.Len()-before)
	}

	// One undo restores the entire pre-load cascade.
	e, err := h.Undo()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	c.Restore(e.Blocks)
	if c.Len() != 1 || c.Blocks()[0].Type() != "gain" || c.Blocks()[0].Params["K"] != 3 {
		t.Errorf("after undo cascade = %s", c.Summary())
	}
}

func TestSnapshotDoesNotAlias(t *testing.T) {
	c := New()
	if err := c.Append(mustInstance(t, "gain", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	snap := c.Snapshot()
	if err := c.SetParam(0, "K", 7); err != nil {
		t.Fatalf("set param: %v", err)
	}
	if snap[0].Params["K"] != 1 {
		t.Errorf("snapshot sees live edit: K = %g", snap[0].Params["K"])
	}

	c.Restore(snap)
	snap[0].Params["K"] = 99
	if got := c.Blocks()[0].Params["K"]; got != 1 {
		t.Errorf("restored cascade aliases snapshot: K = %g", got)
	}
}

func TestSummary(t *testing.T) {
	c := New()
	if got := c.Summary(); got != "(empty)" {
		t.Errorf("empty summary = %q", got)
	}
	if err := c.Append(mustInstance(t, "gain", map[string]float64{"K": 2})); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.Append(mustInstance(t, "leadlag", nil)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := c.SetEnabled(1, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	want := "gain(K=2)[on]; leadlag(T=0.004, a=1.7)[off]"
	if got := c.Summary(); got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}
