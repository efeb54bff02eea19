package node

import "testing"

func TestVariableSetValueBumpsResetCounter(t *testing.T) {
	v := NewVariable("x", 1.0)
	if v.ResetCounter() != 0 {
		t.Fatalf("new variable reset counter = %d, want 0", v.ResetCounter())
	}
	v.SetValue(1.0) // unchanged, must not bump
	if v.ResetCounter() != 0 {
		t.Fatalf("unchanged SetValue bumped reset counter to %d", v.ResetCounter())
	}
	v.SetValue(2.0)
	if v.ResetCounter() != 1 {
		t.Fatalf("changed SetValue reset counter = %d, want 1", v.ResetCounter())
	}
	if v.Value() != 2.0 {
		t.Fatalf("Value() = %v, want 2.0", v.Value())
	}
}

func TestVariableComputeBatchBroadcasts(t *testing.T) {
	v := NewVariable("x", 3.5)
	out := make([]float64, 4)
	v.ComputeBatch(out, 4, nil)
	for i, got := range out {
		if got != 3.5 {
			t.Errorf("out[%d] = %v, want 3.5", i, got)
		}
	}
}

func TestCategoricalLabel(t *testing.T) {
	c := NewCategorical("cat", []string{"signal", "background"}, 1)
	if got := c.Label(); got != "background" {
		t.Errorf("Label() = %q, want %q", got, "background")
	}
	c.SetIndex(5)
	if got := c.Label(); got != "" {
		t.Errorf("Label() with out-of-range index = %q, want \"\"", got)
	}
}

type constSpanMap map[int]Span

func (m constSpanMap) At(token int) Span { return m[token] }

func TestFunctionComputeBatchResolvesServersByToken(t *testing.T) {
	a := NewVariable("a", 1)
	b := NewVariable("b", 2)
	a.SetToken(0)
	b.SetToken(1)

	sum := func(out []float64, n int, inputs [][]float64) {
		for i := 0; i < n; i++ {
			out[i] = inputs[0][i] + inputs[1][i]
		}
	}
	f := NewFunction("f", "Add", sum, true, false, a, b)

	dm := constSpanMap{0: {Data: []float64{10}}, 1: {Data: []float64{20}}}
	out := make([]float64, 1)
	f.ComputeBatch(out, 1, dm)
	if out[0] != 30 {
		t.Errorf("ComputeBatch = %v, want 30", out[0])
	}
}

func TestFunctionComputeBatchPanicsOnNonTokenAwareServer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-token-aware server")
		}
	}()
	f := NewFunction("f", "Add", func([]float64, int, [][]float64) {}, true, false, notTokenAware{})
	f.ComputeBatch(make([]float64, 1), 1, constSpanMap{})
}

type notTokenAware struct{}

func (notTokenAware) Name() string          { return "x" }
func (notTokenAware) Class() string         { return "X" }
func (notTokenAware) Servers() []Edge       { return nil }
func (notTokenAware) ComputeBatch([]float64, int, DataMap) {}
func (notTokenAware) CanComputeOnGPU() bool { return false }
func (notTokenAware) IsReducer() bool       { return false }
