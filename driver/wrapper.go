package driver

import "github.com/sbl8/fitgraph/node"

// Wrapper adapts a Driver to the single-composite-node surface an outer
// minimizer expects: parameters, a current value, and the ability to bind
// a new dataset. Grounded on RooAbsRealWrapper, which plays exactly this
// role between RooFitDriver and RooMinimizer.
type Wrapper struct {
	driver *Driver
}

// NewWrapper wraps an already-constructed Driver.
func NewWrapper(d *Driver) *Wrapper { return &Wrapper{driver: d} }

// Parameters returns the wrapped driver's Variable nodes, sorted by name.
func (w *Wrapper) Parameters() []*node.Variable { return w.driver.Parameters() }

// SetData rebinds the wrapped driver to a new dataset, forwarding to
// Driver.BindData.
func (w *Wrapper) SetData(dataset map[string]node.Span, opts BindOptions) error {
	return w.driver.BindData(dataset, opts)
}

// Value returns the wrapped driver's current value, recomputing dirty
// nodes as needed.
func (w *Wrapper) Value() (float64, error) { return w.driver.GetValue() }

// Clone returns a new Wrapper sharing the same underlying Driver. The
// minimizer's worker goroutines can each hold a Clone without racing on
// driver construction; they still must not call into the shared Driver
// concurrently, matching its single-host-thread ownership model.
func (w *Wrapper) Clone() *Wrapper { return &Wrapper{driver: w.driver} }
