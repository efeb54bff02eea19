// Package driver implements the evaluator's core: graph analysis, data
// binding, buffer management, and the CPU and heterogeneous scheduling
// loops that turn a bound node.Node graph into a batch of values. Driver
// is the package's single entry point; Wrapper adapts it to the
// minimizer-facing single-composite-node surface.
package driver

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sbl8/fitgraph/node"
	"k8s.io/klog/v2"
)

var (
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitgraph_evaluations_total",
		Help: "Number of completed top-level GetValue/GetValues calls, by mode.",
	}, []string{"mode"})

	idleSleepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fitgraph_heterogeneous_idle_sleeps_total",
		Help: "Number of times the heterogeneous scheduler slept waiting for GPU work to drain.",
	})
)

// DriverOptions configures a Driver at construction time. Grounded on the
// teacher's EngineOptions: a small options struct the constructor fills
// in defaults for, rather than a config file or env vars.
type DriverOptions struct {
	// Workers bounds the goroutines the heterogeneous scheduler's
	// completion watcher may run concurrently. Zero means unbounded.
	Workers int
}

// DefaultDriverOptions returns the zero-value-safe default options.
func DefaultDriverOptions() DriverOptions {
	return DriverOptions{Workers: 0}
}

// BindOptions configures a single BindData call.
type BindOptions struct {
	// ForceDirty marks every node dirty regardless of what changed,
	// useful for the first bind or after structural graph changes.
	ForceDirty bool
}

// Driver evaluates a bound node graph, either sequentially on the host
// (ModeCPU) or by dispatching GPU-capable nodes to a device backend
// (ModeHeterogeneous). Grounded on RooFitDriver: the constructor analyzes
// the graph once and sizes the data map to it, BindData publishes the leaf
// spans and forces the appropriate nodes dirty, and GetValue/GetValues run
// the scheduling loop.
type Driver struct {
	top  node.Node
	mode Mode

	graph   *Graph
	dm      *dataMap
	bufMgr  *BufferManager
	backend backend

	opts  DriverOptions
	bound bool
	n     int // current batch size
}

// archLogged records which modes have already logged their architecture
// line, so each mode logs it at most once per process.
var archLogged sync.Map

// NewDriver analyzes top's server graph and prepares a Driver in the
// requested mode. ModeHeterogeneous without the "gpu" build tag returns
// ErrUnsupportedMode immediately, mirroring the original's R__HAS_CUDA
// preprocessor branch.
func NewDriver(top node.Node, mode Mode, opts DriverOptions) (*Driver, error) {
	if top == nil {
		return nil, errors.New("driver: top node is nil")
	}

	be := newBackend()
	if mode == ModeHeterogeneous && !be.available() {
		return nil, errors.Wrap(ErrUnsupportedMode, "heterogeneous mode requires a build tagged \"gpu\"")
	}

	g, err := analyze(top)
	if err != nil {
		return nil, errors.Wrap(err, "driver: analyzing graph")
	}

	d := &Driver{
		top:     top,
		mode:    mode,
		graph:   g,
		dm:      newDataMap(len(g.order)),
		bufMgr:  NewBufferManager(),
		backend: be,
		opts:    opts,
	}

	if _, seen := archLogged.LoadOrStore(mode, true); !seen {
		if mode == ModeHeterogeneous {
			klog.Infof("fitgraph: using heterogeneous CPU/GPU computation library")
		} else {
			klog.Infof("fitgraph: using generic CPU computation library")
		}
	}

	return d, nil
}

// Parameters returns the graph's Variable nodes, sorted by name, the same
// alphabetical contract the original's RooArgSet::sort provided for
// RooAbsRealWrapper::getParameters.
func (d *Driver) Parameters() []*node.Variable {
	var out []*node.Variable
	for _, info := range d.graph.order {
		if v, ok := info.Node.(*node.Variable); ok {
			out = append(out, v)
		}
	}
	sortVariablesByName(out)
	return out
}

func sortVariablesByName(vs []*node.Variable) {
	for i := 1; i < len(vs); i++ {
		for j := i; j > 0 && vs[j-1].Name() > vs[j].Name(); j-- {
			vs[j-1], vs[j] = vs[j], vs[j-1]
		}
	}
}

// GetValue evaluates the top node for the currently bound batch and
// returns its first (or only, for a reducer) output value.
func (d *Driver) GetValue() (float64, error) {
	vals, err := d.GetValues()
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// GetValues evaluates the top node for the currently bound batch and
// returns its full output span.
func (d *Driver) GetValues() ([]float64, error) {
	if !d.bound {
		return nil, ErrNotBound
	}

	var err error
	switch d.mode {
	case ModeCPU:
		err = d.getValueCPU()
	case ModeHeterogeneous:
		err = d.getValueHeterogeneous()
	default:
		err = errors.Errorf("driver: unknown mode %v", d.mode)
	}
	if err != nil {
		return nil, err
	}

	evaluationsTotal.WithLabelValues(d.mode.String()).Inc()
	top := d.graph.Info(d.top)
	return d.outputOf(top), nil
}

func (d *Driver) outputOf(info *NodeInfo) []float64 {
	if info.handle != nil {
		return info.handle.Data[:info.OutputSize]
	}
	return info.scalarBuffer[:info.OutputSize]
}

// BatchSize returns the number of observations the currently bound
// dataset carries, or 1 for a scalar (dataset-free) bind.
func (d *Driver) BatchSize() int { return d.n }

// Print writes the six-column node table the original driver's print()
// produces: index, name, class, output size, whether the value comes
// from a bound dataset column, and the node's current first value.
func (d *Driver) Print(w io.Writer) error {
	return printTable(w, d.graph.order, d.dm)
}
