package driver

import (
	"github.com/pkg/errors"
	"github.com/sbl8/fitgraph/node"
	"k8s.io/klog/v2"
)

// BindData attaches a dataset to the driver: leaf nodes pick up their
// column from dataset by name, or fall back to their current scalar
// value/index when absent, and every node's OutputSize and Dirty flag are
// recomputed. Grounded on RooFitDriver::setData: non-scalar function
// nodes are unconditionally marked dirty because batch recomputation is
// cheaper than tracking per-element staleness, and in heterogeneous mode
// markGPUNodes assigns each node's intended device and flags the ones
// needing a copy-after-evaluation.
func (d *Driver) BindData(dataset map[string]node.Span, opts BindOptions) error {
	batchSize := 0
	for name, span := range dataset {
		if len(span.Data) == 0 {
			return errors.Wrapf(ErrUnboundRequiredObservable, "dataset column %q is empty", name)
		}
		if batchSize == 0 {
			batchSize = len(span.Data)
		} else if len(span.Data) != batchSize && len(span.Data) != 1 {
			return errors.Wrapf(ErrShapeMismatch, "column %q has length %d, expected %d", name, len(span.Data), batchSize)
		}
	}
	if batchSize == 0 {
		batchSize = 1
	}

	for _, info := range d.graph.order {
		if err := d.bindLeaf(info, dataset, opts); err != nil {
			return err
		}
	}
	for _, info := range d.graph.order {
		if info.IsVariable || info.IsCategory {
			continue
		}
		d.sizeFunction(info, opts)
	}

	if d.mode == ModeHeterogeneous {
		markGPUNodes(d.graph)
	}

	for _, info := range d.graph.order {
		if info.IsVariable || info.IsCategory {
			continue
		}
		d.allocateFunctionBuffer(info)
	}

	d.n = batchSize
	d.bound = true
	return nil
}

func (d *Driver) bindLeaf(info *NodeInfo, dataset map[string]node.Span, opts BindOptions) error {
	switch v := info.Node.(type) {
	case *node.Variable:
		if span, ok := dataset[v.Name()]; ok {
			info.FromDataset = true
			info.OutputSize = len(span.Data)
			d.dm.set(info.Token, span)
		} else {
			info.FromDataset = false
			info.OutputSize = 1
			d.dm.set(info.Token, node.Span{Data: []float64{v.Value()}})
		}
		reset := v.ResetCounter()
		info.Dirty = opts.ForceDirty || info.FromDataset || reset != info.lastResetCount || !info.everBound
		info.lastResetCount = reset
		info.everBound = true
		info.Device = deviceCPU
	case *node.Categorical:
		if span, ok := dataset[v.Name()]; ok {
			info.FromDataset = true
			info.OutputSize = len(span.Data)
			d.dm.set(info.Token, span)
		} else {
			info.FromDataset = false
			info.OutputSize = 1
			d.dm.set(info.Token, node.Span{Data: []float64{float64(v.Index())}})
		}
		info.Dirty = opts.ForceDirty || info.FromDataset || !info.everBound
		info.everBound = true
		info.Device = deviceCPU
	}
	return nil
}

// sizeFunction computes a non-leaf node's OutputSize and Dirty flag. Buffer
// allocation is deferred to allocateFunctionBuffer, which runs after
// markGPUNodes so it can pick a pool class (host, pinned, or device) that
// matches the node's eventual device placement.
func (d *Driver) sizeFunction(info *NodeInfo, opts BindOptions) {
	if info.Node.IsReducer() {
		info.OutputSize = 1
	} else {
		max := 1
		for _, stok := range info.Servers {
			if s := d.graph.order[stok].OutputSize; s > max {
				max = s
			}
		}
		info.OutputSize = max
	}

	nonScalar := info.OutputSize > 1
	info.Dirty = opts.ForceDirty || nonScalar
	if !nonScalar && !info.Dirty {
		for _, stok := range info.Servers {
			if d.graph.order[stok].Dirty {
				info.Dirty = true
				break
			}
		}
	}
}

// allocateFunctionBuffer releases any previously pooled buffer and, for a
// non-scalar output, draws a fresh one from the pool class matching info's
// device placement: a GPU node staging its result back to the host gets a
// pinned buffer, a GPU node feeding only GPU clients gets a device buffer,
// and everything else gets an ordinary host buffer.
func (d *Driver) allocateFunctionBuffer(info *NodeInfo) {
	if info.handle != nil {
		info.handle.Release()
		info.handle = nil
	}
	if info.OutputSize <= 1 {
		return
	}
	switch {
	case info.Device == deviceGPU && info.CopyAfterEvaluation:
		info.handle = d.bufMgr.Pinned(info.OutputSize)
	case info.Device == deviceGPU:
		info.handle = d.bufMgr.Device(info.OutputSize)
	default:
		info.handle = d.bufMgr.Host(info.OutputSize)
	}
}

// markGPUNodes assigns each function node's intended device. A node only
// qualifies for GPU when its kernel declares device support AND it either
// reduces to a scalar or produces a non-scalar batch; a scalar
// non-reducer function always runs on the host even if its kernel is
// GPU-capable, since staging a single float through a device round trip
// has nothing to amortize the transfer against. A GPU node with at least
// one CPU client (including the graph's top node, which GetValue always
// reads back on the host) is flagged CopyAfterEvaluation so the scheduler
// stages its result through a pinned buffer instead of a device-only one.
func markGPUNodes(g *Graph) {
	for _, info := range g.order {
		if info.IsVariable || info.IsCategory {
			continue
		}
		gpuEligible := info.Node.IsReducer() || info.OutputSize > 1
		if gpuEligible && info.Node.CanComputeOnGPU() {
			info.Device = deviceGPU
		} else {
			info.Device = deviceCPU
			if !info.hasLoggedGPUMiss && !gpuEligible && info.Node.CanComputeOnGPU() {
				klog.Infof("fitgraph: node %q (%s) is scalar, running on %s despite a GPU-capable kernel", info.Node.Name(), info.Node.Class(), info.Device)
				info.hasLoggedGPUMiss = true
			} else if !info.hasLoggedGPUMiss && !info.Node.CanComputeOnGPU() {
				klog.Infof("fitgraph: node %q (%s) has no GPU implementation, running on %s", info.Node.Name(), info.Node.Class(), info.Device)
				info.hasLoggedGPUMiss = true
			}
		}
	}
	top := g.order[len(g.order)-1]
	top.CopyAfterEvaluation = top.Device == deviceGPU

	for _, info := range g.order {
		if info.Device != deviceGPU {
			continue
		}
		info.CopyAfterEvaluation = info == top
		for _, ctok := range info.Clients {
			if g.order[ctok].Device == deviceCPU {
				info.CopyAfterEvaluation = true
				break
			}
		}
	}
}
