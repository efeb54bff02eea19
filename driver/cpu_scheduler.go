package driver

import "github.com/sbl8/fitgraph/node"

// getValueCPU walks every node in topological order. A Variable is
// compared against the reset count recorded at its last visit rather
// than trusting BindData's Dirty flag, since SetValue can change a
// parameter between evaluations with no intervening bind: on a mismatch
// every client is flagged dirty and, unless the variable's span actually
// comes from a bound dataset column, its own span is recomputed from the
// new scalar value. Any other node that is dirty (forced so at bind time
// for a non-scalar function, or flagged here by a server) is recomputed
// and flags its own clients in turn. A scalar node then clears its dirty
// flag, so a later call skips it until a server flags it again; a
// non-scalar function stays dirty and is recomputed on every call.
// Grounded on the
// teacher's sequential Engine.Run dispatch, extended with RooFitDriver's
// getValue reset-counter recheck.
func (d *Driver) getValueCPU() error {
	for _, info := range d.graph.order {
		switch {
		case info.IsVariable:
			v := info.Node.(*node.Variable)
			if reset := v.ResetCounter(); reset != info.lastResetCount {
				info.lastResetCount = reset
				d.markClientsDirty(info)
				if !info.FromDataset {
					d.recomputeLeaf(info)
				}
			}
			info.Dirty = false
		case info.IsCategory:
			info.Dirty = false
		case info.Dirty:
			d.markClientsDirty(info)
			d.computeNode(info)
			info.Dirty = info.OutputSize > 1
		}
	}
	return nil
}

// markClientsDirty flags every direct client of info as needing
// recomputation on this pass.
func (d *Driver) markClientsDirty(info *NodeInfo) {
	for _, ctok := range info.Clients {
		d.graph.order[ctok].Dirty = true
	}
}

// recomputeLeaf republishes a scalar (non-dataset) Variable's current
// value into the data map by running its ComputeBatch, which broadcasts
// the value, into the inline scalar slot. Without it the data map would
// keep the value published at bind time.
func (d *Driver) recomputeLeaf(info *NodeInfo) {
	out := info.scalarBuffer[:info.OutputSize]
	info.Node.ComputeBatch(out, info.OutputSize, d.dm)
	d.dm.set(info.Token, nodeSpan(out))
}

// computeNode runs info's kernel into its scalar or pooled buffer and
// publishes the result for downstream clients to read. A reducer's kernel
// is run over its widest server's batch, not over its own scalar output.
func (d *Driver) computeNode(info *NodeInfo) {
	out := d.outputOf(info)
	n := info.OutputSize
	if info.Node.IsReducer() {
		for _, stok := range info.Servers {
			if s := d.graph.order[stok].OutputSize; s > n {
				n = s
			}
		}
	}
	info.Node.ComputeBatch(out, n, d.dm)
	d.dm.set(info.Token, nodeSpan(out))
}
