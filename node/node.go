// Package node defines the vocabulary of the computation graph: the Node
// contract every graph participant implements, and the three concrete node
// classes the evaluator ships out of the box (Variable, Categorical,
// Function). The driver package walks a graph built from these, assigns
// each node a stable integer token, and drives ComputeBatch calls in
// topological order.
package node

import "github.com/pkg/errors"

// Span is a single observable's batch of values. A Go slice already
// carries a pointer and a length, so Span needs nothing beyond that.
type Span struct {
	Data []float64
}

// DataMap is the read side of the driver's per-evaluation token-indexed
// table. Nodes use it to fetch the spans their servers produced.
type DataMap interface {
	At(token int) Span
}

// Edge connects a node to one of the servers it depends on. ValueCarrying
// mirrors RooFit's isValueServer distinction: shape-only/notification
// edges exist in the original system but this evaluator only models the
// value-carrying kind, so the field is kept for forward compatibility with
// node classes that need to distinguish them.
type Edge struct {
	Server        Node
	ValueCarrying bool
}

// Node is the contract every graph participant satisfies.
type Node interface {
	// Name uniquely identifies the node for binding and diagnostics.
	Name() string
	// Class is a short human-readable type tag, used in Driver.Print.
	Class() string
	// Servers lists the nodes this node reads from, in a stable order.
	Servers() []Edge
	// ComputeBatch fills out[:n] using dm to resolve each server's span.
	// Panics on unrecoverable kernel errors. In ModeCPU the driver does not
	// recover the panic; in heterogeneous mode a panic in a kernel run on
	// the device stream is recovered and returned as an error.
	ComputeBatch(out []float64, n int, dm DataMap)
	// CanComputeOnGPU reports whether this node's kernel has a device
	// implementation. Leaves are always false.
	CanComputeOnGPU() bool
	// IsReducer reports whether this node always produces a single
	// scalar output regardless of its servers' batch size.
	IsReducer() bool
}

// TokenAware is implemented by baseNode and lets the driver stash the
// token it assigned without every node class re-declaring the field.
type TokenAware interface {
	Token() int
	SetToken(int)
}

// baseNode carries the token-storage boilerplate shared by every node
// class shipped in this package.
type baseNode struct {
	name  string
	token int
}

func (b *baseNode) Token() int     { return b.token }
func (b *baseNode) SetToken(t int) { b.token = t }
func (b *baseNode) Name() string   { return b.name }

// Variable is a mutable scalar leaf, the graph's analogue of a fit
// parameter. Its value is supplied either by BindData (from a dataset
// column) or by SetValue between evaluations.
type Variable struct {
	baseNode
	value  float64
	resets uint64
}

// NewVariable creates a named Variable with an initial value.
func NewVariable(name string, value float64) *Variable {
	return &Variable{baseNode: baseNode{name: name}, value: value}
}

func (v *Variable) Class() string         { return "Variable" }
func (v *Variable) Servers() []Edge       { return nil }
func (v *Variable) CanComputeOnGPU() bool { return false }
func (v *Variable) IsReducer() bool       { return false }

// Value returns the variable's current scalar value.
func (v *Variable) Value() float64 { return v.value }

// SetValue updates the variable's value and bumps its reset counter,
// which the driver uses to detect that dependents must be marked dirty.
func (v *Variable) SetValue(x float64) {
	if x == v.value {
		return
	}
	v.value = x
	v.resets++
}

// ResetCounter returns the number of times SetValue actually changed the
// value. Monotonically increasing for the lifetime of the Variable.
func (v *Variable) ResetCounter() uint64 { return v.resets }

// ComputeBatch broadcasts the scalar value across the batch. This only
// runs when the variable was not bound directly from a dataset column.
func (v *Variable) ComputeBatch(out []float64, n int, _ DataMap) {
	for i := 0; i < n; i++ {
		out[i] = v.value
	}
}

// Categorical is a discrete leaf selecting among named states by integer
// index, the graph's analogue of a category/label column.
type Categorical struct {
	baseNode
	index  int32
	labels []string
}

// NewCategorical creates a named Categorical with the given state labels
// and an initial index into labels.
func NewCategorical(name string, labels []string, index int32) *Categorical {
	return &Categorical{baseNode: baseNode{name: name}, labels: labels, index: index}
}

func (c *Categorical) Class() string         { return "Categorical" }
func (c *Categorical) Servers() []Edge       { return nil }
func (c *Categorical) CanComputeOnGPU() bool { return false }
func (c *Categorical) IsReducer() bool       { return false }

// Index returns the current category index.
func (c *Categorical) Index() int32 { return c.index }

// Label returns the name of the current state, or "" if index is out of
// range of the configured labels.
func (c *Categorical) Label() string {
	if c.index < 0 || int(c.index) >= len(c.labels) {
		return ""
	}
	return c.labels[c.index]
}

// SetIndex changes the current state by index.
func (c *Categorical) SetIndex(i int32) { c.index = i }

// ComputeBatch broadcasts the category's index, reinterpreted as a
// float64, across the batch.
func (c *Categorical) ComputeBatch(out []float64, n int, _ DataMap) {
	v := float64(c.index)
	for i := 0; i < n; i++ {
		out[i] = v
	}
}

// Kernel computes a function node's output batch from its servers'
// resolved input spans. inputs[i] corresponds to Servers()[i].
type Kernel func(out []float64, n int, inputs [][]float64)

// Function is a composite node computing a batch of real values from its
// servers via a Kernel. gpuCapable and reducer are set by the kernel
// constructor (see package kernels) to describe the kernel's properties.
type Function struct {
	baseNode
	edges      []Edge
	kernel     Kernel
	gpuCapable bool
	reducer    bool
	class      string
}

// NewFunction creates a named Function node with the given servers and
// kernel. class is a short tag shown in diagnostics (e.g. "Add", "Sum").
func NewFunction(name, class string, kernel Kernel, gpuCapable, reducer bool, servers ...Node) *Function {
	edges := make([]Edge, len(servers))
	for i, s := range servers {
		edges[i] = Edge{Server: s, ValueCarrying: true}
	}
	return &Function{
		baseNode:   baseNode{name: name},
		edges:      edges,
		kernel:     kernel,
		gpuCapable: gpuCapable,
		reducer:    reducer,
		class:      class,
	}
}

func (f *Function) Class() string         { return f.class }
func (f *Function) Servers() []Edge       { return f.edges }
func (f *Function) CanComputeOnGPU() bool { return f.gpuCapable }
func (f *Function) IsReducer() bool       { return f.reducer }

// ComputeBatch resolves each server's span by its assigned token and
// delegates to the kernel. A server that does not implement TokenAware
// causes a panic: that is a construction bug, not a runtime data
// condition. A token-aware server whose token was never set is read as
// token 0; that case is not detected.
func (f *Function) ComputeBatch(out []float64, n int, dm DataMap) {
	inputs := make([][]float64, len(f.edges))
	for i, e := range f.edges {
		ta, ok := e.Server.(TokenAware)
		if !ok {
			panic(errors.Errorf("node: server %q of %q is not token-aware", e.Server.Name(), f.name))
		}
		inputs[i] = dm.At(ta.Token()).Data
	}
	f.kernel(out, n, inputs)
}
