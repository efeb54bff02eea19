// Package kernels implements the reference ComputeBatch functions shipped
// with the evaluator: elementwise arithmetic, a couple of unary transforms,
// and a batch-reducing sum. Each kernel is a node.Kernel; the constructors
// in this package wrap a kernel into a ready-to-use *node.Function so
// callers rarely need to touch node.Kernel directly.
package kernels

import (
	"math"

	"github.com/sbl8/fitgraph/node"
)

// Add computes out[i] = sum of inputs[j][i] over all servers.
func Add(out []float64, n int, inputs [][]float64) {
	for i := 0; i < n; i++ {
		var acc float64
		for _, in := range inputs {
			acc += valueAt(in, i)
		}
		out[i] = acc
	}
}

// Mul computes out[i] = product of inputs[j][i] over all servers.
func Mul(out []float64, n int, inputs [][]float64) {
	for i := 0; i < n; i++ {
		acc := 1.0
		for _, in := range inputs {
			acc *= valueAt(in, i)
		}
		out[i] = acc
	}
}

// Sub computes out[i] = inputs[0][i] - inputs[1][i]. Exactly two servers.
func Sub(out []float64, n int, inputs [][]float64) {
	a, b := inputs[0], inputs[1]
	for i := 0; i < n; i++ {
		out[i] = valueAt(a, i) - valueAt(b, i)
	}
}

// Exp computes out[i] = exp(inputs[0][i]). Exactly one server.
func Exp(out []float64, n int, inputs [][]float64) {
	in := inputs[0]
	for i := 0; i < n; i++ {
		out[i] = math.Exp(valueAt(in, i))
	}
}

// Log computes out[i] = log(inputs[0][i]). Exactly one server.
func Log(out []float64, n int, inputs [][]float64) {
	in := inputs[0]
	for i := 0; i < n; i++ {
		out[i] = math.Log(valueAt(in, i))
	}
}

// Pow computes out[i] = inputs[0][i] ^ inputs[1][i]. Exactly two servers.
func Pow(out []float64, n int, inputs [][]float64) {
	a, b := inputs[0], inputs[1]
	for i := 0; i < n; i++ {
		out[i] = math.Pow(valueAt(a, i), valueAt(b, i))
	}
}

// Sum reduces inputs[0] to a single scalar. A reducer kernel always
// writes exactly out[0], regardless of n.
func Sum(out []float64, n int, inputs [][]float64) {
	in := inputs[0]
	var acc float64
	for i := 0; i < n; i++ {
		acc += valueAt(in, i)
	}
	out[0] = acc
}

// valueAt handles scalar (length-1) inputs broadcast against a batch,
// mirroring the original driver's scalar-inline-buffer convention.
func valueAt(span []float64, i int) float64 {
	if len(span) == 1 {
		return span[0]
	}
	return span[i]
}

// AddNode builds a Function node computing the elementwise sum of its
// servers. GPU-capable.
func AddNode(name string, servers ...node.Node) *node.Function {
	return node.NewFunction(name, "Add", Add, true, false, servers...)
}

// MulNode builds a Function node computing the elementwise product of
// its servers. GPU-capable.
func MulNode(name string, servers ...node.Node) *node.Function {
	return node.NewFunction(name, "Mul", Mul, true, false, servers...)
}

// SubNode builds a Function node computing a - b. GPU-capable.
func SubNode(name string, a, b node.Node) *node.Function {
	return node.NewFunction(name, "Sub", Sub, true, false, a, b)
}

// ExpNode builds a Function node computing exp(a). GPU-capable.
func ExpNode(name string, a node.Node) *node.Function {
	return node.NewFunction(name, "Exp", Exp, true, false, a)
}

// LogNode builds a Function node computing log(a). GPU-capable.
func LogNode(name string, a node.Node) *node.Function {
	return node.NewFunction(name, "Log", Log, true, false, a)
}

// PowNode builds a Function node computing a ^ b. CPU-only: the
// reference kernel set has no device implementation for it.
func PowNode(name string, a, b node.Node) *node.Function {
	return node.NewFunction(name, "Pow", Pow, false, false, a, b)
}

// SumNode builds a reducer Function node summing its single server's
// batch into a scalar. GPU-capable.
func SumNode(name string, a node.Node) *node.Function {
	return node.NewFunction(name, "Sum", Sum, true, true, a)
}
