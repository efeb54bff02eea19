// Package fitgraph implements a heterogeneous dataflow evaluator for a
// statistical computation graph: variables, categorical selectors, and
// composite function nodes evaluated over a batch of observations, with
// ahead-of-time CPU/GPU device placement and incremental dirty-subgraph
// recomputation between evaluations.
//
// # Architecture Overview
//
// The evaluator is built from a fixed pipeline of components:
//
//   - node: the graph's vocabulary (Variable, Categorical, Function, Edge)
//   - driver: graph analysis, data binding, buffer management, and the
//     CPU/heterogeneous scheduling loops
//   - exprgraph: a small textual builder for constructing graphs in tests
//     and from the command line without hand-wiring node structs
//
// # Device placement
//
// A graph is bound once in either CPU or heterogeneous mode. In
// heterogeneous mode, nodes whose device disagrees with any of their
// value-clients are marked copy-after-evaluation and staged through a
// pinned buffer; the GPU backend itself is a software simulation gated by
// the "gpu" build tag, since no cgo-free CUDA binding exists to wire here.
// Without the tag, heterogeneous mode reports driver.ErrUnsupportedMode.
//
// # Basic usage
//
//	g, err := exprgraph.Build(`
//	    x = var 1.0
//	    y = var 2.0
//	    z = add x y
//	`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := driver.NewDriver(g.Top(), driver.ModeCPU, driver.DefaultDriverOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := d.BindData(nil, driver.BindOptions{}); err != nil {
//	    log.Fatal(err)
//	}
//	val, err := d.GetValue()
//
// # Package structure
//
//   - node: node contract and reference implementations
//   - kernels: reference ComputeBatch functions (add, mul, sum, exp, log, pow)
//   - driver: buffer manager, data map, graph analyzer, data binder, CPU and
//     heterogeneous schedulers, wrapper facade
//   - exprgraph: textual graph-construction DSL
//   - cmd/fitctl: command-line front end
//
// For more information, see the project repository at
// https://github.com/sbl8/fitgraph
package fitgraph
