// Package exprgraph implements a small textual DSL for building node
// graphs without hand-wiring node structs, used by tests and the
// command-line front end. Grounded on the teacher's compiler package: a
// line-oriented spec is parsed into a sequence of declarations and
// resolved into a graph, but the DSL here produces an in-memory
// node.Node graph rather than a binary file, since this evaluator has no
// persisted model format.
package exprgraph

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbl8/fitgraph/kernels"
	"github.com/sbl8/fitgraph/node"
)

// Graph is the result of parsing a spec: every declared node by name, and
// the designated top (output) node.
type Graph struct {
	nodes       map[string]node.Node
	order       []string
	top         node.Node
	explicitTop bool
}

// Top returns the graph's output node: the explicit "top <name>"
// declaration if present, otherwise the last node declared.
func (g *Graph) Top() node.Node { return g.top }

// Node looks up a declared node by name.
func (g *Graph) Node(name string) (node.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Names returns every declared node's name, in declaration order.
func (g *Graph) Names() []string { return append([]string(nil), g.order...) }

var builders = map[string]func(name string, servers ...node.Node) *node.Function{
	"add": kernels.AddNode,
	"mul": kernels.MulNode,
	"sum": func(name string, servers ...node.Node) *node.Function { return kernels.SumNode(name, servers[0]) },
	"exp": func(name string, servers ...node.Node) *node.Function { return kernels.ExpNode(name, servers[0]) },
	"log": func(name string, servers ...node.Node) *node.Function { return kernels.LogNode(name, servers[0]) },
	"sub": func(name string, servers ...node.Node) *node.Function { return kernels.SubNode(name, servers[0], servers[1]) },
	"pow": func(name string, servers ...node.Node) *node.Function { return kernels.PowNode(name, servers[0], servers[1]) },
}

// Build parses spec, one declaration per non-empty, non-comment line:
//
//	x = var 1.0
//	cat = categorical 0 signal background
//	y = add x x
//	z = sum y
//	top z
//
// Lines beginning with "#" are comments. "top <name>" may appear once, at
// any point after <name> is declared, to override the default of using
// the last declared node as the graph's output.
func Build(spec string) (*Graph, error) {
	g := &Graph{nodes: make(map[string]node.Node)}

	for lineNo, line := range strings.Split(spec, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := g.parseLine(line); err != nil {
			return nil, errors.Wrapf(err, "exprgraph: line %d", lineNo+1)
		}
	}

	if g.top == nil {
		return nil, errors.New("exprgraph: no nodes declared")
	}
	return g, nil
}

func (g *Graph) parseLine(line string) error {
	fields := strings.Fields(line)

	if fields[0] == "top" {
		if len(fields) != 2 {
			return errors.New("top expects exactly one node name")
		}
		n, ok := g.nodes[fields[1]]
		if !ok {
			return errors.Errorf("top refers to undeclared node %q", fields[1])
		}
		g.top = n
		g.explicitTop = true
		return nil
	}

	if len(fields) < 3 || fields[1] != "=" {
		return errors.Errorf("expected \"<name> = <decl>\", got %q", line)
	}
	name := fields[0]
	if _, exists := g.nodes[name]; exists {
		return errors.Errorf("node %q already declared", name)
	}
	kind := fields[2]
	args := fields[3:]

	var n node.Node
	var err error
	switch kind {
	case "var":
		n, err = buildVar(name, args)
	case "categorical":
		n, err = buildCategorical(name, args)
	default:
		n, err = g.buildFunction(name, kind, args)
	}
	if err != nil {
		return err
	}

	g.nodes[name] = n
	g.order = append(g.order, name)
	if !g.explicitTop {
		g.top = n
	}
	return nil
}

func buildVar(name string, args []string) (node.Node, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("var expects exactly one value, got %d", len(args))
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing var value %q", args[0])
	}
	return node.NewVariable(name, v), nil
}

func buildCategorical(name string, args []string) (node.Node, error) {
	if len(args) < 2 {
		return nil, errors.New("categorical expects an index followed by one or more labels")
	}
	idx, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing categorical index %q", args[0])
	}
	return node.NewCategorical(name, args[1:], int32(idx)), nil
}

func (g *Graph) buildFunction(name, kind string, args []string) (node.Node, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, errors.Errorf("unknown node kind %q", kind)
	}
	servers := make([]node.Node, len(args))
	for i, a := range args {
		s, ok := g.nodes[a]
		if !ok {
			return nil, errors.Errorf("undeclared server %q", a)
		}
		servers[i] = s
	}
	return build(name, servers...), nil
}
