package driver

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/sbl8/fitgraph/node"
)

// NodeInfo is the per-node scheduling record the analyzer builds and the
// schedulers mutate on every evaluation. Grounded on RooFitDriver's
// NodeInfo struct: iNode becomes Token, and the scalar/pooled buffer
// distinction is preserved. Unlike the original's remServers/remClients,
// which are graph-wide structural counts, the schedulers here track
// per-round dependency counts in local maps (see getValueHeterogeneous),
// since only this round's dirty nodes matter for release timing.
type NodeInfo struct {
	Node node.Node

	Token int

	IsVariable bool
	IsCategory bool

	// Servers/Clients hold the tokens of this node's dependencies and
	// dependents, in the same order as Node.Servers() and the reverse
	// adjacency built while walking the graph.
	Servers []int
	Clients []int

	Dirty       bool
	FromDataset bool
	OutputSize  int

	Device deviceKind
	// CopyAfterEvaluation marks a GPU node with at least one CPU client
	// whose result must be staged through a pinned buffer after compute.
	CopyAfterEvaluation bool
	hasLoggedGPUMiss    bool

	lastResetCount uint64
	everBound      bool

	scalarBuffer [1]float64
	handle       *Handle
}

// Graph is the analyzed, topologically ordered view of a node tree,
// produced once by analyze and then reused across evaluations until the
// node structure itself changes.
type Graph struct {
	order []*NodeInfo
	byTok map[node.Node]int
	// alias maps a non-canonical node instance discovered by the
	// token-sync pass in analyze to the canonical instance its token was
	// assigned to, so Info still resolves when handed an aliased pointer.
	alias map[node.Node]node.Node
}

// Order returns the analyzed nodes in topological order (servers before
// clients).
func (g *Graph) Order() []*NodeInfo { return g.order }

// Info returns the NodeInfo for n, or nil if n is not part of this graph.
// n need not be the exact instance analyze saw first: if it was resolved
// to an alias of some other node during analysis, Info follows that
// resolution before the lookup.
func (g *Graph) Info(n node.Node) *NodeInfo {
	if c, ok := g.alias[n]; ok {
		n = c
	}
	if tok, ok := g.byTok[n]; ok {
		return g.order[tok]
	}
	return nil
}

// canonKey identifies a node for the token-sync dedup pass: two distinct
// instances of the same concrete type sharing a Name() are the same node
// for scheduling purposes, per the driver's alias-handling requirement
// (RooFitDriver assigns the scenario z=(a*a)+(a*a), built from two
// separate multiplication nodes both named "a*a", a single token).
type canonKey struct {
	typ  reflect.Type
	name string
}

// analyze walks top's server graph, detects cycles, assigns each distinct
// node a stable token equal to its position in topological order, and
// builds the reverse (client) adjacency. Adapted from
// model.Graph.topologicalSort, but as a depth-first postorder walk over
// Servers() with three-state coloring for cycle detection rather than
// Kahn's in-degree queue, since an object graph walked through the Node
// interface has no fixed integer node IDs to index in-degrees by.
//
// Before assigning tokens, every server edge is resolved through a
// token-sync pass keyed on (concrete type, Name()): the first instance
// seen for a key is canonical, and every later instance sharing that key
// is an alias of it. This collapses separately constructed but
// equivalent subexpressions onto one token, so they are computed and
// stored once rather than once per alias.
func analyze(top node.Node) (*Graph, error) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[node.Node]int)
	var order []node.Node

	canonical := make(map[canonKey]node.Node)
	aliasOf := make(map[node.Node]node.Node)
	var aliases []node.Node

	canon := func(n node.Node) node.Node {
		key := canonKey{typ: reflect.TypeOf(n), name: n.Name()}
		if c, ok := canonical[key]; ok {
			if c != n {
				aliasOf[n] = c
				aliases = append(aliases, n)
			}
			return c
		}
		canonical[key] = n
		return n
	}

	var visit func(n node.Node) error
	visit = func(n node.Node) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return errors.Wrapf(ErrGraphCycle, "node %q", n.Name())
		case unvisited:
			// fall through to the first-visit path below.
		}
		state[n] = visiting
		for _, e := range n.Servers() {
			if err := visit(canon(e.Server)); err != nil {
				return err
			}
		}
		state[n] = done
		order = append(order, n)
		return nil
	}
	top = canon(top)
	if err := visit(top); err != nil {
		return nil, err
	}

	byTok := make(map[node.Node]int, len(order))
	infos := make([]*NodeInfo, len(order))
	for i, n := range order {
		byTok[n] = i
		info := &NodeInfo{Node: n, Token: i}
		switch v := n.(type) {
		case *node.Variable:
			info.IsVariable = true
			info.lastResetCount = v.ResetCounter()
		case *node.Categorical:
			info.IsCategory = true
		}
		infos[i] = info
		if ta, ok := n.(node.TokenAware); ok {
			ta.SetToken(i)
		}
	}

	// An alias never appears in order and so is never given its own
	// token above; it still shares its canonical node's token, so a
	// Function.ComputeBatch call resolving a server through the alias's
	// own TokenAware.Token (rather than through byTok) lands on the same
	// published span as a call made through the canonical instance.
	for _, n := range aliases {
		if ta, ok := n.(node.TokenAware); ok {
			ta.SetToken(byTok[aliasOf[n]])
		}
	}

	for i, n := range order {
		servers := n.Servers()
		infos[i].Servers = make([]int, len(servers))
		for j, e := range servers {
			s := e.Server
			if c, ok := aliasOf[s]; ok {
				s = c
			}
			stok := byTok[s]
			infos[i].Servers[j] = stok
			infos[stok].Clients = append(infos[stok].Clients, i)
		}
	}

	return &Graph{order: infos, byTok: byTok, alias: aliasOf}, nil
}
