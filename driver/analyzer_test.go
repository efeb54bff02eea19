package driver

import (
	"testing"

	"github.com/sbl8/fitgraph/kernels"
	"github.com/sbl8/fitgraph/node"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTopologicalOrder(t *testing.T) {
	a := node.NewVariable("a", 1)
	b := node.NewVariable("b", 2)
	sum := kernels.AddNode("sum", a, b)
	top := kernels.ExpNode("top", sum)

	g, err := analyze(top)
	require.NoError(t, err)
	require.Len(t, g.order, 4)

	pos := make(map[string]int)
	for i, info := range g.order {
		pos[info.Node.Name()] = i
	}
	require.Less(t, pos["a"], pos["sum"])
	require.Less(t, pos["b"], pos["sum"])
	require.Less(t, pos["sum"], pos["top"])
}

func TestAnalyzeReverseEdgeConsistency(t *testing.T) {
	a := node.NewVariable("a", 1)
	b := kernels.AddNode("b", a, a)

	g, err := analyze(b)
	require.NoError(t, err)

	infoA := g.Info(a)
	infoB := g.Info(b)
	require.NotNil(t, infoA)
	require.NotNil(t, infoB)

	require.Contains(t, infoA.Clients, infoB.Token)
	require.Equal(t, []int{infoA.Token, infoA.Token}, infoB.Servers)
}

// TestAnalyzeTokenSyncDedupesAliasedSubexpressions reproduces
// z=(a*a)+(a*a): the two "a*a" multiplications are separate *node.Function
// instances with the same name and concrete type, built independently
// rather than sharing a pointer. The token-sync pass must still collapse
// them to one token so the product is computed once, not twice.
func TestAnalyzeTokenSyncDedupesAliasedSubexpressions(t *testing.T) {
	a := node.NewVariable("a", 3)
	left := kernels.MulNode("a*a", a, a)
	right := kernels.MulNode("a*a", a, a)
	top := kernels.AddNode("z", left, right)

	g, err := analyze(top)
	require.NoError(t, err)

	// a, one canonical "a*a", and z: the alias never gets its own slot.
	require.Len(t, g.order, 3)

	leftInfo := g.Info(left)
	rightInfo := g.Info(right)
	require.NotNil(t, leftInfo)
	require.NotNil(t, rightInfo)
	require.Equal(t, leftInfo.Token, rightInfo.Token)

	topInfo := g.Info(top)
	require.Equal(t, []int{leftInfo.Token, leftInfo.Token}, topInfo.Servers)
}

func TestAnalyzeDetectsCycle(t *testing.T) {
	a := &cyclicNode{name: "a"}
	b := &cyclicNode{name: "b", servers: []node.Node{a}}
	a.servers = []node.Node{b}

	_, err := analyze(a)
	require.ErrorIs(t, err, ErrGraphCycle)
}

// cyclicNode lets the test construct an illegal graph that node.Function's
// constructors (which always build a DAG) cannot express.
type cyclicNode struct {
	name    string
	servers []node.Node
	token   int
}

func (c *cyclicNode) Name() string  { return c.name }
func (c *cyclicNode) Class() string { return "Cyclic" }
func (c *cyclicNode) Servers() []node.Edge {
	edges := make([]node.Edge, len(c.servers))
	for i, s := range c.servers {
		edges[i] = node.Edge{Server: s, ValueCarrying: true}
	}
	return edges
}
func (c *cyclicNode) ComputeBatch([]float64, int, node.DataMap) {}
func (c *cyclicNode) CanComputeOnGPU() bool                      { return false }
func (c *cyclicNode) IsReducer() bool                            { return false }
func (c *cyclicNode) Token() int                                 { return c.token }
func (c *cyclicNode) SetToken(t int)                             { c.token = t }
