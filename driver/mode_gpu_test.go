//go:build gpu

package driver

import (
	"testing"

	"github.com/sbl8/fitgraph/kernels"
	"github.com/sbl8/fitgraph/node"
	"github.com/stretchr/testify/require"
)

func TestHeterogeneousMatchesCPUValue(t *testing.T) {
	buildGraph := func() (node.Node, *node.Variable, *node.Variable) {
		a := node.NewVariable("a", 3)
		b := node.NewVariable("b", 4)
		prod := kernels.MulNode("prod", a, b)
		return kernels.SumNode("top", prod), a, b
	}

	cpuTop, _, _ := buildGraph()
	cpu, err := NewDriver(cpuTop, ModeCPU, DefaultDriverOptions())
	require.NoError(t, err)
	require.NoError(t, cpu.BindData(nil, BindOptions{}))
	cpuVal, err := cpu.GetValue()
	require.NoError(t, err)

	gpuTop, _, _ := buildGraph()
	gpu, err := NewDriver(gpuTop, ModeHeterogeneous, DefaultDriverOptions())
	require.NoError(t, err)
	require.NoError(t, gpu.BindData(nil, BindOptions{}))
	gpuVal, err := gpu.GetValue()
	require.NoError(t, err)

	require.Equal(t, cpuVal, gpuVal)
}

func TestHeterogeneousCopyAfterEvaluationStagesPinnedBuffer(t *testing.T) {
	a := node.NewVariable("a", 0)
	b := node.NewVariable("b", 2)
	vec := kernels.AddNode("vec", a, b)
	top := kernels.SumNode("top", vec)

	d, err := NewDriver(top, ModeHeterogeneous, DefaultDriverOptions())
	require.NoError(t, err)
	require.NoError(t, d.BindData(map[string]node.Span{
		"a": {Data: []float64{1, 2, 3}},
	}, BindOptions{}))

	val, err := d.GetValue()
	require.NoError(t, err)
	require.Equal(t, 3.0+4.0+5.0, val)

	// top is the graph's final output: GetValue always reads it back on
	// the host, so it is staged through a pinned buffer even though its
	// only client (the caller) is not itself a graph node.
	topInfo := d.graph.Info(top)
	require.True(t, topInfo.CopyAfterEvaluation)

	// vec's only client is top, also GPU-resident, so vec's result never
	// needs to leave the device and is pooled from the device class.
	vecInfo := d.graph.Info(vec)
	require.False(t, vecInfo.CopyAfterEvaluation)
}

// TestHeterogeneousDiamondServerSurvivesUntilBothClientsFinish builds a
// server s shared by a CPU client (finishes synchronously, on the host
// thread) and a GPU client (finishes asynchronously, on the stream's
// worker goroutine) joined back together at top. If s's buffer were
// released as soon as the CPU client finalizes, rather than once both
// clients are confirmed done, the GPU client could read a pooled buffer
// already handed to another node; the two modes producing the same
// result is evidence that didn't happen.
func TestHeterogeneousDiamondServerSurvivesUntilBothClientsFinish(t *testing.T) {
	build := func() (node.Node, *node.Variable) {
		a := node.NewVariable("a", 0)
		b := node.NewVariable("b", 1)
		s := kernels.PowNode("s", a, b)
		cpuClient := kernels.PowNode("cpuClient", s, b)
		gpuClient := kernels.AddNode("gpuClient", s, b)
		return kernels.AddNode("top", cpuClient, gpuClient), a
	}

	dataset := map[string]node.Span{"a": {Data: []float64{2, 3, 4}}}

	cpuTop, _ := build()
	cpu, err := NewDriver(cpuTop, ModeCPU, DefaultDriverOptions())
	require.NoError(t, err)
	require.NoError(t, cpu.BindData(dataset, BindOptions{}))
	want, err := cpu.GetValues()
	require.NoError(t, err)

	gpuTop, _ := build()
	gpu, err := NewDriver(gpuTop, ModeHeterogeneous, DefaultDriverOptions())
	require.NoError(t, err)
	require.NoError(t, gpu.BindData(dataset, BindOptions{}))
	got, err := gpu.GetValues()
	require.NoError(t, err)

	require.Equal(t, want, got)
}
