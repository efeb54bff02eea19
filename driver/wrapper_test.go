package driver

import (
	"testing"

	"github.com/sbl8/fitgraph/kernels"
	"github.com/sbl8/fitgraph/node"
	"github.com/stretchr/testify/require"
)

func TestWrapperValueAndParameters(t *testing.T) {
	a := node.NewVariable("a", 4)
	b := node.NewVariable("b", 5)
	top := kernels.AddNode("top", a, b)

	d, err := NewDriver(top, ModeCPU, DefaultDriverOptions())
	require.NoError(t, err)

	w := NewWrapper(d)
	require.NoError(t, w.SetData(nil, BindOptions{}))

	val, err := w.Value()
	require.NoError(t, err)
	require.Equal(t, 9.0, val)

	require.Len(t, w.Parameters(), 2)
}

func TestWrapperCloneSharesDriver(t *testing.T) {
	a := node.NewVariable("a", 1)
	top := kernels.SumNode("top", a)

	d, err := NewDriver(top, ModeCPU, DefaultDriverOptions())
	require.NoError(t, err)
	w1 := NewWrapper(d)
	w2 := w1.Clone()

	require.Same(t, w1.driver, w2.driver)
}
