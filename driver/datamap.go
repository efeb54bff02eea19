package driver

import "github.com/sbl8/fitgraph/node"

// dataMap is the token-indexed span table nodes read from during
// ComputeBatch. Grounded on the arena's direct-indexed region layout,
// reinterpreted from byte offsets to a slice of node.Span keyed by the
// stable integer token the analyzer assigns each node.
type dataMap struct {
	spans []node.Span
}

func newDataMap(size int) *dataMap {
	return &dataMap{spans: make([]node.Span, size)}
}

func (dm *dataMap) resize(size int) {
	if size <= len(dm.spans) {
		dm.spans = dm.spans[:size]
		return
	}
	grown := make([]node.Span, size)
	copy(grown, dm.spans)
	dm.spans = grown
}

// At implements node.DataMap.
func (dm *dataMap) At(token int) node.Span {
	if token < 0 || token >= len(dm.spans) {
		return node.Span{}
	}
	return dm.spans[token]
}

func (dm *dataMap) set(token int, span node.Span) {
	dm.spans[token] = span
}

// nodeSpan wraps a computed output slice as a node.Span for publishing
// into the data map.
func nodeSpan(data []float64) node.Span {
	return node.Span{Data: data}
}
