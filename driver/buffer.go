package driver

import (
	"sync"

	"github.com/sbl8/fitgraph/core"
)

// bufferKind distinguishes the three buffer classes a NodeInfo can be
// assigned, mirroring the original driver's plain/pinned/device split.
type bufferKind int

const (
	kindHost bufferKind = iota
	kindPinned
	kindDevice
)

// Handle is a pool-owned batch buffer. Release returns it to the pool it
// came from; callers must not use the slice after calling Release.
type Handle struct {
	Data    []float64
	kind    bufferKind
	size    int
	manager *BufferManager
}

// Release returns the handle's buffer to its owning pool.
func (h *Handle) Release() {
	if h == nil || h.manager == nil {
		return
	}
	h.manager.put(h)
	h.manager = nil
}

// BufferManager owns the three size-indexed scratch pools the scheduler
// draws from when a node's output does not fit in the scalar inline slot.
// Grounded on the arena's bump-allocated scratch region and the
// channel-backed pool pattern, generalized from fixed-size byte buffers to
// length-indexed float64 batches across host, pinned, and device classes.
//
// Each Driver owns one BufferManager and all allocation happens on the
// scheduler's host thread, matching the evaluator's single-threaded
// ownership model; get and put also hold a mutex around the pools.
type BufferManager struct {
	mu    sync.Mutex
	pools [3]map[int][][]float64
}

// NewBufferManager creates an empty BufferManager.
func NewBufferManager() *BufferManager {
	bm := &BufferManager{}
	for i := range bm.pools {
		bm.pools[i] = make(map[int][][]float64)
	}
	return bm
}

func (bm *BufferManager) get(kind bufferKind, size int) *Handle {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bucket := bm.pools[kind][size]
	if n := len(bucket); n > 0 {
		buf := bucket[n-1]
		bm.pools[kind][size] = bucket[:n-1]
		return &Handle{Data: buf[:size], kind: kind, size: size, manager: bm}
	}

	aligned := core.AlignSize(size, 8) // float64-granularity cache alignment
	return &Handle{Data: make([]float64, aligned)[:size], kind: kind, size: size, manager: bm}
}

func (bm *BufferManager) put(h *Handle) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.pools[h.kind][h.size] = append(bm.pools[h.kind][h.size], h.Data[:cap(h.Data)])
}

// Host allocates a host-resident batch buffer of the given size.
func (bm *BufferManager) Host(size int) *Handle { return bm.get(kindHost, size) }

// Pinned allocates a dual-addressable batch buffer: visible to both the
// CPU and, under the "gpu" build tag, the simulated device, used for
// nodes flagged copyAfterEvaluation.
func (bm *BufferManager) Pinned(size int) *Handle { return bm.get(kindPinned, size) }

// Device allocates a device-only batch buffer, used for GPU nodes whose
// output is never read back by a CPU client.
func (bm *BufferManager) Device(size int) *Handle { return bm.get(kindDevice, size) }
