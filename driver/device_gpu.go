//go:build gpu

package driver

import "sync/atomic"

// simStream is a software simulation of a CUDA stream: a single worker
// goroutine draining a work queue, with isActive backed by an atomic
// counter instead of a real device's asynchronous completion flag. This
// stands in for the hardware stream the original driver dispatches GPU
// kernels on; no cgo-free GPU runtime binding exists to wire here, so the
// "gpu" build tag gates this simulation the same way gomlx gates its real
// PJRT backend behind pjrt_cpu_dynamic/pjrt_cpu_static.
type simStream struct {
	work    chan func()
	pending atomic.Int64
}

func newSimStream() *simStream {
	s := &simStream{work: make(chan func(), 64)}
	go s.run()
	return s
}

func (s *simStream) run() {
	for fn := range s.work {
		fn()
		s.pending.Add(-1)
	}
}

func (s *simStream) enqueue(fn func()) {
	s.pending.Add(1)
	s.work <- fn
}

func (s *simStream) isActive() bool {
	return s.pending.Load() > 0
}

// simEvent records completion of a stream's queue up to the point it was
// recorded, and blocks wait() until that point drains.
type simEvent struct {
	done chan struct{}
}

func newSimEvent() *simEvent {
	return &simEvent{done: make(chan struct{})}
}

func (e *simEvent) record(s stream) {
	st := s.(*simStream)
	st.enqueue(func() {
		close(e.done)
	})
}

func (e *simEvent) wait() {
	<-e.done
}

func (e *simEvent) ready() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

type gpuBackend struct{}

func (gpuBackend) available() bool    { return true }
func (gpuBackend) newStream() stream  { return newSimStream() }
func (gpuBackend) newEvent() event    { return newSimEvent() }

func newBackend() backend { return gpuBackend{} }
