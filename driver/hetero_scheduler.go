package driver

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// getValueHeterogeneous drives the dependency-counted scheduling loop.
// A node whose servers are all finalized is dispatched the moment it
// becomes ready: a GPU node is enqueued onto the device stream and
// tracked as in-flight, a CPU node is queued for the host thread to pick
// up. Only §4.F step 3a's poll — "the stream reports no in-flight work"
// — is allowed to finalize a dispatched GPU node, decrement its clients'
// and servers' dependency counts, and release a server's buffer; a
// node's own dispatch never finalizes it. Grounded on
// RooFitDriver::getValHeterogeneous/assignToGPU, simplified to a single
// device stream rather than one stream per in-flight node group.
//
// Every GPU dispatch is additionally supervised by watcher, a
// background errgroup.Group: the stream's worker goroutine is the only
// place a GPU kernel panic could otherwise take down the whole process
// unrecovered, so dispatchGPU registers one watcher goroutine per node
// that recovers its kernel's panic into an error. watcher.Wait() at the
// end of this function is what turns that into a normal error return.
func (d *Driver) getValueHeterogeneous() error {
	order := d.graph.order

	pendingServers := make(map[int]int, len(order))
	pendingClients := make(map[int]int, len(order))
	events := make(map[int]event, len(order))
	var watcher errgroup.Group
	if d.opts.Workers > 0 {
		watcher.SetLimit(d.opts.Workers)
	}

	var gpuStream stream
	streamOf := func() stream {
		if gpuStream == nil {
			gpuStream = d.backend.newStream()
		}
		return gpuStream
	}

	var readyCPU []*NodeInfo
	var inFlightGPU []*NodeInfo

	// dispatch starts a node the instant its dependency count hits zero:
	// a GPU node is handed to the stream and tracked as in-flight, a CPU
	// node is queued for the host thread's turn in the main loop.
	var dispatch func(info *NodeInfo)
	dispatch = func(info *NodeInfo) {
		if info.Device != deviceGPU {
			readyCPU = append(readyCPU, info)
			return
		}
		for _, stok := range info.Servers {
			if ev, ok := events[stok]; ok {
				ev.wait()
			}
		}
		d.dispatchGPU(info, streamOf(), events, &watcher)
		inFlightGPU = append(inFlightGPU, info)
	}

	// finalize retires a node whose result is confirmed complete —
	// synchronously for a CPU node, or once its stream event has fired
	// for a GPU one — advancing every newly-ready client and releasing
	// any server buffer whose last client has now been accounted for.
	// pendingClients counts only this round's dirty clients: a server's
	// pooled buffer only needs to outlive the clients actually reading
	// it this round, not the statically-sized client list from analyze.
	finalize := func(info *NodeInfo) {
		for _, ctok := range info.Clients {
			client := order[ctok]
			if _, tracked := pendingServers[client.Token]; !tracked {
				continue
			}
			pendingServers[client.Token]--
			if pendingServers[client.Token] == 0 {
				dispatch(client)
			}
		}
		for _, stok := range info.Servers {
			server := order[stok]
			if server.handle == nil {
				continue
			}
			pendingClients[server.Token]--
			if pendingClients[server.Token] <= 0 {
				server.handle.Release()
				server.handle = nil
			}
		}
	}

	for _, info := range order {
		if info.IsVariable || info.IsCategory || !info.Dirty {
			continue
		}
		if info.handle == nil && info.OutputSize > 1 {
			// a previous evaluation released this buffer in finalize.
			d.allocateFunctionBuffer(info)
		}
		waits := 0
		for _, stok := range info.Servers {
			if s := order[stok]; s.Dirty && !(s.IsVariable || s.IsCategory) {
				waits++
			}
		}
		pendingServers[info.Token] = waits
	}
	for _, info := range order {
		if _, active := pendingServers[info.Token]; !active {
			continue
		}
		for _, stok := range info.Servers {
			pendingClients[stok]++
		}
	}
	for _, info := range order {
		if waits, active := pendingServers[info.Token]; active && waits == 0 {
			dispatch(info)
		}
	}

	for len(readyCPU) > 0 || len(inFlightGPU) > 0 {
		inFlightGPU = d.drainCompletedGPU(inFlightGPU, events, gpuStream, finalize)

		if len(readyCPU) == 0 {
			if len(inFlightGPU) > 0 {
				idleSleepsTotal.Inc()
				time.Sleep(time.Millisecond)
			}
			continue
		}

		info := readyCPU[0]
		readyCPU = readyCPU[1:]
		for _, stok := range info.Servers {
			if ev, ok := events[stok]; ok {
				ev.wait()
			}
		}
		d.computeNode(info)
		finalize(info)
	}

	return watcher.Wait()
}

// drainCompletedGPU scans in-flight GPU nodes and finalizes the ones
// whose recorded event has fired, per §4.F step 3a. When the stream
// itself reports no in-flight work at all, every tracked node is known
// complete and is finalized without touching each event individually —
// isActive is a cheap batch confirmation on top of the per-node event
// checks used while the stream is still draining.
func (d *Driver) drainCompletedGPU(inFlight []*NodeInfo, events map[int]event, s stream, finalize func(*NodeInfo)) []*NodeInfo {
	if len(inFlight) == 0 {
		return inFlight
	}
	if s != nil && !s.isActive() {
		for _, info := range inFlight {
			finalize(info)
		}
		return inFlight[:0]
	}
	remaining := inFlight[:0]
	for _, info := range inFlight {
		if events[info.Token].ready() {
			finalize(info)
		} else {
			remaining = append(remaining, info)
		}
	}
	return remaining
}

// dispatchGPU enqueues info's compute onto the device stream. BindData, or
// the start of this evaluation if a previous one released it, has already
// drawn info's buffer from the pool class matching its placement (pinned
// if CopyAfterEvaluation, device otherwise). The
// enqueued closure runs asynchronously on the stream's worker goroutine;
// the caller must not treat info as complete until its recorded event
// reports ready, which is what lets a buffer be released only after
// every reader has actually run.
//
// The closure's result is also handed to watcher: a panic inside
// ComputeBatch on the stream's worker goroutine would otherwise crash
// the whole process with nothing to recover it, so the closure recovers
// its own panic into an error and watcher.Go's goroutine relays it to
// the scheduling loop's final watcher.Wait().
func (d *Driver) dispatchGPU(info *NodeInfo, s stream, events map[int]event, watcher *errgroup.Group) {
	done := make(chan error, 1)
	s.enqueue(func() {
		done <- runRecovered(func() { d.computeNode(info) })
	})
	watcher.Go(func() error {
		return <-done
	})
	ev := d.backend.newEvent()
	ev.record(s)
	events[info.Token] = ev
}

// runRecovered runs fn and converts a panic into an error describing it,
// rather than letting it propagate and crash the calling goroutine.
func runRecovered(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("driver: recovered panic on GPU stream: %v", r)
		}
	}()
	fn()
	return nil
}
