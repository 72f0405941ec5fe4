package cowtarget

import (
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// workerPool is the scheduler bridge (spec.md §2 item 8): a bounded pool of
// goroutines that execute CoW jobs asynchronously, built on
// sourcegraph/conc so a panicking job is caught and re-raised at drain
// rather than silently taking the process down. It also supports the
// drain-to-quiescence teardown operation spec.md §4.6 and §9 require:
// once closed, submit refuses new work so a caller can safely wait for
// everything already running to finish before releasing devices.
type workerPool struct {
	mu     sync.RWMutex
	closed bool
	p      *pool.Pool
}

// newWorkerPool creates a workerPool. maxConcurrency of 0 leaves the number
// of concurrently running jobs unbounded, matching spec.md §4.6's
// "unbounded concurrency hint" default.
func newWorkerPool(maxConcurrency int) *workerPool {
	p := pool.New()
	if maxConcurrency > 0 {
		p = p.WithMaxGoroutines(maxConcurrency)
	}
	return &workerPool{p: p}
}

// submit schedules fn to run on the pool. It returns false without running
// fn if the pool has already been drained.
func (w *workerPool) submit(fn func()) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	w.p.Go(fn)
	return true
}

// drain stops accepting new work and blocks until every job already
// submitted has returned, re-panicking if any job panicked (conc's
// behavior) so a teardown bug surfaces loudly instead of leaking a
// goroutine.
func (w *workerPool) drain() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.p.Wait()
}
