package cowtarget

import "sync/atomic"

// jobPool is a bounded, pre-allocated pool of *Job records. Acquire never
// blocks and never allocates once the pool has been warmed up: both the
// acquire and release paths are non-blocking channel operations over a
// buffer sized at construction time, matching spec.md §9's requirement
// that the worker pool's forward progress not depend on fresh allocation
// under memory pressure, and §4.3/§5's requirement that the mapper's
// acquisition be non-sleeping.
type jobPool struct {
	slots chan *Job
	seq   atomic.Uint64
}

// newJobPool creates a jobPool with capacity pre-allocated *Job records.
func newJobPool(capacity int) *jobPool {
	p := &jobPool{slots: make(chan *Job, capacity)}
	for i := 0; i < capacity; i++ {
		p.slots <- &Job{}
	}
	return p
}

// acquire takes one Job record from the pool without blocking. ok is false
// if the pool is currently empty, which the mapper surfaces as Kill
// (spec.md §4.3 step 5, §7 ResourceExhaustion).
func (p *jobPool) acquire() (job *Job, ok bool) {
	select {
	case j := <-p.slots:
		j.seq = p.seq.Add(1)
		return j, true
	default:
		return nil, false
	}
}

// release returns job to the pool after its terminal transition, resetting
// its fields so the next acquirer doesn't see stale state.
func (p *jobPool) release(job *Job) {
	seq := job.seq
	*job = Job{seq: seq}
	select {
	case p.slots <- job:
	default:
		// Every job came from this pool, so the buffer always has room;
		// this default case exists only so release can never block.
	}
}

// cap returns the pool's fixed capacity.
func (p *jobPool) cap() int {
	return cap(p.slots)
}
