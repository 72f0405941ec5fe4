package cowtarget

// Map is the request mapper's hot path (spec.md §4.3). It must never
// block: it takes no locks that a writer can hold for long, and its only
// allocation (a Job from the job pool) is a non-blocking channel receive.
//
// The reader critical section spans job allocation and enqueue so the
// target's devices and pools cannot be torn down while Map still holds a
// reference to them (spec.md §4.3 note, §9 first open question);
// Teardown's drain-then-release ordering (target.go) depends on this.
func (t *Target) Map(req *Request) Outcome {
	chunk := chunkOf(req.StartSector)
	if !chunkBoundsOK(chunk, t.bitmap.NrChunks()) {
		return Kill
	}

	snap, guard := t.bitmap.ReadSnapshot()
	defer guard.Release()

	if snap.test(chunk) {
		req.remap(t.cow, cowSector(req.StartSector))
		return Remapped
	}

	if req.Dir == Read {
		// Virtual sector 0 maps to origin sector 0: no adjustment.
		req.remap(t.origin, req.StartSector)
		return Remapped
	}

	job, ok := t.jobs.acquire()
	if !ok {
		t.stats.jobPoolExhausted.Add(1)
		return Kill
	}

	job.target = t
	job.req = req
	job.chunk = chunk
	job.state = jobInitialized
	job.err = nil

	if !t.workers.submit(job.run) {
		t.jobs.release(job)
		return Kill
	}
	return Submitted
}
