package cowtarget

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// jobState is the CoW job's state tag, per spec.md §4.4.
type jobState int32

const (
	jobInitialized jobState = iota
	jobCopying
	jobUpdating
	jobPersisting
	jobCompleting
	jobError
)

func (s jobState) String() string {
	switch s {
	case jobInitialized:
		return "initialized"
	case jobCopying:
		return "copying"
	case jobUpdating:
		return "updating"
	case jobPersisting:
		return "persisting"
	case jobCompleting:
		return "completing"
	case jobError:
		return "error"
	default:
		return "unknown"
	}
}

// Job is the per-first-write CoW state machine (spec.md §3 "CoW job",
// §4.4). It is transient: allocated from a jobPool in the mapper, driven to
// completion by a worker goroutine, and freed back to the pool on any
// terminal transition.
type Job struct {
	target *Target
	req    *Request
	chunk  uint64
	state  jobState
	err    error
	seq    uint64
}

// run drives the job through COPYING -> UPDATING -> PERSISTING ->
// COMPLETING, or to ERROR, exactly following the worker algorithm in
// spec.md §4.4. It always ends by releasing the job back to its pool.
func (j *Job) run() {
	t := j.target
	defer t.jobs.release(j)

	// Step 1: early short-circuit (another job may have already won the
	// race on this chunk between enqueue and now).
	if t.bitmap.Test(j.chunk) {
		j.finishOK()
		return
	}

	if err := j.copy(); err != nil {
		j.fail(err)
		return
	}

	if err := j.updateAndPersist(); err != nil {
		j.fail(err)
		return
	}

	j.finishOK()
}

// copy implements state COPYING: synchronously read the chunk from origin
// and write it to cow with write-through + FUA durability.
func (j *Job) copy() error {
	j.state = jobCopying
	t := j.target

	buf := t.getChunkBuffer()
	defer t.putChunkBuffer(buf)

	if err := sectorReadAt(t.origin, chunkStartSector(j.chunk), ChunkSectors, buf); err != nil {
		return fmt.Errorf("%w: copy chunk %d from origin: %v", ErrIO, j.chunk, err)
	}
	if err := sectorWriteAtDurable(t.cow, chunkDataSector(j.chunk), buf); err != nil {
		return fmt.Errorf("%w: copy chunk %d to cow: %v", ErrIO, j.chunk, err)
	}
	t.stats.chunksCopied.Add(1)
	return nil
}

// updateAndPersist implements states UPDATING and PERSISTING as one
// critical section under the bitmap's write lock, so a concurrent job
// persisting the same metadata sector is excluded (spec.md §4.4 step 4).
func (j *Job) updateAndPersist() error {
	t := j.target
	bm := t.bitmap

	bm.Lock()
	defer bm.Unlock()

	j.state = jobUpdating
	if bm.TestLocked(j.chunk) {
		// A concurrent job already won; nothing left to do (I4).
		return nil
	}
	bm.SetLocked(j.chunk)

	j.state = jobPersisting
	idx, ok := metadataSectorIndex(j.chunk)
	if !ok {
		bm.ClearLocked(j.chunk)
		return fmt.Errorf("%w: metadata sector %d for chunk %d", ErrOutOfBounds, idx, j.chunk)
	}

	sector := bm.SnapshotBitsLocked()[idx*SectorSize : (idx+1)*SectorSize]
	if err := sectorWriteAtDurable(t.cow, idx, sector); err != nil {
		bm.ClearLocked(j.chunk) // roll back I2: not durable, so not set
		return fmt.Errorf("%w: persist bitmap sector %d: %v", ErrIO, idx, err)
	}
	return nil
}

// finishOK implements state COMPLETING: rewrite the original request to
// target cow at the chunk's cow sector and re-submit it, then free the job.
func (j *Job) finishOK() {
	j.state = jobCompleting
	t := j.target
	j.req.remap(t.cow, cowSector(j.req.StartSector))
	if err := j.req.Submit(); err != nil {
		j.fail(fmt.Errorf("%w: re-submit request for chunk %d: %v", ErrIO, j.chunk, err))
		return
	}
	t.stats.requestsCompleted.Add(1)
}

// fail implements the ERROR transition: record the error, log it, and
// count it. The job never retries; the submitter may retry at a higher
// layer (spec.md §7 propagation policy).
func (j *Job) fail(err error) {
	j.state = jobError
	j.err = err
	t := j.target
	t.stats.jobsFailed.Add(1)
	t.logger().WithFields(logrus.Fields{
		"target": t.id,
		"chunk":  j.chunk,
		"seq":    j.seq,
	}).WithError(err).Error("cowtarget: CoW job failed")
}
