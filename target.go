package cowtarget

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// stats holds lock-free counters a Target exposes for operational
// visibility; reading them never blocks and never contends with the hot
// path.
type stats struct {
	chunksCopied      atomic.Uint64 // origin->cow data transfers issued by copy(); bitmap.Transitions() is the P3 counter, not this one
	requestsCompleted atomic.Uint64 // CoW jobs that reached COMPLETING, win or short-circuit
	jobsFailed        atomic.Uint64
	jobPoolExhausted  atomic.Uint64
}

// Stats is a point-in-time snapshot of a Target's counters.
type Stats struct {
	ChunksCopied      uint64
	RequestsCompleted uint64
	JobsFailed        uint64
	JobPoolExhausted  uint64
}

// Target is the per-active-device context (spec.md §3 "Target context").
// It owns the origin and cow device handles, the published bitmap
// snapshot, the mutex serializing bitmap mutations, and the worker and
// job-record pools that drive CoW jobs.
type Target struct {
	id     uuid.UUID
	origin BlockDevice
	cow    BlockDevice

	bitmap  *Bitmap
	jobs    *jobPool
	workers *workerPool
	stats   stats

	log        logrus.FieldLogger
	chunkPool  sync.Pool
	sectorsVDS uint64 // virtual device size in sectors as given to Activate; Map bounds-checks against the bitmap's chunk count instead
}

// ID returns the target's instance identifier, used to correlate log lines
// when multiple targets are active in one process.
func (t *Target) ID() uuid.UUID {
	return t.id
}

// Stats returns a snapshot of the target's counters.
func (t *Target) Stats() Stats {
	return Stats{
		ChunksCopied:      t.stats.chunksCopied.Load(),
		RequestsCompleted: t.stats.requestsCompleted.Load(),
		JobsFailed:        t.stats.jobsFailed.Load(),
		JobPoolExhausted:  t.stats.jobPoolExhausted.Load(),
	}
}

// NrChunks returns the number of chunks the target's bitmap covers.
func (t *Target) NrChunks() uint64 {
	return t.bitmap.NrChunks()
}

// ChunkResident reports whether chunk currently lives on the cow device.
func (t *Target) ChunkResident(chunk uint64) bool {
	return t.bitmap.Test(chunk)
}

func (t *Target) logger() logrus.FieldLogger {
	return t.log
}

func (t *Target) getChunkBuffer() []byte {
	buf, ok := t.chunkPool.Get().([]byte)
	if !ok {
		buf = make([]byte, ChunkBytes)
	}
	return buf
}

func (t *Target) putChunkBuffer(buf []byte) {
	t.chunkPool.Put(buf) //nolint:staticcheck // []byte is a reference type; the backing array is heap-allocated
}

// Activate parses exactly two arguments (origin device path, cow device
// path), per spec.md §6 "Activation arguments", opens both devices, loads
// the redirection bitmap from cow, and publishes it, returning a ready
// Target. Any step's failure unwinds prior allocations in reverse order
// (spec.md §4.6, §7 "Activation errors").
func Activate(sectors uint64, args []string, opts ...Option) (*Target, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: Invalid argument count", ErrInvalidArgument)
	}
	originPath, cowPath := args[0], args[1]

	nrChunks := nrChunksForSectors(sectors)
	if nrChunks > MaxChunks {
		return nil, fmt.Errorf("%w: target of %d chunks exceeds maximum of %d chunks (128 MiB)",
			ErrInvalidArgument, nrChunks, MaxChunks)
	}

	o := defaultActivateOptions()
	for _, opt := range opts {
		opt(o)
	}

	origin, err := OpenFileDevice(originPath, true)
	if err != nil {
		return nil, fmt.Errorf("%w: open origin device %q: %v", ErrResourceExhaustion, originPath, err)
	}

	cow, err := OpenFileDevice(cowPath, false)
	if err != nil {
		origin.Close()
		return nil, fmt.Errorf("%w: open cow device %q: %v", ErrResourceExhaustion, cowPath, err)
	}

	jobs := newJobPool(o.jobPoolCapacity)
	workers := newWorkerPool(o.workerConcurrency)

	bitmap, err := loadBitmap(cow, nrChunks)
	if err != nil {
		cow.Close()
		origin.Close()
		return nil, err
	}

	t := &Target{
		id:         uuid.New(),
		origin:     origin,
		cow:        cow,
		bitmap:     bitmap,
		jobs:       jobs,
		workers:    workers,
		log:        o.logger,
		sectorsVDS: sectors,
	}

	t.log.WithFields(logrus.Fields{
		"target":    t.id,
		"nr_chunks": nrChunks,
		"origin":    originPath,
		"cow":       cowPath,
	}).Info("cowtarget: activated")

	return t, nil
}

// Teardown quiesces all outstanding CoW jobs, then releases the worker
// pool, job pool, and device handles, in the order spec.md §4.6 and §9
// require: drain workers (no more jobs can start, wait for running ones to
// finish) before anything the jobs might still be touching is released.
func (t *Target) Teardown() error {
	t.workers.drain()

	var firstErr error
	if err := t.cow.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := t.origin.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	t.log.WithFields(logrus.Fields{
		"target": t.id,
		"stats":  t.Stats(),
	}).Info("cowtarget: torn down")

	return firstErr
}
