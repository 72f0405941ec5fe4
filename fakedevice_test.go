package cowtarget

import (
	"fmt"
	"sync"
)

// memDevice is an in-memory BlockDevice for tests that a real *os.File
// can't serve: injecting a write failure at a specific byte range so a
// test can simulate the cow device's metadata-sector persist failing
// right after the chunk data copy has already landed durably.
type memDevice struct {
	mu   sync.Mutex
	data []byte

	failStart, failEnd int64 // [failStart, failEnd) triggers WriteAt failures; failEnd == 0 disables
	failOnce           bool
	tripped            bool
}

// newMemDevice returns a zero-filled in-memory device of size bytes.
func newMemDevice(size int64) *memDevice {
	return &memDevice{data: make([]byte, size)}
}

// ReadAt implements BlockDevice.
func (d *memDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copy(p, d.data[off:]), nil
}

// WriteAt implements BlockDevice, failing if [off, off+len(p)) overlaps a
// range configured by failWritesInRange.
func (d *memDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shouldFailLocked(off, int64(len(p))) {
		return 0, fmt.Errorf("memDevice: injected write failure at offset %d len %d", off, len(p))
	}
	return copy(d.data[off:], p), nil
}

func (d *memDevice) shouldFailLocked(off, n int64) bool {
	if d.failEnd == 0 || (d.failOnce && d.tripped) {
		return false
	}
	if off < d.failEnd && off+n > d.failStart {
		d.tripped = true
		return true
	}
	return false
}

// SyncAt implements BlockDevice as a no-op; memDevice has no volatile cache.
func (d *memDevice) SyncAt(_, _ int64) error { return nil }

// Close implements BlockDevice as a no-op.
func (d *memDevice) Close() error { return nil }

// failWritesInRange arms the device to fail any WriteAt whose byte range
// overlaps [start, end). once restricts that to the first overlapping
// write, letting a later retry of the same range through, which matches
// how a one-shot injected I/O fault behaves.
func (d *memDevice) failWritesInRange(start, end int64, once bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failStart, d.failEnd, d.failOnce, d.tripped = start, end, once, false
}
