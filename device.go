package cowtarget

import (
	"io"
	"os"
)

// BlockDevice is the interface the core needs from a backing device. It
// stands in for the host framework's device handle: the core only ever
// issues synchronous, sector-aligned reads and writes, and expects SyncAt
// to give write-through plus force-unit-access durability for the range
// just written (spec.md §6 "Durability").
type BlockDevice interface {
	io.ReaderAt
	io.WriterAt
	// SyncAt forces any volatile cache covering [off, off+n) to durable
	// media. Implementations that are always write-through (O_DIRECT,
	// O_DSYNC) may treat this as a no-op.
	SyncAt(off, n int64) error
	// Close releases the device handle.
	Close() error
}

// FileDevice is a BlockDevice backed by an *os.File opened with O_SYNC, the
// simplest faithful rendering of "write-through + FUA" available from the
// standard library without CGo access to direct I/O flags.
type FileDevice struct {
	f *os.File
}

// OpenFileDevice opens path as a BlockDevice. readOnly controls whether the
// file is opened O_RDONLY (for the origin) or O_RDWR|O_SYNC (for cow).
func OpenFileDevice(path string, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR | os.O_SYNC
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

// ReadAt reads len(p) bytes starting at byte offset off.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

// WriteAt writes len(p) bytes starting at byte offset off.
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

// SyncAt flushes the whole file to durable media with f.Sync. For a handle
// opened O_SYNC every WriteAt is already durable when it returns, so the
// flush is redundant there; for a handle opened without O_SYNC (such as
// the one OpenFileDeviceCreate returns) it is what makes the writes durable.
func (d *FileDevice) SyncAt(_, _ int64) error {
	return d.f.Sync()
}

// Close closes the underlying file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

// Size returns the device's current size in bytes.
func (d *FileDevice) Size() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// truncate sets the underlying file's size, used by InitCowDevice to lay
// out a fresh cow device.
func (d *FileDevice) truncate(size int64) error {
	return d.f.Truncate(size)
}

// OpenFileDeviceCreate creates (or truncates) path and opens it O_RDWR for
// use as a cow device, used by InitCowDevice to lay out a fresh device.
func OpenFileDeviceCreate(path string) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f}, nil
}

// sectorReadAt reads nSectors sectors starting at sector startSector from
// dev into p, which must be exactly nSectors*SectorSize bytes.
func sectorReadAt(dev BlockDevice, startSector, nSectors uint64, p []byte) error {
	_, err := dev.ReadAt(p, int64(startSector*SectorSize))
	return err
}

// sectorWriteAtDurable writes p (whose length must be a multiple of
// SectorSize) to dev at startSector, then forces it durable with
// write-through + FUA semantics, satisfying spec.md §6's durability
// requirement for both the 4 KiB data copy and the 512-byte bitmap sector.
func sectorWriteAtDurable(dev BlockDevice, startSector uint64, p []byte) error {
	off := int64(startSector * SectorSize)
	if _, err := dev.WriteAt(p, off); err != nil {
		return err
	}
	return dev.SyncAt(off, int64(len(p)))
}
