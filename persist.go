package cowtarget

import "fmt"

// loadBitmap implements the metadata loader (spec.md §4.5): allocate and
// zero a bitmap buffer, compute how many sectors are needed to cover
// nrChunks bits, reject activation if that exceeds the reserved region,
// and synchronously read that many sectors from the cow device's sector 0.
//
// Zero-filling first means a never-initialized cow device (all zero bytes)
// is read back as an all-clear bitmap, so every chunk is correctly served
// from origin (spec.md §4.5 final sentence, §9 second open question).
func loadBitmap(cow BlockDevice, nrChunks uint64) (*Bitmap, error) {
	nBytes := (nrChunks + 7) / 8
	nSectors := (nBytes + SectorSize - 1) / SectorSize
	if nSectors > MetadataSectors {
		return nil, fmt.Errorf("%w: bitmap for %d chunks needs %d metadata sectors, only %d reserved",
			ErrOutOfBounds, nrChunks, nSectors, MetadataSectors)
	}

	raw := make([]byte, MetadataBytes)
	if nSectors > 0 {
		if err := sectorReadAt(cow, 0, nSectors, raw[:nSectors*SectorSize]); err != nil {
			return nil, fmt.Errorf("%w: load bitmap from cow device: %v", ErrIO, err)
		}
	}
	return NewBitmapFromBytes(nrChunks, raw), nil
}

// InitCowDevice writes a cow device file sized to back a target of
// nrChunks chunks: MetadataSectors of zeroed bitmap followed by nrChunks
// chunks of zeroed data. It is the deployment-side half of the open
// question in spec.md §9: rather than adding a header magic to
// distinguish a fresh cow device from a recycled one, this repo requires
// the deployer to start from a device this function produced (see
// DESIGN.md).
func InitCowDevice(path string, nrChunks uint64) error {
	if nrChunks == 0 || nrChunks > MaxChunks {
		return fmt.Errorf("%w: nrChunks %d out of range 1..%d", ErrInvalidArgument, nrChunks, MaxChunks)
	}

	dev, err := OpenFileDeviceCreate(path)
	if err != nil {
		return err
	}
	defer dev.Close()

	totalSectors := MetadataSectors + nrChunks*ChunkSectors
	if err := dev.truncate(int64(totalSectors) * SectorSize); err != nil {
		return fmt.Errorf("%w: size cow device: %v", ErrIO, err)
	}
	return dev.SyncAt(0, int64(totalSectors)*SectorSize)
}
