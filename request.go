package cowtarget

// Direction is the direction of an incoming request.
type Direction int

const (
	// Read is a read request.
	Read Direction = iota
	// Write is a write request.
	Write
)

// String implements fmt.Stringer for log output.
func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Request is an incoming I/O request against the virtual device, standing
// in for the host block-layer framework's bio/request object (spec.md §3
// "Incoming request"). The core never copies or inspects Buffer's contents
// except by handing it to a device's ReadAt/WriteAt; ownership stays with
// the submitter.
type Request struct {
	Dir          Direction
	StartSector  uint64 // sector on the virtual device
	Buffer       []byte // length is a multiple of SectorSize
	Device       BlockDevice
	deviceSector uint64 // sector to use against Device once remapped
}

// Len returns the request's length in sectors.
func (r *Request) Len() uint64 {
	return uint64(len(r.Buffer)) / SectorSize
}

// remap rewrites the request to target dev at sector, the mutation spec.md
// §4.3 describes the mapper performing in place before returning REMAPPED.
func (r *Request) remap(dev BlockDevice, sector uint64) {
	r.Device = dev
	r.deviceSector = sector
}

// Submit performs the request's I/O against whatever device it was last
// remapped to, at the sector recorded by that remap. It is the "caller
// re-dispatches it" half of the REMAPPED contract and the "re-submit it
// into the block framework" step at the end of a CoW job (spec.md §4.3,
// §4.4 step 5) — in a real host this would hand the request back to the
// block layer instead of performing the I/O inline, but nothing outside
// this package plays that role here.
func (r *Request) Submit() error {
	off := int64(r.deviceSector * SectorSize)
	if r.Dir == Write {
		if _, err := r.Device.WriteAt(r.Buffer, off); err != nil {
			return err
		}
		return r.Device.SyncAt(off, int64(len(r.Buffer)))
	}
	_, err := r.Device.ReadAt(r.Buffer, off)
	return err
}

// Outcome is the mapper's verdict for one Request (spec.md §4.3).
type Outcome int

const (
	// Remapped means the request has been redirected in place; the
	// caller should call Request.Submit (or re-dispatch to its own
	// framework) to actually perform the I/O.
	Remapped Outcome = iota
	// Submitted means the core has taken ownership of the request and
	// will complete it asynchronously via a CoW job.
	Submitted
	// Kill means the request is rejected; the caller should fail it.
	Kill
)

// String implements fmt.Stringer for log output.
func (o Outcome) String() string {
	switch o {
	case Remapped:
		return "remapped"
	case Submitted:
		return "submitted"
	default:
		return "kill"
	}
}
