package block

import "sync/atomic"

// Device is the interface a block device exposes to this subsystem. The
// concrete IDE driver behind it — identify, interrupt-driven request
// draining — lives outside this module's scope; Device is the seam the
// spec calls out as an external collaborator.
type Device interface {
	// Identify probes the device and reports whether it is present and
	// usable.
	Identify() bool

	// Read synchronously reads count sectors starting at block into addr.
	// addr must be at least count*SectorSize bytes.
	Read(block uint64, count uint16, addr []byte) error

	// Request enqueues an asynchronous block request. The device drains
	// its queue (IRQ-driven on real hardware) and sets r.Complete when
	// done.
	Request(r *Request)

	// OnPoll drains any completed requests. Called from an IRQ handler or
	// from a cooperative polling loop.
	OnPoll()
}

// Request is a single asynchronous block operation.
type Request struct {
	Extent   Extent
	Mem      []byte
	Read     bool
	Complete *atomic.Bool
}

// NewRequest builds a Request with a fresh, unset completion flag.
func NewRequest(extent Extent, mem []byte, read bool) *Request {
	return &Request{
		Extent:   extent,
		Mem:      mem,
		Read:     read,
		Complete: new(atomic.Bool),
	}
}
