// Package ip defines the seam between the TCP subsystem and the
// lower-level "ip" scheme it runs over. The ip scheme itself — routing,
// fragmentation, the network device — is an external collaborator named
// only by the interface it exposes here.
package ip

import "errors"

// ErrClosed is returned by Handle.ReadDatagram when the underlying transport has
// been closed; it is the only non-success exit from the TCP read loops.
var ErrClosed = errors.New("ip: transport closed")

// Handle is one open "ip://" resource: a stream of whole IP datagrams in
// and out, matching the source's use of File::read_to_end/write against
// an ip:// resource.
type Handle interface {
	// ReadDatagram blocks until a full datagram arrives and returns it.
	// It returns ErrClosed once the transport is closed; there is no
	// other way for a caller to observe closure.
	ReadDatagram() ([]byte, error)

	// WriteDatagram sends a single datagram.
	WriteDatagram(b []byte) error

	// URL returns the URL this handle is bound to (used by the TCP
	// passive-open path to recover the accepted peer's address).
	URL() string

	// Dup returns an independent handle sharing the same transport.
	Dup() (Handle, error)

	// Close releases the handle.
	Close() error
}

// Opener opens an "ip://" resource by URL, standing in for the
// URL-dispatch machinery (out of scope per the spec) that would route
// "ip://host/6" to the real ip scheme.
type Opener func(url string) (Handle, error)
