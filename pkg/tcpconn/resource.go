// Package tcpconn implements the TCP resource: the state a single
// connection carries (sequence, acknowledge, peer and host ports) and
// the handshake, data transfer, and teardown operations performed
// against an ip.Handle.
package tcpconn

import (
	"fmt"
	"sync"

	"github.com/mohae/deepcopy"
	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/diagnostics"
	"github.com/redox-rs/schemeio/pkg/ip"
	"github.com/redox-rs/schemeio/pkg/tcpip/header"
	"github.com/redox-rs/schemeio/pkg/tcpip/seqnum"
)

// connState is the slice of connection state worth snapshotting for
// diagnostics each time a segment goes out, deepcopy.Copy'd so the log
// record can't be mutated by a later send.
type connState struct {
	Sequence    uint32
	Acknowledge uint32
	PeerPort    uint16
	HostPort    uint16
}

// Resource is one open TCP connection. Like the source's Resource it
// owns a single underlying ip.Handle and tracks just enough state to
// drive the handshake and the PSH/ACK data exchange: no retransmission,
// no window management, no out-of-order reassembly.
//
// mu guards the mutable connection state the way the teacher's
// fileDescription guards its offset. A Dup'd Resource starts from a
// copy of that state and has its own mu; updates made through one
// Resource are not seen by the other.
type Resource struct {
	mu sync.Mutex

	ip       ip.Handle
	hostAddr [4]byte
	peerAddr [4]byte
	peerPort uint16
	hostPort uint16

	sequence    seqnum.Value
	acknowledge seqnum.Value

	log  *zap.Logger
	diag *diagnostics.Log
}

// New wraps an already-open ip.Handle as a TCP resource in its initial,
// pre-handshake state.
func New(h ip.Handle, hostAddr, peerAddr [4]byte, peerPort, hostPort uint16, sequence, acknowledge uint32, log *zap.Logger) *Resource {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resource{
		ip:          h,
		hostAddr:    hostAddr,
		peerAddr:    peerAddr,
		peerPort:    peerPort,
		hostPort:    hostPort,
		sequence:    seqnum.Value(sequence),
		acknowledge: seqnum.Value(acknowledge),
		log:         log,
		diag:        diagnostics.New(log),
	}
}

// Path renders the resource's canonical tcp:// URL, peer address and
// port embedded in the host, local port as the path component.
func (r *Resource) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("tcp://%d.%d.%d.%d:%d/%d",
		r.peerAddr[0], r.peerAddr[1], r.peerAddr[2], r.peerAddr[3],
		r.peerPort, r.hostPort)
}

// Dup duplicates the underlying ip.Handle and returns an independent
// Resource over the same connection state.
func (r *Resource) Dup() (*Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup, err := r.ip.Dup()
	if err != nil {
		return nil, err
	}
	return &Resource{
		ip:          dup,
		hostAddr:    r.hostAddr,
		peerAddr:    r.peerAddr,
		peerPort:    r.peerPort,
		hostPort:    r.hostPort,
		sequence:    r.sequence,
		acknowledge: r.acknowledge,
		log:         r.log,
		diag:        r.diag,
	}, nil
}

// matches reports whether seg was sent to us by our peer: destination
// port is ours and source port is our peer's, the only demultiplexing
// rule this subsystem applies (no sequence-window validation).
func (r *Resource) matches(seg *header.Segment) bool {
	return seg.DstPort == r.hostPort && seg.SrcPort == r.peerPort
}

func (r *Resource) send(flags header.Flags, payload []byte) error {
	state := deepcopy.Copy(connState{
		Sequence:    uint32(r.sequence),
		Acknowledge: uint32(r.acknowledge),
		PeerPort:    r.peerPort,
		HostPort:    r.hostPort,
	}).(connState)
	r.log.Debug("sending tcp segment",
		zap.Uint16("flags", uint16(flags)),
		zap.Uint32("sequence", state.Sequence),
		zap.Uint32("acknowledge", state.Acknowledge))

	seg := &header.Segment{
		SrcPort:  r.hostPort,
		DstPort:  r.peerPort,
		Sequence: uint32(r.sequence),
		Ack:      uint32(r.acknowledge),
		Flags:    flags,
		Payload:  payload,
	}
	wire := seg.Serialize(r.hostAddr, r.peerAddr)
	return r.ip.WriteDatagram(wire)
}

// recv blocks for the next segment addressed to this connection,
// discarding any that don't match.
func (r *Resource) recv() (*header.Segment, error) {
	for {
		b, err := r.ip.ReadDatagram()
		if err != nil {
			return nil, err
		}
		seg, err := header.Parse(b)
		if err != nil {
			r.log.Debug("dropping malformed tcp segment", zap.Error(err))
			continue
		}
		if !r.matches(seg) {
			continue
		}
		return seg, nil
	}
}

// Read blocks for the next PSH+ACK data segment, ACKs it, and copies as
// much of its payload into buf as fits.
//
// Matching the source exactly: if buf is shorter than the segment's
// payload, the remainder is silently dropped rather than buffered for a
// subsequent Read. Preserved intentionally; see the pkg/tcpconn entry
// in DESIGN.md.
func (r *Resource) Read(buf []byte) (int, error) {
	for {
		seg, err := r.recv()
		if err != nil {
			return 0, err
		}
		if seg.Flags&(header.FlagPSH|header.FlagSYN|header.FlagACK) != (header.FlagPSH | header.FlagACK) {
			continue
		}

		r.mu.Lock()
		r.sequence = seqnum.Value(seg.Ack)
		r.acknowledge = seqnum.Value(seg.Sequence)
		r.acknowledge.UpdateForward(seqnum.Size(len(seg.Payload)))
		ackErr := r.send(header.FlagACK, nil)
		r.mu.Unlock()
		if ackErr != nil {
			return 0, ackErr
		}

		n := copy(buf, seg.Payload)
		return n, nil
	}
}

// Write sends buf as a single PSH+ACK segment and blocks for the peer's
// ACK.
func (r *Resource) Write(buf []byte) (int, error) {
	r.mu.Lock()
	if err := r.send(header.FlagPSH|header.FlagACK, buf); err != nil {
		r.mu.Unlock()
		return 0, err
	}
	r.mu.Unlock()

	for {
		seg, err := r.recv()
		if err != nil {
			return 0, err
		}
		if seg.Flags&(header.FlagPSH|header.FlagSYN|header.FlagACK) != header.FlagACK {
			return 0, header.ErrMalformedSegment
		}
		r.mu.Lock()
		r.sequence = seqnum.Value(seg.Ack)
		r.acknowledge = seqnum.Value(seg.Sequence)
		r.mu.Unlock()
		return len(buf), nil
	}
}

// ClientEstablish performs the active-open three-way handshake: send
// SYN, wait for SYN-ACK, send ACK.
func (r *Resource) ClientEstablish() (ok bool) {
	defer func() { r.diag.Handshake("client", r.hostPort, r.peerPort, ok) }()

	r.mu.Lock()
	err := r.send(header.FlagSYN, nil)
	r.mu.Unlock()
	if err != nil {
		return false
	}

	seg, err := r.recv()
	if err != nil {
		return false
	}
	if seg.Flags&(header.FlagPSH|header.FlagSYN|header.FlagACK) != (header.FlagSYN | header.FlagACK) {
		return false
	}

	r.mu.Lock()
	r.sequence = seqnum.Value(seg.Ack)
	r.acknowledge = seqnum.Value(seg.Sequence)
	r.acknowledge.UpdateForward(1)
	err = r.send(header.FlagACK, nil)
	r.mu.Unlock()
	return err == nil
}

// ServerEstablish performs the passive-open handshake given the SYN
// that triggered it: send SYN-ACK, wait for the client's final ACK.
func (r *Resource) ServerEstablish(syn *header.Segment) (ok bool) {
	defer func() { r.diag.Handshake("server", r.hostPort, r.peerPort, ok) }()

	r.mu.Lock()
	r.acknowledge.UpdateForward(1)
	err := r.send(header.FlagSYN|header.FlagACK, nil)
	r.mu.Unlock()
	if err != nil {
		return false
	}

	seg, err := r.recv()
	if err != nil {
		return false
	}
	if seg.Flags&(header.FlagPSH|header.FlagSYN|header.FlagACK) != header.FlagACK {
		return false
	}

	r.mu.Lock()
	r.sequence = seqnum.Value(seg.Ack)
	r.acknowledge = seqnum.Value(seg.Sequence)
	r.mu.Unlock()
	return true
}

// Close sends the FIN-ACK teardown segment, mirroring the source's
// Drop impl: the send is best-effort and its error is ignored. Close
// then closes the ip.Handle and returns that result.
func (r *Resource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.send(header.FlagFIN|header.FlagACK, nil)
	return r.ip.Close()
}

// Sync has nothing of its own to flush and always returns true; it
// does not call into the ip.Handle, which has no sync operation.
func (r *Resource) Sync() bool {
	return true
}
