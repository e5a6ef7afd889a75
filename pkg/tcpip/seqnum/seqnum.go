// Package seqnum provides the wrapping-arithmetic sequence number type
// used by the TCP connection state machine (pkg/tcpconn), mirroring
// the teacher's own pkg/tcpip/seqnum (imported directly by
// test/packetimpact/testbench/connections.go for tracking local/remote
// sequence numbers across a handshake).
package seqnum

// Value is a TCP sequence or acknowledgement number. Arithmetic on Value
// wraps modulo 2^32, matching RFC 793 sequence space semantics.
type Value uint32

// Size is a byte count used to advance a Value.
type Size uint32

// Add returns v advanced by delta, wrapping as uint32 arithmetic does.
func (v Value) Add(delta Size) Value {
	return v + Value(delta)
}

// UpdateForward advances v in place by size bytes.
func (v *Value) UpdateForward(size Size) {
	*v = v.Add(size)
}

// LessThan reports whether v occurs before w in sequence-number space,
// accounting for wraparound: the comparison is done on the signed
// difference, so it stays correct across a 32-bit wrap.
func (v Value) LessThan(w Value) bool {
	return int32(v-w) < 0
}

// InWindow reports whether v falls within [start, start+size) in
// sequence-number space.
func (v Value) InWindow(start Value, size Size) bool {
	return Size(v-start) < size
}
