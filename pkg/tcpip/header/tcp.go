// Package header implements the bit-exact TCP segment codec: network
// byte order fields, the header-length nibble packed into the flags
// word, and the checksum computed over the IPv4 pseudo-header.
package header

import (
	"encoding/binary"
	"errors"
)

// HeaderSize is the fixed TCP header size in bytes, excluding options.
const HeaderSize = 20

// WindowSize is the fixed advertised window this implementation always
// sends; there is no flow-control window management (Non-goal).
const WindowSize = 65535

// TCPProtocolNumber is the IPv4 protocol number for TCP, used in the
// pseudo-header.
const TCPProtocolNumber = 0x06

// Flags is the low-order flag bit set of a TCP header.
type Flags uint16

const (
	FlagFIN Flags = 1 << 0
	FlagSYN Flags = 1 << 1
	FlagRST Flags = 1 << 2
	FlagPSH Flags = 1 << 3
	FlagACK Flags = 1 << 4
)

// ErrMalformedSegment is returned by Parse when the buffer is too short
// or its encoded header length is out of range.
//
// The source this is ported from slices options := bytes[20..header_len]
// without checking header_len against bytes.len(), an underflow/overflow
// the spec calls out as an unresolved bug. This implementation rejects
// both directions instead of silently panicking or misparsing.
var ErrMalformedSegment = errors.New("header: malformed tcp segment")

// Segment is a parsed TCP segment: header fields, any options, and the
// payload.
type Segment struct {
	SrcPort    uint16
	DstPort    uint16
	Sequence   uint32
	Ack        uint32
	Flags      Flags
	WindowSize uint16
	Options    []byte
	Payload    []byte
}

// headerBytes returns the on-wire header length this segment will encode
// to: 20 bytes plus any options, which must be a multiple of 4.
func (s *Segment) headerBytes() int {
	return HeaderSize + len(s.Options)
}

// Parse decodes a raw segment. It requires at least HeaderSize bytes and
// validates that the encoded header length lies within [HeaderSize,
// len(b)].
func Parse(b []byte) (*Segment, error) {
	if len(b) < HeaderSize {
		return nil, ErrMalformedSegment
	}
	flagsWord := binary.BigEndian.Uint16(b[12:14])
	headerBytes := int((flagsWord & 0xF000) >> 10)
	if headerBytes < HeaderSize || headerBytes > len(b) {
		return nil, ErrMalformedSegment
	}

	seg := &Segment{
		SrcPort:    binary.BigEndian.Uint16(b[0:2]),
		DstPort:    binary.BigEndian.Uint16(b[2:4]),
		Sequence:   binary.BigEndian.Uint32(b[4:8]),
		Ack:        binary.BigEndian.Uint32(b[8:12]),
		Flags:      Flags(flagsWord & 0x3F),
		WindowSize: binary.BigEndian.Uint16(b[14:16]),
		Options:    append([]byte(nil), b[HeaderSize:headerBytes]...),
		Payload:    append([]byte(nil), b[headerBytes:]...),
	}
	return seg, nil
}

// rawHeader packs the fixed 20-byte header, network byte order, with the
// checksum field set to the given value (0 when computing the checksum).
func (s *Segment) rawHeader(checksumField uint16) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(b[0:2], s.SrcPort)
	binary.BigEndian.PutUint16(b[2:4], s.DstPort)
	binary.BigEndian.PutUint32(b[4:8], s.Sequence)
	binary.BigEndian.PutUint32(b[8:12], s.Ack)
	flagsWord := uint16((s.headerBytes()<<10)&0xF000) | uint16(s.Flags&0x3F)
	binary.BigEndian.PutUint16(b[12:14], flagsWord)
	binary.BigEndian.PutUint16(b[14:16], WindowSize)
	binary.BigEndian.PutUint16(b[16:18], checksumField)
	binary.BigEndian.PutUint16(b[18:20], 0) // urgent pointer always 0
	return b
}

// Checksum computes the pseudo-header checksum for this segment given
// the IPv4 source and destination addresses, matching the source's
// Checksum::sum/compile over (src ip, dst ip, protocol, segment length,
// header-with-zeroed-checksum, options, payload).
func (s *Segment) Checksum(srcIP, dstIP [4]byte) uint16 {
	var proto [2]byte
	binary.BigEndian.PutUint16(proto[:], TCPProtocolNumber)

	var segLen [2]byte
	binary.BigEndian.PutUint16(segLen[:], uint16(s.headerBytes()+len(s.Payload)))

	rawHdr := s.rawHeader(0)
	return checksum(srcIP[:], dstIP[:], proto[:], segLen[:], rawHdr, s.Options, s.Payload)
}

// Serialize encodes the segment to its wire form, computing and
// embedding the pseudo-header checksum.
func (s *Segment) Serialize(srcIP, dstIP [4]byte) []byte {
	cksum := s.Checksum(srcIP, dstIP)
	out := append([]byte(nil), s.rawHeader(cksum)...)
	out = append(out, s.Options...)
	out = append(out, s.Payload...)
	return out
}
