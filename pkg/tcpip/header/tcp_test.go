package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redox-rs/schemeio/pkg/tcpip/header"
)

var srcIP = [4]byte{10, 0, 0, 1}
var dstIP = [4]byte{10, 0, 0, 2}

func TestRoundTripEmptyOptions(t *testing.T) {
	seg := &header.Segment{
		SrcPort:  1234,
		DstPort:  80,
		Sequence: 1000,
		Ack:      2000,
		Flags:    header.FlagSYN | header.FlagACK,
		Payload:  []byte("hello"),
	}

	wire := seg.Serialize(srcIP, dstIP)
	got, err := header.Parse(wire)
	require.NoError(t, err)

	assert.Equal(t, seg.SrcPort, got.SrcPort)
	assert.Equal(t, seg.DstPort, got.DstPort)
	assert.Equal(t, seg.Sequence, got.Sequence)
	assert.Equal(t, seg.Ack, got.Ack)
	assert.Equal(t, seg.Flags, got.Flags)
	assert.Equal(t, seg.Payload, got.Payload)
	assert.Empty(t, got.Options)

	// Recomputing the checksum over the whole serialized datagram
	// (including the embedded checksum field) must come out to zero, the
	// standard Internet-checksum validity property.
	assert.Equal(t, uint16(0), directChecksum(wire, srcIP, dstIP))
}

func directChecksum(wire []byte, srcIP, dstIP [4]byte) uint16 {
	// Pseudo header: src ip, dst ip, zero byte + protocol, segment length.
	pseudo := make([]byte, 0, 12+len(wire))
	pseudo = append(pseudo, srcIP[:]...)
	pseudo = append(pseudo, dstIP[:]...)
	pseudo = append(pseudo, 0, header.TCPProtocolNumber)
	segLen := uint16(len(wire))
	pseudo = append(pseudo, byte(segLen>>8), byte(segLen))
	pseudo = append(pseudo, wire...)
	return onesComplementSum(pseudo)
}

func onesComplementSum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

func TestHeaderLengthEncodingRoundTrips(t *testing.T) {
	for _, optLen := range []int{0, 4, 8, 40} {
		seg := &header.Segment{Options: make([]byte, optLen)}
		wire := seg.Serialize(srcIP, dstIP)
		got, err := header.Parse(wire)
		require.NoError(t, err)
		assert.Len(t, got.Options, optLen)
	}
}

func TestParseRejectsShortBuffer(t *testing.T) {
	_, err := header.Parse(make([]byte, 10))
	assert.ErrorIs(t, err, header.ErrMalformedSegment)
}

func TestParseRejectsHeaderLengthOverflow(t *testing.T) {
	seg := &header.Segment{}
	wire := seg.Serialize(srcIP, dstIP)
	// Corrupt the header-length nibble to claim a header longer than the
	// buffer actually carries.
	wire[12] = 0xF0
	_, err := header.Parse(wire)
	assert.ErrorIs(t, err, header.ErrMalformedSegment)
}

func TestParseRejectsHeaderLengthUnderflow(t *testing.T) {
	seg := &header.Segment{}
	wire := seg.Serialize(srcIP, dstIP)
	wire[12] = 0x00 // header length nibble 0 < HeaderSize
	_, err := header.Parse(wire)
	assert.ErrorIs(t, err, header.ErrMalformedSegment)
}
