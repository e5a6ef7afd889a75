// Package redoxfs implements the on-disk filesystem described by the
// spec: a superblock naming node-table extents, fixed-size node records,
// and the file resource that reads/writes/syncs a node's data.
package redoxfs

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/redox-rs/schemeio/pkg/block"
)

// HeaderSize is the on-disk size of Header, in bytes.
const HeaderSize = 512

// NodeSize is the on-disk size of a NodeRecord, in bytes.
const NodeSize = 512

// NumHeaderExtents is the number of node-table extents a Header carries.
const NumHeaderExtents = 16

// NumNodeExtents is the number of data extents a NodeRecord carries.
const NumNodeExtents = 16

// Signature is the exact magic bytes every valid superblock starts with.
var Signature = [8]byte{'R', 'E', 'D', 'O', 'X', 'F', 'S', 0}

// Version is the only superblock version this package understands.
const Version uint32 = 0xFFFFFFFF

// ErrUnknownFilesystem is returned by Mount when the superblock signature
// or version does not match.
var ErrUnknownFilesystem = errors.New("redoxfs: unknown filesystem")

// Header is the 512-byte superblock living at block 1.
type Header struct {
	Signature [8]byte
	Version   uint32
	Name      [244]byte
	Extents   [NumHeaderExtents]block.Extent
}

// Valid reports whether h carries a recognized signature and version.
func (h *Header) Valid() bool {
	return h.Signature == Signature && h.Version == Version
}

// marshalExtent writes e into b in on-disk (little-endian) form.
func marshalExtent(b []byte, e block.Extent) {
	binary.LittleEndian.PutUint64(b[0:8], e.Block)
	binary.LittleEndian.PutUint64(b[8:16], e.LengthByte)
}

func unmarshalExtent(b []byte) block.Extent {
	return block.Extent{
		Block:      binary.LittleEndian.Uint64(b[0:8]),
		LengthByte: binary.LittleEndian.Uint64(b[8:16]),
	}
}

// MarshalBinary encodes h in its exact on-disk layout.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], h.Signature[:])
	binary.LittleEndian.PutUint32(buf[8:12], h.Version)
	copy(buf[12:256], h.Name[:])
	for i, e := range h.Extents {
		off := 256 + i*16
		marshalExtent(buf[off:off+16], e)
	}
	return buf, nil
}

// UnmarshalHeader parses a 512-byte block into a Header without validating
// the signature; callers should call Valid.
func UnmarshalHeader(b []byte) (*Header, error) {
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("redoxfs: short header block: %d bytes", len(b))
	}
	h := &Header{}
	copy(h.Signature[:], b[0:8])
	h.Version = binary.LittleEndian.Uint32(b[8:12])
	copy(h.Name[:], b[12:256])
	for i := range h.Extents {
		off := 256 + i*16
		h.Extents[i] = unmarshalExtent(b[off : off+16])
	}
	return h, nil
}
