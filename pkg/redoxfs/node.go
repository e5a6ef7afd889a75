package redoxfs

import (
	"bytes"

	"github.com/redox-rs/schemeio/pkg/block"
)

// NodeRecord is the 512-byte on-disk structure naming a file and listing
// its data extents.
type NodeRecord struct {
	Name    [256]byte
	Extents [NumNodeExtents]block.Extent
}

// MarshalBinary encodes r in its exact on-disk layout.
func (r *NodeRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, NodeSize)
	copy(buf[0:256], r.Name[:])
	for i, e := range r.Extents {
		off := 256 + i*16
		marshalExtent(buf[off:off+16], e)
	}
	return buf, nil
}

// UnmarshalNodeRecord parses a 512-byte block into a NodeRecord.
func UnmarshalNodeRecord(b []byte) NodeRecord {
	var r NodeRecord
	copy(r.Name[:], b[0:256])
	for i := range r.Extents {
		off := 256 + i*16
		r.Extents[i] = unmarshalExtent(b[off : off+16])
	}
	return r
}

// Node is the in-memory representation of a NodeRecord: its absolute disk
// block (for rewrite), the NUL-terminated name decoded to a string, and
// its extents.
type Node struct {
	Block   uint64
	Name    string
	Extents [NumNodeExtents]block.Extent
}

// NewNode decodes a NodeRecord read from the given absolute block.
func NewNode(diskBlock uint64, rec NodeRecord) Node {
	nameLen := bytes.IndexByte(rec.Name[:], 0)
	if nameLen < 0 {
		nameLen = len(rec.Name)
	}
	return Node{
		Block:   diskBlock,
		Name:    string(rec.Name[:nameLen]),
		Extents: rec.Extents,
	}
}

// Record encodes n back into the NodeRecord form used on disk.
func (n Node) Record() NodeRecord {
	var rec NodeRecord
	copy(rec.Name[:], n.Name)
	rec.Extents = n.Extents
	return rec
}

// Clone returns an independent copy of n.
func (n Node) Clone() Node {
	c := n
	c.Extents = n.Extents
	return c
}
