package redoxfs

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/block"
)

// FileSystem is a mounted Redox-style filesystem: the underlying device,
// the parsed superblock, and the flat list of nodes reachable through the
// superblock's node-table extents.
type FileSystem struct {
	Device block.Device
	Header Header
	Nodes  []Node

	log *zap.Logger
}

// Mount reads the superblock at block 1 and every node record reachable
// through its extents. Mount is fatal on any read error; a bad signature
// or version yields ErrUnknownFilesystem rather than a generic error, per
// the spec's error taxonomy.
func Mount(dev block.Device, log *zap.Logger) (*FileSystem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !dev.Identify() {
		return nil, fmt.Errorf("redoxfs: disk not found")
	}

	headerBuf := make([]byte, HeaderSize)
	if err := dev.Read(1, 1, headerBuf); err != nil {
		return nil, fmt.Errorf("redoxfs: reading superblock: %w", err)
	}
	hdr, err := UnmarshalHeader(headerBuf)
	if err != nil {
		return nil, err
	}
	if !hdr.Valid() {
		return nil, ErrUnknownFilesystem
	}

	var nodes []Node
	for _, extent := range hdr.Extents {
		if extent.Empty() {
			continue
		}
		if extent.LengthByte%NodeSize != 0 {
			return nil, fmt.Errorf("redoxfs: node-table extent length %d is not a multiple of %d", extent.LengthByte, NodeSize)
		}
		data := make([]byte, extent.LengthByte)
		if err := readSync(dev, extent, data); err != nil {
			return nil, fmt.Errorf("redoxfs: reading node table: %w", err)
		}
		count := int(extent.LengthByte / NodeSize)
		for i := 0; i < count; i++ {
			rec := UnmarshalNodeRecord(data[i*NodeSize : (i+1)*NodeSize])
			nodes = append(nodes, NewNode(extent.Block+uint64(i), rec))
		}
	}

	log.Info("redoxfs mounted", zap.Int("nodes", len(nodes)))
	return &FileSystem{Device: dev, Header: *hdr, Nodes: nodes, log: log}, nil
}

// readSync reads extent's bytes directly through Device.Read, matching
// the path the original implementation actually executes for node-table
// reads (its async-request alternative is commented out, never run).
// Chunks of more than block.MaxSectorsPerRequest sectors are split, each
// chunk advancing the cursor by the sectors actually read.
func readSync(dev block.Device, extent block.Extent, out []byte) error {
	sectors := extent.Sectors()
	var sector uint64
	for sector < sectors {
		chunk := sectors - sector
		if chunk > block.MaxSectorsPerRequest {
			chunk = block.MaxSectorsPerRequest
		}
		off := sector * block.SectorSize
		end := off + chunk*block.SectorSize
		if end > uint64(len(out)) {
			end = uint64(len(out))
		}
		if err := dev.Read(extent.Block+sector, uint16(chunk), out[off:end]); err != nil {
			return err
		}
		sector += chunk
	}
	return nil
}

// Node performs a linear, byte-exact scan for name, returning the first
// matching node.
func (fs *FileSystem) Node(name string) (Node, bool) {
	for _, n := range fs.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// ReplaceNode overwrites the in-memory node list entry matching
// updated.Block, used after FileResource.Sync rewrites a node record.
func (fs *FileSystem) ReplaceNode(updated Node) {
	for i := range fs.Nodes {
		if fs.Nodes[i].Block == updated.Block {
			fs.Nodes[i] = updated
			return
		}
	}
}

// List returns the directory listing for prefix: each node name with the
// prefix stripped, collapsed to its first path component (with a
// trailing slash) when the remainder contains one, deduplicated on first
// occurrence, preserving the node list's original order.
func (fs *FileSystem) List(prefix string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range fs.Nodes {
		if !strings.HasPrefix(n.Name, prefix) {
			continue
		}
		rest := n.Name[len(prefix):]
		entry := rest
		if idx := strings.IndexByte(rest, '/'); idx >= 0 {
			entry = rest[:idx+1]
		}
		if entry == "" || seen[entry] {
			continue
		}
		seen[entry] = true
		out = append(out, entry)
	}
	return out
}
