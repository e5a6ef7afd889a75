package redoxfs_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redox-rs/schemeio/pkg/block"
	"github.com/redox-rs/schemeio/pkg/redoxfs"
)

// buildVolume lays out a minimal superblock at block 1, one node-table
// extent at block 2 (length 512, a single node), and the node's data at
// block 3, matching spec.md scenario 1.
func buildVolume(t *testing.T, nodeName string, data []byte) *block.MemDevice {
	t.Helper()
	dev := block.NewMemDevice(16)

	hdr := redoxfs.Header{Signature: redoxfs.Signature, Version: redoxfs.Version}
	hdr.Extents[0] = block.Extent{Block: 2, LengthByte: redoxfs.NodeSize}
	hdrBytes, err := hdr.MarshalBinary()
	require.NoError(t, err)
	copy(dev.Sectors[1][:], hdrBytes)

	var rec redoxfs.NodeRecord
	copy(rec.Name[:], nodeName)
	rec.Extents[0] = block.Extent{Block: 3, LengthByte: uint64(len(data))}
	recBytes, err := rec.MarshalBinary()
	require.NoError(t, err)
	copy(dev.Sectors[2][:], recBytes)

	copy(dev.Sectors[3][:], data)

	return dev
}

func TestMountMinimalVolume(t *testing.T) {
	dev := buildVolume(t, "hello", []byte("world"))

	fs, err := redoxfs.Mount(dev, nil)
	require.NoError(t, err)
	require.Len(t, fs.Nodes, 1)
	assert.Equal(t, "hello", fs.Nodes[0].Name)

	node, ok := fs.Node("hello")
	require.True(t, ok)
	assert.Equal(t, uint64(3), node.Extents[0].Block)
	assert.Equal(t, uint64(5), node.Extents[0].LengthByte)
}

func TestMountRejectsBadSignature(t *testing.T) {
	dev := block.NewMemDevice(4)
	hdr := redoxfs.Header{Signature: [8]byte{'X'}, Version: redoxfs.Version}
	b, _ := hdr.MarshalBinary()
	copy(dev.Sectors[1][:], b)

	_, err := redoxfs.Mount(dev, nil)
	assert.ErrorIs(t, err, redoxfs.ErrUnknownFilesystem)
}

func TestListCollapsesDirectories(t *testing.T) {
	fs := &redoxfs.FileSystem{Nodes: []redoxfs.Node{
		{Name: "a/b"},
		{Name: "a/c"},
		{Name: "d"},
	}}
	assert.Equal(t, []string{"a/", "d"}, fs.List(""))
}

func TestListNoDuplicatesAndWellFormedEntries(t *testing.T) {
	fs := &redoxfs.FileSystem{Nodes: []redoxfs.Node{
		{Name: "dir/one"},
		{Name: "dir/two"},
		{Name: "dir/three/deep"},
		{Name: "top"},
	}}
	list := fs.List("")
	seen := map[string]bool{}
	for _, entry := range list {
		assert.False(t, seen[entry], "duplicate entry %q", entry)
		seen[entry] = true
		if idx := strings.IndexByte(entry, '/'); idx >= 0 {
			assert.Equal(t, len(entry)-1, idx, "entry %q contains / not at the end", entry)
		}
	}
	assert.Equal(t, []string{"dir/", "top"}, list)
}
