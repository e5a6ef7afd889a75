package fsscheme_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redox-rs/schemeio/pkg/block"
	"github.com/redox-rs/schemeio/pkg/fsscheme"
	"github.com/redox-rs/schemeio/pkg/redoxfs"
)

type fakePCI struct{ basePort uint16 }

func (f fakePCI) EnableBusMastering() (uint16, error) { return f.basePort, nil }

type fakeProbe struct{ primaryMaster block.Device }

func (p fakeProbe) PrimaryMaster(uint16) block.Device   { return p.primaryMaster }
func (p fakeProbe) PrimarySlave(uint16) block.Device    { return nil }
func (p fakeProbe) SecondaryMaster(uint16) block.Device { return nil }
func (p fakeProbe) SecondarySlave(uint16) block.Device  { return nil }

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

func TestOpenReadsFileContents(t *testing.T) {
	dev := buildVolume(t, "hello", []byte("world"))
	s, err := fsscheme.New(fakePCI{basePort: 0x1F0}, fakeProbe{primaryMaster: dev}, nil)
	require.NoError(t, err)

	res, err := s.Open("file:///hello")
	require.NoError(t, err)

	buf := make([]byte, 5)
	n, err := res.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
}

func TestOpenDirectoryListing(t *testing.T) {
	dev := buildVolume(t, "hello", []byte("world"))
	s, err := fsscheme.New(fakePCI{basePort: 0x1F0}, fakeProbe{primaryMaster: dev}, nil)
	require.NoError(t, err)

	res, err := s.Open("file:///")
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := res.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestOpenRejectsMissingNode(t *testing.T) {
	dev := buildVolume(t, "hello", []byte("world"))
	s, err := fsscheme.New(fakePCI{basePort: 0x1F0}, fakeProbe{primaryMaster: dev}, nil)
	require.NoError(t, err)

	_, err = s.Open("file:///missing")
	assert.ErrorIs(t, err, fsscheme.ErrNoSuchNode)
}

func TestNewFailsWhenNoDiskMounts(t *testing.T) {
	empty := block.NewMemDevice(4)
	_, err := fsscheme.New(fakePCI{basePort: 0x1F0}, fakeProbe{primaryMaster: empty}, nil)
	assert.ErrorIs(t, err, fsscheme.ErrNoFilesystem)
}
