// Package fsscheme implements the file:// scheme: mounting a redoxfs
// filesystem off a probed IDE-style block device and serving directory
// listings and file contents.
package fsscheme

import (
	"errors"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/block"
	"github.com/redox-rs/schemeio/pkg/diagnostics"
	"github.com/redox-rs/schemeio/pkg/redoxfs"
	"github.com/redox-rs/schemeio/pkg/scheme"
)

// PCIConfig is the bus-mastering/IDE-base-port collaborator the source
// reaches through pci.flag(4, 4, true) and pci.read(0x20). It lives
// outside this subsystem's scope; callers supply a real implementation
// or a fake.
type PCIConfig interface {
	EnableBusMastering() (basePort uint16, err error)
}

// DiskProbe supplies the four Device candidates New tries in
// order, matching Disk::primary_master/primary_slave/secondary_master/
// secondary_slave.
type DiskProbe interface {
	PrimaryMaster(basePort uint16) block.Device
	PrimarySlave(basePort uint16) block.Device
	SecondaryMaster(basePort uint16) block.Device
	SecondarySlave(basePort uint16) block.Device
}

// ErrNoFilesystem is returned when none of the four probed devices
// carry a mountable redoxfs volume.
var ErrNoFilesystem = errors.New("fsscheme: no redoxfs volume found on any probed device")

// Scheme is the file scheme: one PCI device's worth of IDE controller,
// bound to whichever of its four disks mounted successfully.
type Scheme struct {
	fs       *redoxfs.FileSystem
	pipeline *block.Pipeline
	log      *zap.Logger
}

// New probes pci's disks in the source's exact order — primary master,
// primary slave, secondary master, secondary slave — mounting the first
// one that carries a valid redoxfs volume.
func New(pci PCIConfig, probe DiskProbe, log *zap.Logger) (*Scheme, error) {
	if log == nil {
		log = zap.NewNop()
	}
	basePort, err := pci.EnableBusMastering()
	if err != nil {
		return nil, err
	}

	candidates := []struct {
		position string
		dev      block.Device
	}{
		{"primary_master", probe.PrimaryMaster(basePort)},
		{"primary_slave", probe.PrimarySlave(basePort)},
		{"secondary_master", probe.SecondaryMaster(basePort)},
		{"secondary_slave", probe.SecondarySlave(basePort)},
	}
	diag := diagnostics.New(log)
	for _, c := range candidates {
		if c.dev == nil {
			continue
		}
		fs, err := redoxfs.Mount(c.dev, log)
		if err != nil {
			diag.MountFailed(c.position, err)
			continue
		}
		return &Scheme{fs: fs, pipeline: block.NewPipeline(c.dev, log), log: log}, nil
	}
	return nil, ErrNoFilesystem
}

// ErrNoSuchNode is returned when the requested path names no node in
// the mounted filesystem.
var ErrNoSuchNode = errors.New("fsscheme: no such node")

// Open serves a directory listing for a path ending in "/" (or empty)
// and a FileResource otherwise, per the source's FileScheme::open.
func (s *Scheme) Open(url string) (scheme.Resource, error) {
	path := strings.TrimPrefix(url, "file://")
	path = strings.TrimPrefix(path, "/")

	if path == "" || strings.HasSuffix(path, "/") {
		return scheme.NewVecResource(url, []byte(s.directoryListing(path))), nil
	}

	node, ok := s.fs.Node(path)
	if !ok {
		return nil, ErrNoSuchNode
	}

	var buf []byte
	var readErrs error
	for _, extent := range node.Extents {
		if extent.Empty() {
			continue
		}
		chunk := make([]byte, extent.LengthByte)
		if err := s.pipeline.Submit(extent, chunk, true); err != nil {
			readErrs = multierr.Append(readErrs, err)
			continue
		}
		buf = append(buf, chunk...)
	}
	if readErrs != nil {
		return nil, readErrs
	}

	return &fileResource{
		url: url,
		fr:  redoxfs.NewFileResource(s.fs, s.pipeline, node, buf, s.log),
	}, nil
}

// fileResource adapts redoxfs.FileResource's int/bool-returning methods
// to the scheme.Resource interface.
type fileResource struct {
	url string
	fr  *redoxfs.FileResource
}

func (f *fileResource) Read(buf []byte) (int, error) { return f.fr.Read(buf), nil }
func (f *fileResource) Write(buf []byte) (int, error) { return f.fr.Write(buf), nil }

func (f *fileResource) Seek(whence scheme.SeekWhence, offset int64) (int64, error) {
	return int64(f.fr.Seek(redoxfs.SeekWhence(whence), offset)), nil
}

func (f *fileResource) Sync() error {
	if !f.fr.Sync() {
		return ErrInsufficientSpace
	}
	return nil
}

func (f *fileResource) Dup() (scheme.Resource, error) {
	return &fileResource{url: f.url, fr: f.fr.Dup()}, nil
}

func (f *fileResource) Close() error {
	f.fr.Close()
	return nil
}

func (f *fileResource) URL() string { return f.url }

// ErrInsufficientSpace is returned from Sync when a file's extents are
// too small to hold its buffer and the source's no-reallocation limit
// applies.
var ErrInsufficientSpace = errors.New("fsscheme: insufficient extent space, no reallocation")

// directoryListing collapses the matching node names under prefix into
// one entry per immediate child, directories first-seen, newline
// separated, exactly as FileScheme::open's list-building loop does.
func (s *Scheme) directoryListing(prefix string) string {
	var lines []string
	for _, name := range s.fs.List(prefix) {
		lines = append(lines, name)
	}
	return strings.Join(lines, "\n")
}
