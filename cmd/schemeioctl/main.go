// Command schemeioctl wires a memory-backed disk, a loopback ip
// handle, and an in-memory framebuffer into the file, tcp, and display
// schemes through a scheme.Registry, then opens and prints the file
// scheme's root directory listing, as a manual smoke test for the
// subsystem.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/block"
	"github.com/redox-rs/schemeio/pkg/config"
	"github.com/redox-rs/schemeio/pkg/displayscheme"
	"github.com/redox-rs/schemeio/pkg/fsscheme"
	"github.com/redox-rs/schemeio/pkg/ip"
	"github.com/redox-rs/schemeio/pkg/redoxfs"
	"github.com/redox-rs/schemeio/pkg/scheme"
	"github.com/redox-rs/schemeio/pkg/tcpscheme"
)

func main() {
	configPath := flag.String("config", "", "path to a scheme config TOML file")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	hostAddr := [4]byte{10, 0, 0, 1}
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatal("reading config", zap.Error(err))
		}
		cfg, err := config.Load(data)
		if err != nil {
			log.Fatal("parsing config", zap.Error(err))
		}
		if addr, err := cfg.HostAddr(); err == nil {
			hostAddr = addr
		}
	}

	registry := scheme.NewRegistry()

	fsScheme, err := fsscheme.New(loopbackPCI{}, loopbackProbe{dev: demoVolume()}, log)
	if err != nil {
		log.Fatal("mounting demo volume", zap.Error(err))
	}
	registry.Register("file", fsSchemeAdapter{fsScheme})

	opener := func(url string) (ip.Handle, error) {
		return ip.NewFakeHandle(url, 16), nil
	}
	registry.Register("tcp", tcpSchemeAdapter{tcpscheme.New(hostAddr, opener, log)})

	fb := &memFramebuffer{buf: make([]byte, 64)}
	registry.Register("display", displaySchemeAdapter{displayscheme.New(fb)})

	listing, err := registry.Open("file:///")
	if err != nil {
		log.Fatal("opening root listing", zap.Error(err))
	}
	buf := make([]byte, 256)
	n, _ := listing.Read(buf)
	fmt.Printf("root listing: %q\n", buf[:n])
}

func demoVolume() *block.MemDevice {
	dev := block.NewMemDevice(16)

	hdr := redoxfs.Header{Signature: redoxfs.Signature, Version: redoxfs.Version}
	hdr.Extents[0] = block.Extent{Block: 2, LengthByte: redoxfs.NodeSize}
	hdrBytes, _ := hdr.MarshalBinary()
	copy(dev.Sectors[1][:], hdrBytes)

	var rec redoxfs.NodeRecord
	copy(rec.Name[:], "hello.txt")
	data := []byte("hello from schemeioctl\n")
	rec.Extents[0] = block.Extent{Block: 3, LengthByte: uint64(len(data))}
	recBytes, _ := rec.MarshalBinary()
	copy(dev.Sectors[2][:], recBytes)

	copy(dev.Sectors[3][:], data)

	return dev
}

type loopbackPCI struct{}

func (loopbackPCI) EnableBusMastering() (uint16, error) { return 0x1F0, nil }

type loopbackProbe struct{ dev block.Device }

func (p loopbackProbe) PrimaryMaster(uint16) block.Device   { return p.dev }
func (p loopbackProbe) PrimarySlave(uint16) block.Device    { return nil }
func (p loopbackProbe) SecondaryMaster(uint16) block.Device { return nil }
func (p loopbackProbe) SecondarySlave(uint16) block.Device  { return nil }

type memFramebuffer struct{ buf []byte }

func (f *memFramebuffer) Size() int64 { return int64(len(f.buf)) }
func (f *memFramebuffer) CopyAt(offset int64, data []byte) {
	copy(f.buf[offset:], data)
}
func (f *memFramebuffer) Flip() {}

// fsSchemeAdapter, tcpSchemeAdapter and displaySchemeAdapter satisfy
// scheme.Scheme for each concrete scheme, whose Open methods return
// their own resource type rather than the shared interface.
type fsSchemeAdapter struct{ s *fsscheme.Scheme }

func (a fsSchemeAdapter) Open(url string) (scheme.Resource, error) { return a.s.Open(url) }

type tcpSchemeAdapter struct{ s *tcpscheme.Scheme }

func (a tcpSchemeAdapter) Open(url string) (scheme.Resource, error) {
	conn, err := a.s.Open(url)
	if err != nil {
		return nil, err
	}
	return tcpResource{conn}, nil
}

type tcpResource struct {
	conn interface {
		Read([]byte) (int, error)
		Write([]byte) (int, error)
		Path() string
		Close() error
		Sync() bool
	}
}

func (r tcpResource) Read(buf []byte) (int, error)  { return r.conn.Read(buf) }
func (r tcpResource) Write(buf []byte) (int, error) { return r.conn.Write(buf) }
func (r tcpResource) Seek(scheme.SeekWhence, int64) (int64, error) {
	return 0, fmt.Errorf("schemeioctl: tcp resources are not seekable")
}
func (r tcpResource) Sync() error {
	r.conn.Sync()
	return nil
}
func (r tcpResource) Dup() (scheme.Resource, error) {
	return nil, fmt.Errorf("schemeioctl: dup not wired in this demo")
}
func (r tcpResource) Close() error { return r.conn.Close() }
func (r tcpResource) URL() string  { return r.conn.Path() }

type displaySchemeAdapter struct{ s *displayscheme.Scheme }

func (a displaySchemeAdapter) Open(url string) (scheme.Resource, error) {
	res, err := a.s.Open(url)
	if err != nil {
		return nil, err
	}
	return displayResource{res}, nil
}

type displayResource struct{ r *displayscheme.Resource }

func (d displayResource) Read(buf []byte) (int, error)  { return d.r.Read(buf) }
func (d displayResource) Write(buf []byte) (int, error) { return d.r.Write(buf) }
func (d displayResource) Seek(whence scheme.SeekWhence, offset int64) (int64, error) {
	return d.r.Seek(displayscheme.SeekWhence(whence), offset), nil
}
func (d displayResource) Sync() error { return d.r.Sync() }
func (d displayResource) Dup() (scheme.Resource, error) {
	_, err := d.r.Dup()
	return nil, err
}
func (d displayResource) Close() error { return d.r.Close() }
func (d displayResource) URL() string  { return d.r.URL() }
