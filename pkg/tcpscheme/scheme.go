// Package tcpscheme implements the tcp:// scheme: translating an open
// URL into an established tcpconn.Resource, either by actively
// connecting out (tcp://host:port) or by listening for an inbound SYN
// on a local port (tcp:///port).
package tcpscheme

import (
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/redox-rs/schemeio/pkg/ip"
	"github.com/redox-rs/schemeio/pkg/tcpconn"
	"github.com/redox-rs/schemeio/pkg/tcpip/header"
)

// ErrInvalidURL is returned when a tcp:// URL names neither a
// host:port (active open) nor a bare local port (passive open).
var ErrInvalidURL = errors.New("tcpscheme: url must be tcp://host:port or tcp:///port")

// Scheme opens tcp:// resources against an ip:// scheme reached through
// open.
type Scheme struct {
	HostAddr [4]byte
	open     ip.Opener
	Log      *zap.Logger
}

// New returns a Scheme bound to hostAddr (used as the source address in
// every segment's pseudo-header checksum) and the given ip.Opener.
func New(hostAddr [4]byte, open ip.Opener, log *zap.Logger) *Scheme {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheme{HostAddr: hostAddr, open: open, Log: log}
}

// Open performs an active or passive TCP open depending on the URL
// shape, blocking until the three-way handshake completes.
func (s *Scheme) Open(rawURL string) (*tcpconn.Resource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if u.Host != "" {
		return s.openActive(u)
	}
	if path := strings.TrimPrefix(u.Path, "/"); path != "" {
		port, err := strconv.ParseUint(path, 10, 16)
		if err != nil {
			return nil, ErrInvalidURL
		}
		return s.openPassive(uint16(port))
	}
	return nil, ErrInvalidURL
}

// openActive connects out to host:port, picking an ephemeral host port
// in [32768, 65535] the way the source's rand() % 32768 + 32768 does.
func (s *Scheme) openActive(u *url.URL) (*tcpconn.Resource, error) {
	hostname := u.Hostname()
	portStr := u.Port()
	if hostname == "" || portStr == "" {
		return nil, ErrInvalidURL
	}
	peerAddr, err := parseIPv4(hostname)
	if err != nil {
		return nil, err
	}
	peerPort, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, ErrInvalidURL
	}

	hostPort := uint16(rand.Intn(32768) + 32768)

	h, err := s.open(fmt.Sprintf("ip://%s/6", hostname))
	if err != nil {
		return nil, err
	}

	conn := tcpconn.New(h, s.HostAddr, peerAddr, uint16(peerPort), hostPort,
		rand.Uint32(), 0, s.Log)
	if !conn.ClientEstablish() {
		h.Close()
		return nil, fmt.Errorf("tcpscheme: handshake with %s failed", rawURLHost(u))
	}
	return conn, nil
}

// openPassive listens on ip:///6 for an inbound SYN addressed to port,
// looping past unrelated datagrams the way the source's while let Some
// loop re-opens ip:///6 on every iteration.
func (s *Scheme) openPassive(port uint16) (*tcpconn.Resource, error) {
	for {
		h, err := s.open("ip:///6")
		if err != nil {
			return nil, err
		}

		b, err := h.ReadDatagram()
		if err != nil {
			h.Close()
			return nil, err
		}
		seg, err := header.Parse(b)
		if err != nil {
			h.Close()
			continue
		}
		if seg.DstPort != port || seg.Flags&(header.FlagPSH|header.FlagSYN|header.FlagACK) != header.FlagSYN {
			h.Close()
			continue
		}

		peerAddr, err := parseIPv4FromURL(h.URL())
		if err != nil {
			h.Close()
			continue
		}

		conn := tcpconn.New(h, s.HostAddr, peerAddr, seg.SrcPort, port,
			rand.Uint32(), seg.Sequence, s.Log)
		if conn.ServerEstablish(seg) {
			return conn, nil
		}
		h.Close()
	}
}

func parseIPv4(host string) ([4]byte, error) {
	var addr [4]byte
	parts := strings.Split(host, ".")
	if len(parts) != 4 {
		return addr, fmt.Errorf("tcpscheme: invalid ipv4 address %q", host)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return addr, fmt.Errorf("tcpscheme: invalid ipv4 address %q", host)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// parseIPv4FromURL recovers the peer address from an accepted ip://
// resource's path, the way the source re-derives it from ip.path()
// after accepting a connection.
func parseIPv4FromURL(rawURL string) ([4]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return [4]byte{}, err
	}
	return parseIPv4(u.Hostname())
}

func rawURLHost(u *url.URL) string {
	if u.Host != "" {
		return u.Host
	}
	return u.String()
}
