// Package config loads the TOML configuration naming which disks to
// probe (with their IDE base ports), the host IPv4 address used in the
// TCP pseudo-header, and a log level — stand-ins for the values the
// source hard-codes as IP_ADDR and a fixed IDE base port. It does not
// name a volume to mount at file://.
package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// DiskConfig names one IDE-style device to probe: its position
// (primary/secondary, master/slave) and the base I/O port of the
// controller it sits behind.
type DiskConfig struct {
	Position string `toml:"position"`
	BasePort uint16 `toml:"base_port"`
}

// SchemeConfig is the full configuration for one instance of this
// subsystem: the disks to probe for a mountable redoxfs volume, and the
// host's own IPv4 address for outgoing TCP segments.
type SchemeConfig struct {
	Disks    []DiskConfig `toml:"disks"`
	HostIPv4 string       `toml:"host_ipv4"`
	LogLevel string       `toml:"log_level"`
}

// HostAddr parses HostIPv4 into the 4-byte form pkg/tcpconn and
// pkg/tcpscheme need.
func (c *SchemeConfig) HostAddr() ([4]byte, error) {
	var addr [4]byte
	var a, b, d, e int
	n, err := fmt.Sscanf(c.HostIPv4, "%d.%d.%d.%d", &a, &b, &d, &e)
	if err != nil || n != 4 {
		return addr, fmt.Errorf("config: invalid host_ipv4 %q", c.HostIPv4)
	}
	for i, v := range []int{a, b, d, e} {
		if v < 0 || v > 255 {
			return addr, fmt.Errorf("config: invalid host_ipv4 %q", c.HostIPv4)
		}
		addr[i] = byte(v)
	}
	return addr, nil
}

// Load parses a SchemeConfig from TOML bytes.
func Load(data []byte) (*SchemeConfig, error) {
	var cfg SchemeConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
