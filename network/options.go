package network

import (
	"io"
	"net/netip"

	"github.com/opd-ai/simnet/registry"
)

// QDiscMode selects the egress queue discipline of an interface.
type QDiscMode uint8

const (
	// QDiscFIFO transmits packets strictly in the order they were queued.
	QDiscFIFO QDiscMode = iota

	// QDiscRoundRobin services one packet per socket in rotation, so a
	// single busy socket cannot starve the others.
	QDiscRoundRobin
)

func (m QDiscMode) String() string {
	switch m {
	case QDiscFIFO:
		return "fifo"
	case QDiscRoundRobin:
		return "round-robin"
	}
	return "unknown"
}

// PcapOptions configures packet capture. Each interface opens its own
// capture stream, so the options carry a factory rather than a writer: the
// embedding simulator decides where captures go (usually one file per
// interface) and this package never touches the filesystem itself.
type PcapOptions struct {
	// Open returns the capture stream for the interface bound to
	// (hostname, ip). It is called once per interface during namespace
	// construction. The caller owns the returned writer and closes it after
	// host teardown.
	Open func(hostname string, ip netip.Addr) (io.Writer, error)

	// SnapLen caps the bytes captured per packet. Zero means
	// DefaultSnapLen.
	SnapLen uint32
}

// InterfaceOptions parameterizes interface setup during namespace
// construction. It is transient: nothing retains it after NewInterface
// returns.
type InterfaceOptions struct {
	HostID     registry.HostID
	Hostname   string
	IP         netip.Addr
	UsesRouter bool
	Pcap       *PcapOptions
	QDisc      QDiscMode
}
