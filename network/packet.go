package network

import (
	"fmt"
	"net/netip"
)

// Packet is the unit of simulated traffic moved through an interface's
// queues. The payload is application data only; headers are synthesized when
// a packet is captured.
type Packet struct {
	Protocol Protocol
	Src      netip.AddrPort
	Dst      netip.AddrPort
	Payload  []byte
}

func (p *Packet) String() string {
	return fmt.Sprintf("%s %s -> %s (%d bytes)", p.Protocol, p.Src, p.Dst, len(p.Payload))
}
