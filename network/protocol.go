package network

import (
	"fmt"

	"github.com/google/uuid"
)

// Protocol identifies the transport protocol of an association or packet.
type Protocol uint8

const (
	// ProtocolTCP is the simulated TCP transport.
	ProtocolTCP Protocol = iota

	// ProtocolUDP is the simulated UDP transport.
	ProtocolUDP

	// ProtocolICMP exists for packet capture of control traffic; ICMP has no
	// port space and never participates in associations.
	ProtocolICMP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	case ProtocolICMP:
		return "icmp"
	}
	return fmt.Sprintf("unknown protocol %d", uint8(p))
}

// SocketHandle identifies the simulated socket that owns an association or
// queued packet. Handles are opaque to this package; socket implementations
// mint one per socket.
type SocketHandle = uuid.UUID

// NewSocketHandle mints a fresh socket handle.
func NewSocketHandle() SocketHandle {
	return uuid.New()
}
