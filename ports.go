package simnet

import (
	"math/rand/v2"
	"net/netip"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/simnet/network"
)

const (
	// MinRandomPort is the low edge of the ephemeral range. Ports below it
	// are left for well-known services and explicit binds.
	MinRandomPort uint16 = 10000

	maxPort = 65535

	// randomPortProbes bounds the random phase of the port search. Ten
	// misses means most of the range is already claimed, at which point the
	// linear sweep is the better strategy.
	randomPortProbes = 10
)

// portRangeSize is the number of ports the allocator may hand out.
const portRangeSize = int(maxPort) - int(MinRandomPort) + 1

// GetRandomFreePort picks an ephemeral port that is free for
// (proto, interfaceIP:port, peer). The source of randomness is injected so
// that equal seeds reproduce equal port sequences across runs.
//
// The search has two phases: up to ten independent uniform probes over
// [MinRandomPort, 65535], then a wrap-around linear sweep of the whole range
// from one more random offset. The sweep guarantees a definite answer: the
// second return value is false only when every port in the range is claimed,
// which is a legitimate outcome under heavy contention, not an error.
func (ns *NetworkNamespace) GetRandomFreePort(proto network.Protocol, interfaceIP netip.Addr, peer netip.AddrPort, rng *rand.Rand) (uint16, bool) {
	for i := 0; i < randomPortProbes; i++ {
		port := MinRandomPort + uint16(rng.IntN(portRangeSize))

		// Checks every interface when interfaceIP is unspecified.
		if ns.IsInterfaceAvailable(proto, netip.AddrPortFrom(interfaceIP, port), peer) {
			return port, true
		}
	}

	// Starting the sweep at a random offset avoids a systematic bias toward
	// low ports across repeated exhaustion-adjacent calls.
	start := rng.IntN(portRangeSize)
	for i := 0; i < portRangeSize; i++ {
		port := MinRandomPort + uint16((start+i)%portRangeSize)
		if ns.IsInterfaceAvailable(proto, netip.AddrPortFrom(interfaceIP, port), peer) {
			return port, true
		}
	}

	logrus.WithFields(logrus.Fields{
		"protocol":  proto.String(),
		"interface": interfaceIP.String(),
		"peer":      peer.String(),
	}).Warn("no free ephemeral port")

	return 0, false
}
