package network

import (
	"net/netip"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/simnet/registry"
)

// wildcardPeer is the peer slot of an association made without a specific
// remote endpoint, e.g. a listening socket. A claim against the wildcard
// peer blocks the (protocol, port) pair for every peer on this interface.
var wildcardPeer = netip.AddrPortFrom(netip.IPv4Unspecified(), 0)

// AssociationKey identifies one claimed (protocol, local port, peer) tuple.
type AssociationKey struct {
	Protocol  Protocol
	LocalPort uint16
	Peer      netip.AddrPort
}

// Interface is a virtual NIC bound to a single IPv4 address.
//
// The namespace owns its interfaces exclusively; callers must not retain a
// pointer beyond the borrowing call that handed it out.
type Interface struct {
	hostID     registry.HostID
	ip         netip.Addr
	hostname   string
	usesRouter bool
	qdisc      QDiscMode

	mu           sync.Mutex
	associations map[AssociationKey]SocketHandle
	egress       egressQueue
	capture      *pcapWriter

	queuedPackets    uint64
	deliveredPackets uint64
}

// NewInterface builds an interface bound to the address behind addr.
// The interface copies what it needs from the handle and does not retain it;
// the caller keeps ownership of the reference.
//
// If pcap is configured but the capture stream cannot be initialized, the
// interface comes up without capture: observability must not fail host boot.
func NewInterface(host registry.HostID, addr *registry.Address, pcap *PcapOptions, qdisc QDiscMode, usesRouter bool) *Interface {
	iface := &Interface{
		hostID:       host,
		ip:           addr.IP(),
		hostname:     addr.Hostname(),
		usesRouter:   usesRouter,
		qdisc:        qdisc,
		associations: make(map[AssociationKey]SocketHandle),
		egress:       newEgressQueue(qdisc),
	}

	if pcap != nil && pcap.Open != nil {
		iface.capture = openCapture(pcap, iface)
	}

	logrus.WithFields(logrus.Fields{
		"host_id":     host,
		"hostname":    iface.hostname,
		"ip":          iface.ip.String(),
		"uses_router": usesRouter,
		"qdisc":       qdisc.String(),
	}).Debug("created network interface")

	return iface
}

// IP returns the address the interface is bound to.
func (i *Interface) IP() netip.Addr {
	return i.ip
}

// Hostname returns the hostname the interface's address was registered
// under.
func (i *Interface) Hostname() string {
	return i.hostname
}

// UsesRouter reports whether outbound packets leave through the upstream
// router rather than being looped back locally.
func (i *Interface) UsesRouter() bool {
	return i.usesRouter
}

// QDisc returns the interface's queue discipline mode.
func (i *Interface) QDisc() QDiscMode {
	return i.qdisc
}

// IsAssociated reports whether the (protocol, port, peer) tuple is claimed
// on this interface. A tuple is claimed if either the exact peer or the
// wildcard peer holds the port, because a listening socket bound without a
// peer claims the port against every remote endpoint.
func (i *Interface) IsAssociated(proto Protocol, port uint16, peer netip.AddrPort) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.associations[AssociationKey{proto, port, normalizePeer(peer)}]; ok {
		return true
	}
	_, ok := i.associations[AssociationKey{proto, port, wildcardPeer}]
	return ok
}

// Associate records that socket claims (protocol, port, peer) on this
// interface. Individual interface operations are modeled as always
// succeeding; claiming an occupied tuple keeps the existing claim and is
// logged, since it indicates the caller skipped the availability check.
func (i *Interface) Associate(socket SocketHandle, proto Protocol, port uint16, peer netip.AddrPort) {
	key := AssociationKey{proto, port, normalizePeer(peer)}

	i.mu.Lock()
	defer i.mu.Unlock()

	if existing, ok := i.associations[key]; ok {
		logrus.WithFields(logrus.Fields{
			"host_id":  i.hostID,
			"ip":       i.ip.String(),
			"protocol": proto.String(),
			"port":     port,
			"peer":     key.Peer.String(),
			"owner":    existing.String(),
		}).Warn("association already claimed, keeping existing owner")
		return
	}

	i.associations[key] = socket
}

// Disassociate releases the claim on (protocol, port, peer). Releasing a
// tuple that is not claimed is a no-op, so the call is idempotent.
func (i *Interface) Disassociate(proto Protocol, port uint16, peer netip.AddrPort) {
	key := AssociationKey{proto, port, normalizePeer(peer)}

	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.associations, key)
}

// AssociationCount returns the number of claimed tuples.
func (i *Interface) AssociationCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return len(i.associations)
}

// PushPacket queues a packet for transmission according to the interface's
// queue discipline and mirrors it to the capture stream if one is open.
func (i *Interface) PushPacket(socket SocketHandle, pkt *Packet) {
	i.mu.Lock()
	i.egress.push(socket, pkt)
	i.queuedPackets++
	capture := i.capture
	i.mu.Unlock()

	i.writeCapture(capture, pkt)
}

// PopPacket dequeues the next packet chosen by the queue discipline.
// It returns false when the egress queue is empty.
func (i *Interface) PopPacket() (*Packet, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.egress.pop()
}

// QueueLen returns the number of packets waiting for transmission.
func (i *Interface) QueueLen() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.egress.len()
}

// DeliverPacket records an inbound packet arriving on this interface and
// mirrors it to the capture stream. Handing the payload to the owning
// socket is the caller's job.
func (i *Interface) DeliverPacket(pkt *Packet) {
	i.mu.Lock()
	i.deliveredPackets++
	capture := i.capture
	i.mu.Unlock()

	i.writeCapture(capture, pkt)
}

// Counters returns the totals of packets queued for egress and delivered
// inbound since the interface was created.
func (i *Interface) Counters() (queued, delivered uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.queuedPackets, i.deliveredPackets
}

// openCapture sets up the interface's pcap stream. Capture is observability:
// failure to open it is logged and the interface comes up uncaptured rather
// than failing host boot.
func openCapture(pcap *PcapOptions, iface *Interface) *pcapWriter {
	logFailure := func(err error) {
		logrus.WithFields(logrus.Fields{
			"host_id": iface.hostID,
			"ip":      iface.ip.String(),
			"error":   err,
		}).Error("packet capture setup failed, continuing without capture")
	}

	stream, err := pcap.Open(iface.hostname, iface.ip)
	if err != nil {
		logFailure(err)
		return nil
	}
	if stream == nil {
		return nil
	}

	w, err := newPcapWriter(stream, pcap.SnapLen)
	if err != nil {
		logFailure(err)
		return nil
	}
	return w
}

func (i *Interface) writeCapture(capture *pcapWriter, pkt *Packet) {
	if capture == nil {
		return
	}
	if err := capture.writePacket(pkt); err != nil {
		logrus.WithFields(logrus.Fields{
			"host_id": i.hostID,
			"ip":      i.ip.String(),
			"error":   err,
		}).Warn("packet capture write failed")
	}
}

// normalizePeer maps every spelling of "no particular peer" to the single
// wildcard key so claims and queries agree.
func normalizePeer(peer netip.AddrPort) netip.AddrPort {
	if !peer.Addr().IsValid() || (peer.Addr().Unmap().IsUnspecified() && peer.Port() == 0) {
		return wildcardPeer
	}
	return netip.AddrPortFrom(peer.Addr().Unmap(), peer.Port())
}
