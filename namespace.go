package simnet

import (
	"fmt"
	"net/netip"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/simnet/network"
	"github.com/opd-ai/simnet/registry"
	"github.com/opd-ai/simnet/unixns"
)

// AddressRegistry is the slice of the address registry the namespace
// consumes: one registration per interface at boot and one deregistration at
// teardown. *registry.Registry satisfies it.
type AddressRegistry interface {
	Register(host registry.HostID, hostname string, ip netip.Addr) (*registry.Address, error)
	Deregister(addr *registry.Address)
}

// NetworkNamespace consolidates the networking state of one simulated host.
// Roughly equivalent to a Linux struct net. A host has exactly one
// namespace; it is created at host boot and closed at host teardown, and its
// two interfaces never change after construction.
type NetworkNamespace struct {
	// unix maps abstract socket names to unix sockets. Shared by pointer
	// with the unix-socket code of this host.
	unix *unixns.Namespace

	localhost *network.Interface
	internet  *network.Interface

	// defaultAddress backs the routable interface. It is deregistered and
	// released exactly once, when the namespace is torn down.
	defaultAddress *registry.Address
	defaultIP      netip.Addr

	// reg is retained only so Close can deregister defaultAddress.
	reg AddressRegistry

	closeOnce sync.Once
}

var loopbackIP = netip.AddrFrom4([4]byte{127, 0, 0, 1})

// NewNetworkNamespace builds the fully initialized namespace of one host:
// both interfaces registered and constructed, a fresh abstract UNIX
// namespace, and teardown armed.
//
// Construction failure is not recoverable in this subsystem. The registry is
// expected to always succeed for a freshly chosen host address, so a failed
// registration indicates a collaborator bug and panics.
func NewNetworkNamespace(host registry.HostID, hostname string, publicIP netip.Addr, pcap *network.PcapOptions, qdisc network.QDiscMode, reg AddressRegistry) *NetworkNamespace {
	publicIP = publicIP.Unmap()

	localhost, localAddr := setupInterface(reg, network.InterfaceOptions{
		HostID:     host,
		Hostname:   hostname,
		IP:         loopbackIP,
		UsesRouter: false,
		Pcap:       pcap,
		QDisc:      qdisc,
	})
	// Loopback needs no deregistration and the interface has copied what it
	// needs, so the handle is released right away.
	localAddr.Release()

	internet, publicAddr := setupInterface(reg, network.InterfaceOptions{
		HostID:     host,
		Hostname:   hostname,
		IP:         publicIP,
		UsesRouter: true,
		Pcap:       pcap,
		QDisc:      qdisc,
	})

	ns := &NetworkNamespace{
		unix:           unixns.New(),
		localhost:      localhost,
		internet:       internet,
		defaultAddress: publicAddr,
		defaultIP:      publicIP,
		reg:            reg,
	}

	// Backstop so the default address is deregistered even if the host
	// teardown path never reaches Close.
	runtime.SetFinalizer(ns, (*NetworkNamespace).finalize)

	logrus.WithFields(logrus.Fields{
		"host_id":  host,
		"hostname": hostname,
		"ip":       publicIP.String(),
		"qdisc":    qdisc.String(),
	}).Debug("created network namespace")

	return ns
}

// setupInterface registers the interface's address and builds the interface
// around the returned handle. The caller owns the handle's reference.
func setupInterface(reg AddressRegistry, opts network.InterfaceOptions) (*network.Interface, *registry.Address) {
	addr, err := reg.Register(opts.HostID, opts.Hostname, opts.IP)
	if err != nil {
		panic(fmt.Sprintf("simnet: registering %s for host %d (%s) failed: %v",
			opts.IP, opts.HostID, opts.Hostname, err))
	}
	if addr == nil {
		panic(fmt.Sprintf("simnet: registry returned nil handle for %s on host %d",
			opts.IP, opts.HostID))
	}

	iface := network.NewInterface(opts.HostID, addr, opts.Pcap, opts.QDisc, opts.UsesRouter)
	return iface, addr
}

// Interface returns the interface bound to ip: the loopback interface for
// loopback addresses, the routable interface for the namespace's default IP,
// and nil otherwise. Callers must not retain the pointer beyond the current
// operation.
func (ns *NetworkNamespace) Interface(ip netip.Addr) *network.Interface {
	ip = ip.Unmap()
	if ip.IsLoopback() {
		return ns.localhost
	}
	if ip == ns.defaultIP {
		return ns.internet
	}
	return nil
}

// DefaultIP returns the address of the routable interface.
func (ns *NetworkNamespace) DefaultIP() netip.Addr {
	return ns.defaultIP
}

// DefaultAddress returns the registered address handle backing the routable
// interface. The namespace keeps ownership; callers needing to hold it past
// the namespace's lifetime must Retain it.
func (ns *NetworkNamespace) DefaultAddress() *registry.Address {
	return ns.defaultAddress
}

// Unix returns the abstract UNIX socket namespace shared with the host's
// unix-socket code.
func (ns *NetworkNamespace) Unix() *unixns.Namespace {
	return ns.unix
}

// IsInterfaceAvailable reports whether a socket could bind src and talk to
// dst without colliding with an existing association.
//
// An unspecified source address models INADDR_ANY: the bind claims the port
// simulation-wide, so the tuple must be free on every interface. A specific
// source address that matches no interface is never available; binds to
// nonexistent addresses fail rather than silently succeeding.
func (ns *NetworkNamespace) IsInterfaceAvailable(proto network.Protocol, src, dst netip.AddrPort) bool {
	if src.Addr().Unmap().IsUnspecified() {
		return !ns.localhost.IsAssociated(proto, src.Port(), dst) &&
			!ns.internet.IsAssociated(proto, src.Port(), dst)
	}

	iface := ns.Interface(src.Addr())
	if iface == nil {
		return false
	}
	return !iface.IsAssociated(proto, src.Port(), dst)
}

// AssociateInterface records that socket claims (proto, bindAddr, peerAddr).
// A wildcard bind address claims the tuple on both interfaces; a specific
// bind address claims it on the matching interface. A bind address matching
// no interface is a silent no-op, surfaced only in debug logs.
func (ns *NetworkNamespace) AssociateInterface(socket network.SocketHandle, proto network.Protocol, bindAddr, peerAddr netip.AddrPort) {
	if bindAddr.Addr().Unmap().IsUnspecified() {
		ns.localhost.Associate(socket, proto, bindAddr.Port(), peerAddr)
		ns.internet.Associate(socket, proto, bindAddr.Port(), peerAddr)
		return
	}

	if iface := ns.Interface(bindAddr.Addr()); iface != nil {
		iface.Associate(socket, proto, bindAddr.Port(), peerAddr)
		return
	}

	logrus.WithFields(logrus.Fields{
		"protocol": proto.String(),
		"bind":     bindAddr.String(),
		"peer":     peerAddr.String(),
	}).Debug("associate targeted an address with no interface, ignoring")
}

// DisassociateInterface releases the claim on (proto, bindAddr, peerAddr),
// mirroring AssociateInterface's interface selection. Releasing a claim that
// does not exist is a no-op, so the call is idempotent.
func (ns *NetworkNamespace) DisassociateInterface(proto network.Protocol, bindAddr, peerAddr netip.AddrPort) {
	if bindAddr.Addr().Unmap().IsUnspecified() {
		ns.localhost.Disassociate(proto, bindAddr.Port(), peerAddr)
		ns.internet.Disassociate(proto, bindAddr.Port(), peerAddr)
		return
	}

	if iface := ns.Interface(bindAddr.Addr()); iface != nil {
		iface.Disassociate(proto, bindAddr.Port(), peerAddr)
		return
	}

	logrus.WithFields(logrus.Fields{
		"protocol": proto.String(),
		"bind":     bindAddr.String(),
		"peer":     peerAddr.String(),
	}).Debug("disassociate targeted an address with no interface, ignoring")
}
