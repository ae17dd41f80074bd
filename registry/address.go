package registry

import (
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// HostID identifies a simulated host for the lifetime of a simulation run.
type HostID uint32

// Address is a reference-counted handle to a registered (hostname, IP) pair.
//
// Register returns a handle with one reference owned by the caller. Whoever
// holds the last reference is responsible for the matching Deregister call;
// Release only drops the reference, it never touches the registry indexes.
type Address struct {
	hostID   HostID
	hostname string
	ip       netip.Addr
	refs     atomic.Int32
}

func newAddress(host HostID, hostname string, ip netip.Addr) *Address {
	a := &Address{
		hostID:   host,
		hostname: hostname,
		ip:       ip,
	}
	a.refs.Store(1)
	return a
}

// HostID returns the host that registered this address.
func (a *Address) HostID() HostID {
	return a.hostID
}

// Hostname returns the canonicalized hostname of the registration.
func (a *Address) Hostname() string {
	return a.hostname
}

// IP returns the registered IPv4 address.
func (a *Address) IP() netip.Addr {
	return a.ip
}

// Retain adds a reference and returns the same handle for chaining.
func (a *Address) Retain() *Address {
	a.refs.Add(1)
	return a
}

// Release drops one reference. Releasing more references than were taken is
// a caller bug; it is logged rather than panicking because the handle itself
// holds no resources beyond the registration bookkeeping.
func (a *Address) Release() {
	if a.refs.Add(-1) < 0 {
		logrus.WithFields(logrus.Fields{
			"hostname": a.hostname,
			"ip":       a.ip.String(),
		}).Error("address handle released more times than retained")
	}
}

// RefCount reports the current reference count. Intended for tests and
// diagnostics, not for lifecycle decisions.
func (a *Address) RefCount() int32 {
	return a.refs.Load()
}

func (a *Address) String() string {
	return fmt.Sprintf("%s/%s", a.hostname, a.ip.String())
}
