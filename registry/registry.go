package registry

import (
	"net/netip"
	"sync"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
)

// Registry maps hostnames to simulated IPv4 addresses and back.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Address
	byIP   map[netip.Addr]*Address
}

// NewRegistry creates an empty address registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Address),
		byIP:   make(map[netip.Addr]*Address),
	}
}

// Register claims (hostname, ip) for the given host and returns an Address
// handle with one reference owned by the caller.
//
// Loopback addresses are accepted for any host and never entered into the
// global indexes: every host registers 127.0.0.1 and loopback registrations
// need no deregistration. Non-loopback registrations fail if the hostname or
// address is already claimed.
func (r *Registry) Register(host HostID, hostname string, ip netip.Addr) (*Address, error) {
	name, err := canonicalHostname(hostname)
	if err != nil {
		return nil, newRegistryError("register", hostname, err)
	}

	ip = ip.Unmap()
	if !ip.IsValid() || !ip.Is4() {
		return nil, newRegistryError("register", name, ErrInvalidAddress)
	}

	addr := newAddress(host, name, ip)

	if ip.IsLoopback() {
		return addr, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; ok {
		return nil, newRegistryError("register", name, ErrHostnameInUse)
	}
	if _, ok := r.byIP[ip]; ok {
		return nil, newRegistryError("register", name, ErrAddressInUse)
	}

	r.byName[name] = addr
	r.byIP[ip] = addr

	logrus.WithFields(logrus.Fields{
		"host_id":  host,
		"hostname": name,
		"ip":       ip.String(),
	}).Debug("registered address")

	return addr, nil
}

// Deregister removes the registration backing addr from the indexes.
// Deregistering a loopback handle, or a handle that was already
// deregistered, is a no-op.
func (r *Registry) Deregister(addr *Address) {
	if addr == nil || addr.ip.IsLoopback() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Only remove entries that still point at this exact handle, so a stale
	// handle cannot evict a newer registration of the same name.
	if cur, ok := r.byName[addr.hostname]; ok && cur == addr {
		delete(r.byName, addr.hostname)
	}
	if cur, ok := r.byIP[addr.ip]; ok && cur == addr {
		delete(r.byIP, addr.ip)
	}

	logrus.WithFields(logrus.Fields{
		"host_id":  addr.hostID,
		"hostname": addr.hostname,
		"ip":       addr.ip.String(),
	}).Debug("deregistered address")
}

// LookupIP resolves a hostname to its registered address.
func (r *Registry) LookupIP(hostname string) (netip.Addr, bool) {
	name, err := canonicalHostname(hostname)
	if err != nil {
		return netip.Addr{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.byName[name]
	if !ok {
		return netip.Addr{}, false
	}
	return addr.ip, true
}

// LookupName resolves an address to its registered hostname.
func (r *Registry) LookupName(ip netip.Addr) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addr, ok := r.byIP[ip.Unmap()]
	if !ok {
		return "", false
	}
	return addr.hostname, true
}

// canonicalHostname lowercases and fully qualifies a hostname so that
// equivalent spellings share one index entry.
func canonicalHostname(hostname string) (string, error) {
	if hostname == "" {
		return "", ErrInvalidHostname
	}
	if _, ok := dns.IsDomainName(hostname); !ok {
		return "", ErrInvalidHostname
	}
	return dns.CanonicalName(hostname), nil
}
