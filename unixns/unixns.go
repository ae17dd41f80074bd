// Package unixns tracks abstract UNIX-domain socket names on one simulated
// host.
//
// Abstract names live in a flat per-namespace table rather than on a
// filesystem. The table is shared by pointer between the network namespace
// and the unix-socket implementation; all access is serialized through the
// namespace's own lock.
package unixns

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/simnet/network"
)

// MaxNameLen matches the kernel limit on abstract socket names: the
// sun_path buffer minus the leading NUL that marks the name as abstract.
const MaxNameLen = 107

// autobindSpace is the number of kernel-style autobind names, "00000"
// through "fffff".
const autobindSpace = 1 << 20

// autobindProbes bounds the random phase of AutoBind before it falls back to
// a full scan.
const autobindProbes = 10

// Common errors for abstract name binding.
var (
	// ErrNameInUse indicates the abstract name is already bound.
	ErrNameInUse = errors.New("abstract name already bound")

	// ErrNameTooLong indicates the name exceeds MaxNameLen.
	ErrNameTooLong = errors.New("abstract name too long")

	// ErrNamespaceFull indicates no autobind name is free.
	ErrNamespaceFull = errors.New("abstract namespace full")
)

// Namespace is the abstract UNIX socket name table of one host.
type Namespace struct {
	mu    sync.Mutex
	names map[string]network.SocketHandle
}

// New creates an empty abstract namespace.
func New() *Namespace {
	return &Namespace{
		names: make(map[string]network.SocketHandle),
	}
}

// Bind claims name for the given socket.
func (n *Namespace) Bind(name string, socket network.SocketHandle) error {
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.names[name]; ok {
		return ErrNameInUse
	}
	n.names[name] = socket
	return nil
}

// AutoBind claims a kernel-style autobind name (five lowercase hex digits)
// for the socket and returns it. It probes randomly first, then scans the
// whole autobind space so exhaustion is detected deterministically.
func (n *Namespace) AutoBind(socket network.SocketHandle, rng *rand.Rand) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for range autobindProbes {
		name := autobindName(rng.IntN(autobindSpace))
		if _, ok := n.names[name]; !ok {
			n.names[name] = socket
			return name, nil
		}
	}

	start := rng.IntN(autobindSpace)
	for i := 0; i < autobindSpace; i++ {
		name := autobindName((start + i) % autobindSpace)
		if _, ok := n.names[name]; !ok {
			n.names[name] = socket
			return name, nil
		}
	}

	logrus.WithField("bound_names", len(n.names)).Warn("abstract namespace has no free autobind name")
	return "", ErrNamespaceFull
}

// Lookup returns the socket bound to name.
func (n *Namespace) Lookup(name string) (network.SocketHandle, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	socket, ok := n.names[name]
	return socket, ok
}

// Unbind releases name and reports whether it was bound. Unbinding an
// unknown name is a no-op.
func (n *Namespace) Unbind(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.names[name]; !ok {
		return false
	}
	delete(n.names, name)
	return true
}

// Len returns the number of bound names.
func (n *Namespace) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return len(n.names)
}

func autobindName(v int) string {
	return fmt.Sprintf("%05x", v)
}
