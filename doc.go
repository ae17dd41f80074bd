// Package simnet implements the per-host virtual network namespace of a
// discrete-event network simulator.
//
// A NetworkNamespace is the simulated equivalent of a Linux struct net: it
// owns the host's two network interfaces (loopback and one routable
// interface), mediates ephemeral port allocation, and tracks which
// (protocol, local port, peer) tuples are claimed so simulated sockets
// behave like real ones with respect to address and port conflicts.
//
// # Getting Started
//
// Create one namespace per simulated host at boot and close it at teardown:
//
//	reg := registry.NewRegistry()
//	ns := simnet.NewNetworkNamespace(hostID, "alice.example.org",
//	    netip.MustParseAddr("10.0.0.5"), nil, network.QDiscFIFO, reg)
//	defer ns.Close()
//
//	// Allocate an ephemeral port for an outbound connection.
//	rng := simrand.NewHostSource(simSeed, hostID, "alice.example.org")
//	port, ok := ns.GetRandomFreePort(network.ProtocolTCP,
//	    ns.DefaultIP(), peer, rng)
//
//	// Claim and later release the bind.
//	ns.AssociateInterface(socket, network.ProtocolTCP, bind, peer)
//	ns.DisassociateInterface(network.ProtocolTCP, bind, peer)
//
// # Semantics
//
// Binding to the unspecified address (0.0.0.0) claims the port on every
// interface at once; availability over a wildcard source is therefore the
// conjunction of both interfaces. A bind targeting an address no interface
// owns can never succeed and is reported unavailable.
//
// Ephemeral ports come from [MinRandomPort, 65535]. The allocator draws up
// to ten uniform probes, then degrades to a wrap-around linear sweep from a
// random offset, so it stays O(1) under low contention and bounded under
// exhaustion. All randomness is injected, keeping runs reproducible.
//
// # Subpackages
//
//   - [registry]: DNS-like address registry with reference-counted handles
//   - [network]: virtual interface, association tables, qdisc, pcap capture
//   - [unixns]: abstract UNIX-domain socket names
//   - [simrand]: deterministic per-host randomness derivation
//
// # Concurrency
//
// The simulator runs each host on one worker thread at a time, but hosts
// migrate between workers across event slices, so everything here is safe to
// move across goroutines and the shared pieces (registry, abstract UNIX
// namespace, interface tables) carry their own locks. No operation blocks or
// performs I/O; every call completes within the logical step that made it.
package simnet
