// Package network implements the virtual network interface of a simulated
// host.
//
// An Interface stands in for one NIC: it is bound to exactly one IPv4
// address and tracks which (protocol, local port, peer) tuples are currently
// claimed by simulated sockets. The namespace layer above decides which
// interface(s) an operation targets; the interface only answers association
// queries and mutates its own tables.
//
// Beyond association bookkeeping an interface applies egress queue
// discipline (FIFO or per-socket round-robin) to packets queued for
// transmission, and can mirror every queued or delivered packet to a pcap
// stream for offline inspection. The interface never performs I/O and never
// advances simulated time; moving packets between hosts belongs to the
// simulation scheduler.
package network
