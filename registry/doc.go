// Package registry implements the DNS-like address registry of the simulator.
//
// Every simulated host claims its addresses here at boot: the registry maps
// hostnames to simulated IPv4 addresses and back, and hands out
// reference-counted Address handles that identify a registration until the
// owning host releases it at teardown.
//
// Hostnames are canonicalized to fully-qualified lowercase form before they
// are stored, so lookups are insensitive to case and trailing dots.
// Loopback registrations are special: every host registers 127.0.0.1 for its
// loopback interface, so loopback addresses are never entered into the
// global indexes and never need deregistration.
package registry
