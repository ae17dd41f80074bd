package simnet

import (
	"bytes"
	"io"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/simnet/network"
	"github.com/opd-ai/simnet/registry"
)

func newTestNamespace(t *testing.T) *NetworkNamespace {
	t.Helper()

	reg := registry.NewRegistry()
	ns := NewNetworkNamespace(1, "alice.example.org", netip.MustParseAddr("10.0.0.5"),
		nil, network.QDiscFIFO, reg)
	t.Cleanup(func() { _ = ns.Close() })
	return ns
}

func TestInterfaceSelection(t *testing.T) {
	ns := newTestNamespace(t)

	tests := []struct {
		name string
		ip   string
		want *network.Interface
	}{
		{"loopback", "127.0.0.1", ns.localhost},
		{"other loopback", "127.0.0.42", ns.localhost},
		{"default ip", "10.0.0.5", ns.internet},
		{"unknown ip", "10.0.0.6", nil},
		{"unspecified", "0.0.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ns.Interface(netip.MustParseAddr(tt.ip))
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				assert.Same(t, tt.want, got)
			}
		})
	}
}

func TestNamespaceConstruction(t *testing.T) {
	reg := registry.NewRegistry()
	ns := NewNetworkNamespace(1, "alice.example.org", netip.MustParseAddr("10.0.0.5"),
		nil, network.QDiscFIFO, reg)
	defer ns.Close()

	assert.Equal(t, netip.MustParseAddr("10.0.0.5"), ns.DefaultIP())
	assert.NotNil(t, ns.Unix())
	assert.False(t, ns.localhost.UsesRouter())
	assert.True(t, ns.internet.UsesRouter())

	// The namespace holds the only caller reference on the default address.
	require.NotNil(t, ns.DefaultAddress())
	assert.Equal(t, int32(1), ns.DefaultAddress().RefCount())

	// The public address is registered; loopback is not indexed.
	name, ok := reg.LookupName(netip.MustParseAddr("10.0.0.5"))
	require.True(t, ok)
	assert.Equal(t, "alice.example.org.", name)
	_, ok = reg.LookupName(netip.MustParseAddr("127.0.0.1"))
	assert.False(t, ok)
}

func TestConstructionPanicsWhenRegistrationFails(t *testing.T) {
	reg := registry.NewRegistry()

	// Occupy the public address so the second host's registration fails.
	_, err := reg.Register(1, "alice.example.org", netip.MustParseAddr("10.0.0.5"))
	require.NoError(t, err)

	assert.Panics(t, func() {
		NewNetworkNamespace(2, "bob.example.org", netip.MustParseAddr("10.0.0.5"),
			nil, network.QDiscFIFO, reg)
	})
}

func TestWildcardAvailabilityIsConjunctionOfInterfaces(t *testing.T) {
	ns := newTestNamespace(t)
	peer := netip.MustParseAddrPort("192.0.2.1:80")
	wildcard := netip.MustParseAddrPort("0.0.0.0:5000")

	require.True(t, ns.IsInterfaceAvailable(network.ProtocolTCP, wildcard, peer))

	// Claim on the routable interface only; the wildcard must see it.
	ns.AssociateInterface(network.NewSocketHandle(), network.ProtocolTCP,
		netip.MustParseAddrPort("10.0.0.5:5000"), peer)
	assert.False(t, ns.IsInterfaceAvailable(network.ProtocolTCP, wildcard, peer))
	assert.True(t, ns.IsInterfaceAvailable(network.ProtocolTCP,
		netip.MustParseAddrPort("127.0.0.1:5000"), peer),
		"loopback itself is still free")

	ns.DisassociateInterface(network.ProtocolTCP, netip.MustParseAddrPort("10.0.0.5:5000"), peer)

	// Claim on loopback only; the wildcard must see that too.
	ns.AssociateInterface(network.NewSocketHandle(), network.ProtocolTCP,
		netip.MustParseAddrPort("127.0.0.1:5000"), peer)
	assert.False(t, ns.IsInterfaceAvailable(network.ProtocolTCP, wildcard, peer))
}

func TestNonexistentAddressIsNeverAvailable(t *testing.T) {
	ns := newTestNamespace(t)
	peer := netip.MustParseAddrPort("192.0.2.1:80")

	assert.False(t, ns.IsInterfaceAvailable(network.ProtocolTCP,
		netip.MustParseAddrPort("10.0.0.6:5000"), peer))
}

func TestWildcardAssociateClaimsBothInterfaces(t *testing.T) {
	ns := newTestNamespace(t)
	peer := netip.MustParseAddrPort("192.0.2.1:80")
	bind := netip.MustParseAddrPort("0.0.0.0:5000")

	ns.AssociateInterface(network.NewSocketHandle(), network.ProtocolTCP, bind, peer)

	assert.True(t, ns.localhost.IsAssociated(network.ProtocolTCP, 5000, peer))
	assert.True(t, ns.internet.IsAssociated(network.ProtocolTCP, 5000, peer))

	ns.DisassociateInterface(network.ProtocolTCP, bind, peer)

	assert.False(t, ns.localhost.IsAssociated(network.ProtocolTCP, 5000, peer))
	assert.False(t, ns.internet.IsAssociated(network.ProtocolTCP, 5000, peer))
}

func TestDisassociateTwiceMatchesNeverAssociated(t *testing.T) {
	ns := newTestNamespace(t)
	peer := netip.MustParseAddrPort("192.0.2.1:80")
	bind := netip.MustParseAddrPort("10.0.0.5:5000")

	ns.AssociateInterface(network.NewSocketHandle(), network.ProtocolTCP, bind, peer)
	ns.DisassociateInterface(network.ProtocolTCP, bind, peer)
	ns.DisassociateInterface(network.ProtocolTCP, bind, peer)

	assert.True(t, ns.IsInterfaceAvailable(network.ProtocolTCP, bind, peer))
	assert.Equal(t, 0, ns.localhost.AssociationCount())
	assert.Equal(t, 0, ns.internet.AssociationCount())
}

func TestConstructionOpensCapturePerInterface(t *testing.T) {
	reg := registry.NewRegistry()
	streams := make(map[string]*bytes.Buffer)
	pcap := &network.PcapOptions{
		Open: func(hostname string, ip netip.Addr) (io.Writer, error) {
			buf := &bytes.Buffer{}
			streams[ip.String()] = buf
			return buf, nil
		},
	}

	ns := NewNetworkNamespace(1, "alice.example.org", netip.MustParseAddr("10.0.0.5"),
		pcap, network.QDiscFIFO, reg)
	defer ns.Close()

	require.Len(t, streams, 2)
	require.Contains(t, streams, "127.0.0.1")
	require.Contains(t, streams, "10.0.0.5")

	// Each interface wrote its own 24-byte pcap file header.
	headerLen := streams["10.0.0.5"].Len()
	assert.Equal(t, 24, headerLen)
	assert.Equal(t, 24, streams["127.0.0.1"].Len())

	// Traffic on one interface lands in that interface's stream only.
	ns.internet.PushPacket(network.NewSocketHandle(), &network.Packet{
		Protocol: network.ProtocolUDP,
		Src:      netip.MustParseAddrPort("10.0.0.5:10000"),
		Dst:      netip.MustParseAddrPort("192.0.2.1:53"),
		Payload:  []byte("query"),
	})
	assert.Greater(t, streams["10.0.0.5"].Len(), headerLen)
	assert.Equal(t, 24, streams["127.0.0.1"].Len())
}

func TestAssociateUnknownAddressIsNoOp(t *testing.T) {
	ns := newTestNamespace(t)
	peer := netip.MustParseAddrPort("192.0.2.1:80")
	bind := netip.MustParseAddrPort("10.0.0.6:5000")

	ns.AssociateInterface(network.NewSocketHandle(), network.ProtocolTCP, bind, peer)
	ns.DisassociateInterface(network.ProtocolTCP, bind, peer)

	assert.Equal(t, 0, ns.localhost.AssociationCount())
	assert.Equal(t, 0, ns.internet.AssociationCount())
}
