package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// DefaultSnapLen is the per-packet capture cap used when PcapOptions leaves
// SnapLen at zero.
const DefaultSnapLen = 65535

// Legacy pcap framing constants.
const (
	pcapMagic        = 0xa1b2c3d4
	pcapVersionMajor = 2
	pcapVersionMinor = 4

	// linkTypeRaw means each record starts directly at the IPv4 header;
	// simulated traffic has no link layer worth synthesizing.
	linkTypeRaw = 101

	pcapFileHeaderLen   = 24
	pcapRecordHeaderLen = 16

	ipv4HeaderLen = 20
	tcpHeaderLen  = 20
	udpHeaderLen  = 8
)

var errInvalidSource = errors.New("packet source is not ipv4")

// pcapWriter serializes simulated packets as legacy little-endian pcap
// records. Simulated packets carry only payload bytes, so minimal IPv4 and
// transport headers are synthesized around them at capture time.
type pcapWriter struct {
	w       io.Writer
	snapLen uint32
}

func newPcapWriter(w io.Writer, snapLen uint32) (*pcapWriter, error) {
	if snapLen == 0 {
		snapLen = DefaultSnapLen
	}

	var hdr [pcapFileHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], pcapMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], pcapVersionMinor)
	// thiszone and sigfigs stay zero.
	binary.LittleEndian.PutUint32(hdr[16:20], snapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], linkTypeRaw)

	if _, err := w.Write(hdr[:]); err != nil {
		return nil, fmt.Errorf("write pcap file header: %w", err)
	}
	return &pcapWriter{w: w, snapLen: snapLen}, nil
}

func (p *pcapWriter) writePacket(pkt *Packet) error {
	frame, err := synthesizeFrame(pkt)
	if err != nil {
		return err
	}

	origLen := len(frame)
	inclLen := origLen
	if uint32(inclLen) > p.snapLen {
		inclLen = int(p.snapLen)
	}

	now := time.Now()
	var hdr [pcapRecordHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(now.Unix()))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(now.Nanosecond()/1000))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(inclLen))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(origLen))

	if _, err := p.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("write pcap record header: %w", err)
	}
	if _, err := p.w.Write(frame[:inclLen]); err != nil {
		return fmt.Errorf("write pcap record: %w", err)
	}
	return nil
}

// synthesizeFrame wraps the payload in IPv4 plus a minimal transport header
// so standard tools can dissect the capture. Sequence numbers, flags and
// transport checksums are zero; the capture documents endpoints and sizes,
// not a byte-exact wire image.
func synthesizeFrame(pkt *Packet) ([]byte, error) {
	src := pkt.Src.Addr().Unmap()
	dst := pkt.Dst.Addr().Unmap()
	if !src.Is4() || !dst.Is4() {
		return nil, errInvalidSource
	}

	var transportLen int
	var ipProto uint8
	switch pkt.Protocol {
	case ProtocolTCP:
		transportLen, ipProto = tcpHeaderLen, 6
	case ProtocolUDP:
		transportLen, ipProto = udpHeaderLen, 17
	default:
		transportLen, ipProto = 0, 1
	}

	frame := make([]byte, ipv4HeaderLen+transportLen+len(pkt.Payload))

	// IPv4 header.
	frame[0] = (4 << 4) | (ipv4HeaderLen / 4)
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(frame)))
	frame[8] = 64 // TTL
	frame[9] = ipProto
	srcBytes := src.As4()
	dstBytes := dst.As4()
	copy(frame[12:16], srcBytes[:])
	copy(frame[16:20], dstBytes[:])
	binary.BigEndian.PutUint16(frame[10:12], ipv4Checksum(frame[:ipv4HeaderLen]))

	transport := frame[ipv4HeaderLen:]
	switch pkt.Protocol {
	case ProtocolTCP:
		binary.BigEndian.PutUint16(transport[0:2], pkt.Src.Port())
		binary.BigEndian.PutUint16(transport[2:4], pkt.Dst.Port())
		transport[12] = (tcpHeaderLen / 4) << 4 // data offset
	case ProtocolUDP:
		binary.BigEndian.PutUint16(transport[0:2], pkt.Src.Port())
		binary.BigEndian.PutUint16(transport[2:4], pkt.Dst.Port())
		binary.BigEndian.PutUint16(transport[4:6], uint16(udpHeaderLen+len(pkt.Payload)))
	}

	copy(frame[ipv4HeaderLen+transportLen:], pkt.Payload)
	return frame, nil
}

func ipv4Checksum(data []byte) uint16 {
	var sum uint32
	for i := 0; i < len(data)-1; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(data[i : i+2]))
	}
	if len(data)%2 == 1 {
		sum += uint32(data[len(data)-1]) << 8
	}
	for sum > 0xffff {
		sum = (sum >> 16) + (sum & 0xffff)
	}
	return ^uint16(sum)
}
