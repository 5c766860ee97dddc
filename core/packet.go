package core

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// ResultCode classifies a decoded ICMPPacket, per §3/§4.1.
type ResultCode int

const (
	// EchoRequest is an outbound probe, type 8 (v4) / 128 (v6).
	EchoRequest ResultCode = iota
	// EchoReply is a successful end-to-end reply, type 0 (v4) / 129 (v6).
	EchoReply
	// TimeExceeded is a router's TTL/HopLimit-expired notification, type 11
	// (v4) / 3 (v6).
	TimeExceeded
	// Invalid marks a packet that failed to parse: wrong type/code, a
	// truncated header, or a checksum mismatch.
	Invalid
)

const (
	icmpv4EchoRequest     = byte(ipv4.ICMPTypeEcho)
	icmpv4EchoReply       = byte(ipv4.ICMPTypeEchoReply)
	icmpv4TimeExceeded    = byte(ipv4.ICMPTypeTimeExceeded)
	icmpv6EchoRequest     = byte(ipv6.ICMPTypeEchoRequest)
	icmpv6EchoReply       = byte(ipv6.ICMPTypeEchoReply)
	icmpv6TimeExceeded    = byte(ipv6.ICMPTypeTimeExceeded)
	icmpHeaderLen         = 8 // type, code, checksum, id, seq
	icmpv4QuotedHeaderLen = 8 // minimum: first 8 bytes of the inner datagram
	icmpv6QuotedIPLen     = 40
)

// ICMPPacket is a decoded ICMP v4/v6 echo/reply/time-exceeded packet, or the
// raw bytes of one still to be encoded. It never carries its own version:
// callers already know which version they asked to encode or decode.
type ICMPPacket struct {
	ResultCode ResultCode
	ID         uint16
	Sequence   uint16
	Payload    []byte
}

// PingPacket builds the wire bytes of an Echo Request, per §6's wire format:
// an 8-byte ICMP header followed by a payloadLength-byte payload. destination
// is accepted for symmetry with the original interface and future pseudo-
// header use; it is not needed for v4 (whose checksum has no pseudo-header)
// and, for v6, the checksum is left for the kernel to fill in — see the
// "Checksum" note below.
func PingPacket(id, sequence uint16, payloadLength int, destination net.IP, version IPVersion) []byte {
	_ = destination

	buf := make([]byte, icmpHeaderLen+payloadLength)

	if version == V4 {
		buf[0] = icmpv4EchoRequest
	} else {
		buf[0] = icmpv6EchoRequest
	}
	buf[1] = 0 // code

	putUint16(buf[4:6], id)
	putUint16(buf[6:8], sequence)

	for i := 0; i < payloadLength; i++ {
		buf[icmpHeaderLen+i] = byte(i)
	}

	// v4 has no pseudo-header, so the checksum is self-contained and we can
	// compute it ourselves, exactly as §4.1 requires. v6's checksum needs
	// the pseudo-header's source address, which isn't known until the
	// kernel picks an outgoing route; RFC 3542 makes the kernel always
	// compute (and verify, on receive) the ICMPv6 checksum on raw/datagram
	// ICMPv6 sockets, so we deliberately leave it zero here and let the
	// socket layer's IPV6_CHECKSUM handling do the real work.
	if version == V4 {
		putUint16(buf[2:4], checksum(buf))
	}

	return buf
}

// FromData parses bytes received off the wire into an ICMPPacket. For v6
// checksum verification, pseudoHeaderAddrs may be supplied as
// (source, destination); without them v6 packets are validated structurally
// (type, code, length) but their checksum is trusted, matching the kernel's
// own mandatory verification of ICMPv6 checksums on delivery.
func FromData(data []byte, version IPVersion, pseudoHeaderAddrs ...net.IP) *ICMPPacket {
	if len(data) < icmpHeaderLen {
		return &ICMPPacket{ResultCode: Invalid}
	}

	if version == V4 {
		return fromDataV4(data)
	}

	var src, dst net.IP
	if len(pseudoHeaderAddrs) == 2 {
		src, dst = pseudoHeaderAddrs[0], pseudoHeaderAddrs[1]
	}

	return fromDataV6(data, src, dst)
}

func fromDataV4(data []byte) *ICMPPacket {
	typ, code := data[0], data[1]

	switch {
	case code == 0 && typ == icmpv4EchoReply:
		if checksum(data) != 0 {
			return &ICMPPacket{ResultCode: Invalid}
		}

		return &ICMPPacket{
			ResultCode: EchoReply,
			ID:         getUint16(data[4:6]),
			Sequence:   getUint16(data[6:8]),
			Payload:    data[icmpHeaderLen:],
		}
	case code == 0 && typ == icmpv4TimeExceeded:
		if checksum(data) != 0 {
			return &ICMPPacket{ResultCode: Invalid}
		}

		id, seq, ok := quotedV4Header(data[icmpHeaderLen:])
		if !ok {
			return &ICMPPacket{ResultCode: Invalid}
		}

		return &ICMPPacket{
			ResultCode: TimeExceeded,
			ID:         id,
			Sequence:   seq,
			Payload:    data[icmpHeaderLen:],
		}
	default:
		return &ICMPPacket{ResultCode: Invalid}
	}
}

// quotedV4Header reads the (id, sequence) embedded in the inner, quoted
// IP+ICMP header carried by a v4 TimeExceeded message: the quoted IP
// header's IHL nibble gives its length, and the inner ICMP header's id/seq
// immediately follow it, per §3's ICMPPacket invariant.
func quotedV4Header(quoted []byte) (id, sequence uint16, ok bool) {
	if len(quoted) < 1 {
		return 0, 0, false
	}

	ihl := int(quoted[0]&0x0f) * 4
	if ihl < 20 || len(quoted) < ihl+icmpv4QuotedHeaderLen {
		return 0, 0, false
	}

	inner := quoted[ihl:]

	return getUint16(inner[4:6]), getUint16(inner[6:8]), true
}

func fromDataV6(data []byte, src, dst net.IP) *ICMPPacket {
	typ, code := data[0], data[1]

	switch {
	case code == 0 && typ == icmpv6EchoReply:
		if src != nil && dst != nil && checksumV6(data, src, dst) != 0 {
			return &ICMPPacket{ResultCode: Invalid}
		}

		return &ICMPPacket{
			ResultCode: EchoReply,
			ID:         getUint16(data[4:6]),
			Sequence:   getUint16(data[6:8]),
			Payload:    data[icmpHeaderLen:],
		}
	case code == 0 && typ == icmpv6TimeExceeded:
		if src != nil && dst != nil && checksumV6(data, src, dst) != 0 {
			return &ICMPPacket{ResultCode: Invalid}
		}

		quoted := data[icmpHeaderLen:]
		if len(quoted) < icmpv6QuotedIPLen+icmpv4QuotedHeaderLen {
			return &ICMPPacket{ResultCode: Invalid}
		}

		inner := quoted[icmpv6QuotedIPLen:]

		return &ICMPPacket{
			ResultCode: TimeExceeded,
			ID:         getUint16(inner[4:6]),
			Sequence:   getUint16(inner[6:8]),
			Payload:    quoted,
		}
	default:
		return &ICMPPacket{ResultCode: Invalid}
	}
}

// checksumV6 verifies the RFC 1071 checksum of an ICMPv6 message, including
// the v6 pseudo-header (source, destination, upper-layer length, next
// header=58), per §4.1.
func checksumV6(data []byte, src, dst net.IP) uint16 {
	pseudo := make([]byte, 0, 40+len(data))

	pseudo = append(pseudo, src.To16()...)
	pseudo = append(pseudo, dst.To16()...)

	var length [4]byte
	putUint32(length[:], uint32(len(data)))
	pseudo = append(pseudo, length[:]...)

	pseudo = append(pseudo, 0, 0, 0, icmpv6Protocol)
	pseudo = append(pseudo, data...)

	return checksum(pseudo)
}

const icmpv6Protocol = 58

func putUint16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func getUint16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
