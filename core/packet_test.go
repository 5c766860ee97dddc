package core

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPingPacketFromDataRoundTripV4(t *testing.T) {
	id, seq := uint16(0x1234), uint16(0x5678)

	buf := PingPacket(id, seq, 52, net.ParseIP("127.0.0.1"), V4)

	// pretend this is an echo reply by flipping the type byte, as a real
	// reply would have.
	buf[0] = icmpv4EchoReply
	putUint16(buf[2:4], 0)
	putUint16(buf[2:4], checksum(buf))

	pkt := FromData(buf, V4)

	assert.Equal(t, EchoReply, pkt.ResultCode)
	assert.Equal(t, id, pkt.ID)
	assert.Equal(t, seq, pkt.Sequence)
}

func TestFromDataInvalidOnBitFlip(t *testing.T) {
	id, seq := uint16(42), uint16(7)

	buf := PingPacket(id, seq, 16, net.ParseIP("127.0.0.1"), V4)
	buf[0] = icmpv4EchoReply
	putUint16(buf[2:4], 0)
	putUint16(buf[2:4], checksum(buf))

	pkt := FromData(buf, V4)
	assert.Equal(t, EchoReply, pkt.ResultCode)

	// flip a single bit in the payload; the checksum no longer matches.
	buf[len(buf)-1] ^= 0x01

	pkt = FromData(buf, V4)
	assert.Equal(t, Invalid, pkt.ResultCode)
}

func TestFromDataUnknownTypeIsInvalid(t *testing.T) {
	buf := []byte{99, 0, 0, 0, 0, 0, 0, 0}
	pkt := FromData(buf, V4)
	assert.Equal(t, Invalid, pkt.ResultCode)
}

func TestFromDataTruncatedIsInvalid(t *testing.T) {
	pkt := FromData([]byte{0, 0, 0}, V4)
	assert.Equal(t, Invalid, pkt.ResultCode)
}

func TestFromDataV4TimeExceededReadsInnerHeader(t *testing.T) {
	innerID, innerSeq := uint16(0x1234), uint16(0x0001)

	inner := make([]byte, 8)
	inner[0] = icmpv4EchoRequest
	putUint16(inner[4:6], innerID)
	putUint16(inner[6:8], innerSeq)

	quotedIP := make([]byte, 20)
	quotedIP[0] = 0x45 // version 4, IHL 5 (20 bytes)
	quoted := append(quotedIP, inner...)

	outer := make([]byte, icmpHeaderLen+len(quoted))
	outer[0] = icmpv4TimeExceeded
	copy(outer[icmpHeaderLen:], quoted)
	putUint16(outer[2:4], checksum(outer))

	pkt := FromData(outer, V4)

	assert.Equal(t, TimeExceeded, pkt.ResultCode)
	assert.Equal(t, innerID, pkt.ID)
	assert.Equal(t, innerSeq, pkt.Sequence)
}

func TestFromDataV6TimeExceededReadsInnerHeader(t *testing.T) {
	innerID, innerSeq := uint16(0xabcd), uint16(0x0009)

	inner := make([]byte, 8)
	inner[0] = icmpv6EchoRequest
	putUint16(inner[4:6], innerID)
	putUint16(inner[6:8], innerSeq)

	quotedIP := make([]byte, icmpv6QuotedIPLen)
	quoted := append(quotedIP, inner...)

	outer := make([]byte, icmpHeaderLen+len(quoted))
	outer[0] = icmpv6TimeExceeded
	copy(outer[icmpHeaderLen:], quoted)

	pkt := FromData(outer, V6)

	assert.Equal(t, TimeExceeded, pkt.ResultCode)
	assert.Equal(t, innerID, pkt.ID)
	assert.Equal(t, innerSeq, pkt.Sequence)
}

func TestFromDataV6EchoReplyVerifiesPseudoHeaderChecksum(t *testing.T) {
	id, seq := uint16(11), uint16(22)
	src := net.ParseIP("::1")
	dst := net.ParseIP("::1")

	buf := make([]byte, icmpHeaderLen+16)
	buf[0] = icmpv6EchoReply
	putUint16(buf[4:6], id)
	putUint16(buf[6:8], seq)
	putUint16(buf[2:4], checksumV6(buf, src, dst))

	pkt := FromData(buf, V6, src, dst)
	assert.Equal(t, EchoReply, pkt.ResultCode)

	buf[len(buf)-1] ^= 0x01
	pkt = FromData(buf, V6, src, dst)
	assert.Equal(t, Invalid, pkt.ResultCode)
}

func TestFromDataV6EchoReplyWithoutPseudoHeaderTrustsChecksum(t *testing.T) {
	id, seq := uint16(11), uint16(22)

	buf := make([]byte, icmpHeaderLen+16)
	buf[0] = icmpv6EchoReply
	putUint16(buf[4:6], id)
	putUint16(buf[6:8], seq)

	pkt := FromData(buf, V6)
	assert.Equal(t, EchoReply, pkt.ResultCode)
	assert.Equal(t, id, pkt.ID)
	assert.Equal(t, seq, pkt.Sequence)
}
