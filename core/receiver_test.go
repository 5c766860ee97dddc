package core

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReceiverFanOutReachesOnlyMatchingVersion(t *testing.T) {
	r := NewReceiverWorker()

	var v4Calls, v6Calls int
	r.register(V4, func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) { v4Calls++ })
	r.register(V6, func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) { v6Calls++ })

	r.fanOut(V4, &ICMPPacket{}, time.Now(), &net.IPAddr{IP: net.ParseIP("127.0.0.1")})

	assert.Equal(t, 1, v4Calls)
	assert.Equal(t, 0, v6Calls)
}

func TestReceiverDeregisterStopsDelivery(t *testing.T) {
	r := NewReceiverWorker()

	var calls int
	token := r.register(V4, func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) { calls++ })

	r.fanOut(V4, &ICMPPacket{}, time.Now(), nil)
	r.deregister(token)
	r.fanOut(V4, &ICMPPacket{}, time.Now(), nil)

	assert.Equal(t, 1, calls)
}

func TestReceiverMultipleListenersAllReceive(t *testing.T) {
	r := NewReceiverWorker()

	var a, b int
	r.register(V4, func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) { a++ })
	r.register(V4, func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) { b++ })

	r.fanOut(V4, &ICMPPacket{}, time.Now(), nil)

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}
