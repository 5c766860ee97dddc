package core

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkForMatchesPlatformTable(t *testing.T) {
	v4, v6 := networkFor(V4), networkFor(V6)

	if runtime.GOOS == "darwin" {
		assert.Equal(t, "udp4", v4)
		assert.Equal(t, "udp6", v6)
	} else {
		assert.Equal(t, "ip4:icmp", v4)
		assert.Equal(t, "ip6:ipv6-icmp", v6)
	}
}

func TestSetTTLRejectsWrongVersion(t *testing.T) {
	socket := &ICMPSocket{version: V6}

	err := socket.SetTTL(64)
	assert.Error(t, err)
}

func TestSetHopLimitRejectsWrongVersion(t *testing.T) {
	socket := &ICMPSocket{version: V4}

	err := socket.SetHopLimit(64)
	assert.Error(t, err)
}

func TestSocketVersion(t *testing.T) {
	socket := &ICMPSocket{version: V6}
	assert.Equal(t, V6, socket.Version())
}
