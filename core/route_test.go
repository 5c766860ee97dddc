package core

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnspecifiedAddress(t *testing.T) {
	assert.True(t, net.IPv4zero.Equal(unspecifiedAddress(V4)))
	assert.True(t, net.IPv6zero.Equal(unspecifiedAddress(V6)))
}

func TestDiscoverFailsOnUnresolvableHost(t *testing.T) {
	e := NewRouteEngine()

	_, err := e.Discover("this-host-does-not-resolve.invalid", V4)
	assert.Error(t, err)
}
