package core

import "fmt"

// IPVersion identifies the IP address family a component operates on. It
// determines socket family, packet layout and address encoding throughout
// the package.
type IPVersion int

const (
	// V4 selects IPv4 sockets, packets and addressing.
	V4 IPVersion = iota
	// V6 selects IPv6 sockets, packets and addressing.
	V6
)

// String implements fmt.Stringer.
func (v IPVersion) String() string {
	switch v {
	case V4:
		return "ipv4"
	case V6:
		return "ipv6"
	default:
		return fmt.Sprintf("IPVersion(%d)", int(v))
	}
}
