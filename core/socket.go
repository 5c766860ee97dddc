package core

import (
	"fmt"
	"net"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
)

// ICMPSocket is a thin, cross-platform wrapper around the send/receive
// primitives needed by the ping engine and the route worker, per §4.2. It
// is the only place in the package allowed to branch on runtime.GOOS.
type ICMPSocket struct {
	conn    *icmp.PacketConn
	version IPVersion
}

// networkFor returns the golang.org/x/net/icmp network string for version
// on the running platform, implementing §4.2's platform table: macOS uses
// unprivileged datagram ICMP (no root required), every other OS uses raw
// ICMP. Windows needs no separate branch here — golang.org/x/net/icmp
// already binds the raw socket to the unspecified address and puts it in
// non-blocking mode on every platform it supports.
func networkFor(version IPVersion) string {
	if runtime.GOOS == "darwin" {
		if version == V4 {
			return "udp4"
		}
		return "udp6"
	}

	if version == V4 {
		return "ip4:icmp"
	}
	return "ip6:ipv6-icmp"
}

// CreateReadSocket opens a socket suitable for receiving all ICMP traffic
// of version, non-blocking, per §4.2.
func CreateReadSocket(version IPVersion) (*ICMPSocket, error) {
	logger := newLogger(log.InfoLevel, "icmpsocket")

	network := networkFor(version)

	logger.Infof("opening read socket on network %s for %s", network, version)

	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		if isPermissionError(err) {
			logger.Errorf("insufficient privilege to open a raw %s ICMP socket: %s", version, err)
		}
		return nil, fmt.Errorf("could not open %s read socket: %w", version, err)
	}

	return &ICMPSocket{conn: conn, version: version}, nil
}

// CreateWriteSocket opens a socket and, if ttl is non-zero, sets IP_TTL
// (v4) or IPV6_UNICAST_HOPS (v6) to ttl, per §4.2. ttl == 0 leaves the
// platform default in place, matching PingTarget's "0 means use default".
func CreateWriteSocket(ttl int, version IPVersion) (*ICMPSocket, error) {
	logger := newLogger(log.InfoLevel, "icmpsocket")

	network := networkFor(version)

	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		if isPermissionError(err) {
			logger.Errorf("insufficient privilege to open a raw %s ICMP socket: %s", version, err)
		}
		return nil, fmt.Errorf("could not open %s write socket: %w", version, err)
	}

	socket := &ICMPSocket{conn: conn, version: version}

	if ttl > 0 {
		if version == V4 {
			err = socket.SetTTL(ttl)
		} else {
			err = socket.SetHopLimit(ttl)
		}
		if err != nil {
			socket.Close()
			return nil, fmt.Errorf("could not set ttl %d on %s write socket: %w", ttl, version, err)
		}
	}

	return socket, nil
}

// SendTo writes buffer to host, returning the number of bytes written.
func (s *ICMPSocket) SendTo(buffer []byte, host net.Addr) (int, error) {
	return s.conn.WriteTo(buffer, host)
}

// RecvFrom reads a single datagram into buffer, waiting at most timeout.
// The returned error satisfies net.Error with Timeout() == true when no
// datagram arrived within timeout, the Go equivalent of §4.2's "recvfrom
// returns -1 on timeout".
func (s *ICMPSocket) RecvFrom(buffer []byte, timeout time.Duration) (int, net.Addr, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, nil, fmt.Errorf("could not set read deadline: %w", err)
	}

	n, addr, err := s.conn.ReadFrom(buffer)
	if err != nil {
		return 0, nil, err
	}

	return n, addr, nil
}

// SetTTL sets the IPv4 TTL used by subsequent sends on this socket.
func (s *ICMPSocket) SetTTL(ttl int) error {
	if s.version != V4 {
		return fmt.Errorf("SetTTL called on a %s socket", s.version)
	}
	return s.conn.IPv4PacketConn().SetTTL(ttl)
}

// SetHopLimit sets the IPv6 hop limit used by subsequent sends on this
// socket.
func (s *ICMPSocket) SetHopLimit(hopLimit int) error {
	if s.version != V6 {
		return fmt.Errorf("SetHopLimit called on a %s socket", s.version)
	}
	return s.conn.IPv6PacketConn().SetHopLimit(hopLimit)
}

// Version returns the IP version this socket was created for.
func (s *ICMPSocket) Version() IPVersion {
	return s.version
}

// Close releases the underlying connection.
func (s *ICMPSocket) Close() error {
	return s.conn.Close()
}
