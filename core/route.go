package core

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"
)

// MaxRouteHops bounds how many TTLs a single discovery will try before
// giving up, per §4.3.
const MaxRouteHops = 64

// TransmitRetries is the number of probes sent per hop before moving on.
// The source sets this to 1, making the retry loop degenerate; see
// DESIGN.md for the decision to keep it as-is.
const TransmitRetries = 1

const (
	routeProbePayloadLength = 52
	initialRouteTimeout     = time.Second
)

// RouteResult is emitted once per Discover call: the resolved target
// address and the ordered list of hop addresses, per §3's RouteList.
// Route is nil when discovery exhausted MaxRouteHops without the target
// answering.
type RouteResult struct {
	TargetAddress net.IP
	Route         []net.IP
}

// RouteEngine runs single-shot traceroutes, per §4.3.
type RouteEngine struct {
	logger *log.Entry
}

// NewRouteEngine builds a RouteEngine.
func NewRouteEngine() *RouteEngine {
	return &RouteEngine{logger: newLogger(log.InfoLevel, "routeengine")}
}

// Discover resolves host and starts a traceroute to it on its own
// goroutine, per §5's "route discovery runs on its own worker thread per
// discovery request". The returned channel carries exactly one
// RouteResult and is then closed.
func (e *RouteEngine) Discover(host string, version IPVersion) (<-chan RouteResult, error) {
	target, err := resolveHost(host, version)
	if err != nil {
		return nil, err
	}

	results := make(chan RouteResult, 1)

	go e.discover(target, version, results)

	return results, nil
}

func (e *RouteEngine) discover(target net.IP, version IPVersion, results chan<- RouteResult) {
	defer close(results)

	route := make([]net.IP, 0, MaxRouteHops)
	isComplete := false

	for hop := 1; hop <= MaxRouteHops && !isComplete; hop++ {
		addr, complete, err := e.probeHop(target, version, hop)
		if err != nil {
			e.logger.Warnf("hop %d: could not open write socket: %s", hop, err)
			addr = unspecifiedAddress(version)
			complete = false
		}

		route = append(route, addr)
		isComplete = complete
	}

	if !isComplete {
		e.logger.Infof("discovery to %s exhausted %d hops without a reply", target, MaxRouteHops)
		results <- RouteResult{TargetAddress: target, Route: nil}
		return
	}

	results <- RouteResult{TargetAddress: target, Route: route}
}

// probeHop opens a fresh write socket bound to TTL = hop, per §4.3's
// rationale that a new socket per hop guarantees a clean TTL and avoids
// cross-contaminating later hops. It returns the address that answered (or
// the unspecified address on no match), and whether that answer was the
// target itself (EchoReply) rather than an intermediate router.
func (e *RouteEngine) probeHop(target net.IP, version IPVersion, hop int) (net.IP, bool, error) {
	socket, err := CreateWriteSocket(hop, version)
	if err != nil {
		return nil, false, err
	}
	defer socket.Close()

	id := randomID()
	base := randomID()

	for i := 0; i < TransmitRetries; i++ {
		sequence := base + uint16(i)
		buf := PingPacket(id, sequence, routeProbePayloadLength, target, version)

		if _, err := socket.SendTo(buf, &net.IPAddr{IP: target}); err != nil {
			e.logger.Tracef("hop %d: send failed: %s", hop, err)
			continue
		}

		if addr, complete, matched := e.awaitReply(socket, version, id, sequence); matched {
			return addr, complete, nil
		}
	}

	return unspecifiedAddress(version), false, nil
}

// awaitReply reads from socket until it sees a reply matching (id,
// sequence), or the remaining budget of initialRouteTimeout elapses.
func (e *RouteEngine) awaitReply(socket *ICMPSocket, version IPVersion, id, sequence uint16) (net.IP, bool, bool) {
	remaining := initialRouteTimeout
	buffer := make([]byte, 1500)

	for remaining > 0 {
		started := time.Now()

		n, addr, err := socket.RecvFrom(buffer, remaining)

		remaining -= time.Since(started)

		if err != nil {
			return nil, false, false
		}

		pkt := FromData(buffer[:n], version)
		if pkt.ResultCode == Invalid || pkt.ID != id || pkt.Sequence != sequence {
			continue
		}

		source := addrIP(addr)

		switch pkt.ResultCode {
		case EchoReply:
			return source, true, true
		case TimeExceeded:
			return source, false, true
		default:
			continue
		}
	}

	return nil, false, false
}

func unspecifiedAddress(version IPVersion) net.IP {
	if version == V4 {
		return net.IPv4zero
	}
	return net.IPv6zero
}
