package cmd

import (
	"net"
	"testing"
	"time"

	"github.com/nedrysoft/pathping/core"
)

func TestPrintRouteNoRoute(t *testing.T) {
	// exercised only for side effects (no panics on a nil Route); the
	// formatted text itself isn't asserted since it goes to stdout.
	printRoute(core.RouteResult{TargetAddress: net.ParseIP("203.0.113.1"), Route: nil})
}

func TestPrintOnResultDoesNotPanicForOkAndNoReply(t *testing.T) {
	engine := core.NewPingEngine(core.V4, core.NewReceiverWorker())
	target, err := engine.AddTarget("127.0.0.1", 0)
	if err != nil {
		t.Skipf("raw ICMP socket unavailable in this environment: %s", err)
	}

	printOnResult(core.PingResult{
		Status:       core.Ok,
		ReplyAddress: net.ParseIP("127.0.0.1"),
		RoundTrip:    time.Millisecond,
		IsFinalReply: true,
		Target:       target,
	})

	printOnResult(core.PingResult{
		Status:    core.NoReply,
		RoundTrip: 3 * time.Second,
		Target:    target,
	})
}
