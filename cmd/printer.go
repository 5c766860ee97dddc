package cmd

import (
	"fmt"
	"time"

	"github.com/nedrysoft/pathping/core"
)

func printOnResult(r core.PingResult) {
	switch r.Status {
	case core.Ok:
		kind := "reply"
		if !r.IsFinalReply {
			kind = "time exceeded"
		}
		fmt.Printf("%s from %s: sample=%d time=%s (%s)\n",
			r.Target.HostAddress(), r.ReplyAddress, r.SampleNumber, r.RoundTrip.Truncate(time.Microsecond), kind)
	case core.NoReply:
		fmt.Printf("%s: sample=%d timeout after %s\n",
			r.Target.HostAddress(), r.SampleNumber, r.RoundTrip.Truncate(time.Millisecond))
	}
}

func printSummary(host string, s *stats) {
	sent, received, loss, rttMin, rttAvg, rttMax, rttMDev := s.summary()

	fmt.Printf("\n--- %s pathping statistics ---\n", host)
	fmt.Printf("%d packets transmitted, %d received, %.1f%% packet loss\n",
		sent, received, loss*100)

	if received > 0 {
		fmt.Printf("rtt min/avg/max/mdev = %s/%s/%s/%s\n",
			rttMin.Truncate(time.Microsecond), rttAvg.Truncate(time.Microsecond),
			rttMax.Truncate(time.Microsecond), rttMDev.Truncate(time.Microsecond))
	}
}

func printRoute(result core.RouteResult) {
	if result.Route == nil {
		fmt.Printf("traceroute to %s: no route found within %d hops\n", result.TargetAddress, core.MaxRouteHops)
		return
	}

	fmt.Printf("traceroute to %s, %d hops\n", result.TargetAddress, len(result.Route))

	for i, hop := range result.Route {
		fmt.Printf("%2d  %s\n", i+1, hop)
	}
}
