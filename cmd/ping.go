package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nedrysoft/pathping/core"
)

var (
	pingInterval time.Duration
	pingTimeout  time.Duration
	pingTTL      int
	pingCount    int
	pingIPv6     bool
	pingConfig   string
)

var pingCmd = &cobra.Command{
	Use:   "ping [host]",
	Short: "continuously measure round-trip latency to a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runPing,
}

func init() {
	pingCmd.Flags().DurationVar(&pingInterval, "interval", core.DefaultInterval, "interval between probes")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", core.DefaultTimeout, "time to wait for a reply before declaring a probe lost")
	pingCmd.Flags().IntVar(&pingTTL, "ttl", 0, "TTL/hop limit, 0 for the default (64)")
	pingCmd.Flags().IntVar(&pingCount, "count", 0, "stop after this many samples, 0 to run until interrupted")
	pingCmd.Flags().BoolVar(&pingIPv6, "6", false, "use ICMPv6 instead of ICMPv4")
	pingCmd.Flags().StringVar(&pingConfig, "config", "", "path to a persisted configuration to load on start and save on exit")

	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	host := args[0]

	version := core.V4
	if pingIPv6 {
		version = core.V6
	}

	receiver.Start()
	defer receiver.Stop()

	factory := core.NewPingEngineFactory(receiver)
	engine := factory.Create(version)

	if pingConfig != "" {
		if data, err := os.ReadFile(pingConfig); err == nil {
			if err := engine.LoadConfig(data); err != nil {
				return fmt.Errorf("could not load configuration from %s: %w", pingConfig, err)
			}
		}
	}

	engine.SetInterval(pingInterval)
	engine.SetTimeout(pingTimeout)

	target, err := engine.AddTarget(host, pingTTL)
	if err != nil {
		return err
	}

	fmt.Printf("PATHPING %s (%s)\n", host, target.HostAddress())

	var seen int64
	doneCh := make(chan struct{}, 1)
	runStats := newStats()

	engine.OnResult(func(r core.PingResult) {
		printOnResult(r)
		runStats.recordResult(r)

		if pingCount > 0 && atomic.AddInt64(&seen, 1) >= int64(pingCount) {
			select {
			case doneCh <- struct{}{}:
			default:
			}
		}
	})

	engine.Start()
	defer func() {
		if pingConfig != "" {
			if data, err := engine.SaveConfig(); err == nil {
				_ = os.WriteFile(pingConfig, data, 0o644)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
	case <-doneCh:
	}

	engine.Stop()

	printSummary(host, runStats)

	return nil
}
