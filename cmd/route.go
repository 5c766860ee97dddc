package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nedrysoft/pathping/core"
)

var routeIPv6 bool

var routeCmd = &cobra.Command{
	Use:   "route [host]",
	Short: "discover the IP-level route to a host",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeIPv6, "6", false, "use ICMPv6 instead of ICMPv4")

	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	host := args[0]

	version := core.V4
	if routeIPv6 {
		version = core.V6
	}

	engine := core.NewRouteEngine()

	results, err := engine.Discover(host, version)
	if err != nil {
		return err
	}

	for result := range results {
		printRoute(result)
	}

	return nil
}
