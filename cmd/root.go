package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nedrysoft/pathping/core"
)

var verbose bool

// receiver is the process-wide ReceiverWorker, constructed explicitly here
// rather than lazily inside the core package, so its lifetime is tied to
// the process and shutdown stays deterministic, per §9's design note.
var receiver = core.NewReceiverWorker()

var rootCmd = &cobra.Command{
	Use:   "pathping",
	Short: "pathping analyses the IP-level route to a host and its per-hop latency",
	Long:  "pathping discovers the route to a host and continuously measures per-hop round-trip latency using ICMP.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
