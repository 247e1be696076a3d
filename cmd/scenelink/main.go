package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scenelink",
		Short: "Live scene synchronization receiver",
		Long: `scenelink receives live scene state from DCC applications.

A producer connects over WebSocket, streams fenced scene updates,
and issues requests (fetch, query, screenshot, poll) that the
server answers asynchronously. The applied scene is held in memory
and exposed through queries; metrics are served over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
