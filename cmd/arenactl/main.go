// Package main provides the arenactl binary, which controls dedicated game
// servers over the bridge websocket.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// newRootCmd creates the root command.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arenactl",
		Short: "Match control server for dedicated game servers",
		Long: `arenactl accepts websocket connections from dedicated game servers and
applies the match rules: map and gamemode rotation, player progression,
kill tracking, round auto start and chat commands.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHashTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
