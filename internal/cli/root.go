// Package cli implements the fool command tree.
package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/dodomondo0/fool-p2p-app/internal/ui"
	"github.com/dodomondo0/fool-p2p-app/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "fool",
	Short:   "Peer-to-peer card game lobby over WebRTC",
	Long: `Fool is a command-line lobby for playing card games directly between
devices using WebRTC technology. One player hosts a room on the rendezvous
server; everyone else joins it, and all game traffic then flows peer to peer
without an intermediary.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
