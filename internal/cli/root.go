package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/meshcall/meshcall/internal/ui"
	"github.com/meshcall/meshcall/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "meshcall",
	Short:   "Group chat and file sharing over WebRTC data channels",
	Long: `MeshCall connects every participant of a room directly to every other
participant over WebRTC. Chat messages and files travel peer to peer on data
channels; the server only relays the signaling needed to set the mesh up.`,
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
