package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/ui"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "shufflesync",
	Short:   "Join Shuffle & Sync game rooms from the terminal",
	Long: `Shuffle & Sync brings trading-card-game tables online: game rooms with
text chat, dice rolling, a session timer, and peer-to-peer video between
players. This CLI joins a game room from the terminal and can run a local
signaling relay for development and LAN play.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
