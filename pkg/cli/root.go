package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wampd",
	Short: "wampd is a WAMP v2 router",
	Long: `wampd routes pub/sub events and RPC calls between WebSocket peers
speaking the WAMP v2 wire protocol (JSON or MessagePack framing).

Realms and the listen address are configured via a YAML file; see
wampd serve --help.`,
	// No Run function here means 'wampd' with no args will print help text.
	SilenceUsage:  true,
	SilenceErrors: true, // errors handled in Execute()
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
