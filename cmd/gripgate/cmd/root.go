// Package cmd provides the CLI commands for gripgate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grip-gate/gripgate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gripgate",
	Short: "gripgate - GRIP proxy mediation backend",
	Long: `gripgate is a backend server for GRIP-capable reverse proxies
(such as Pushpin), handling long-polling, HTTP streaming, and
WebSocket-over-HTTP connections from a stateless backend.

It validates that requests arrived via a trusted proxy, reconstructs
WebSocket-over-HTTP sessions, rewrites responses with proxy hold
instructions, and publishes messages to held connections.

Quick start:
  1. Create a config file: gripgate.yaml
  2. Run: gripgate start

Configuration:
  Config is loaded from gripgate.yaml in the current directory,
  $HOME/.gripgate/, or /etc/gripgate/.

  Environment variables can override config values with the GRIPGATE_ prefix.
  Example: GRIPGATE_GRIP_URL=http://localhost:5561

Commands:
  start       Start the server
  sign        Mint a Grip-Sig token for a configured key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gripgate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
