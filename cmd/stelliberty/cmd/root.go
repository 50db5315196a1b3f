// Package cmd provides the CLI commands for the Stelliberty control plane.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/config"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildDate = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stelliberty",
	Short: "Stelliberty - proxy Core lifecycle control plane",
	Long: `Stelliberty is the unprivileged control plane for a Core proxy process:
it parses a subscription into a CanonicalConfig, applies override rules and
runtime parameters, validates the result, and supervises the Core (spec §4).

Quick start:
  1. Create a config file: stelliberty.yaml
  2. Run: stelliberty start

Configuration:
  Config is loaded from stelliberty.yaml in the current directory,
  $HOME/.stelliberty/, or /etc/stelliberty/ (%ProgramData%\stelliberty on
  Windows).

  Environment variables can override config values with the STELLIBERTY_
  prefix. Example: STELLIBERTY_CORE_EXECUTABLE_PATH=/opt/core/bin

Commands:
  start       Boot the Core and apply the configured subscription
  stop        Stop the running control plane
  status      Report whether the control plane is running
  core-logs   Stream the running Core's logs over its IPC endpoint
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stelliberty.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
