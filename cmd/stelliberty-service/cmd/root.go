// Package cmd provides the CLI commands for the privileged Stelliberty
// Service binary.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildDate = "unknown"
)

var devMode bool

var rootCmd = &cobra.Command{
	Use:   "stelliberty-service",
	Short: "Stelliberty privileged Service",
	Long: `stelliberty-service is the privileged component of the Stelliberty
control plane: it owns the one OS capability an unprivileged control
plane cannot (TUN creation, low ports, loopback exemption) and exposes
lifecycle control of the Core to the control plane over a local IPC
endpoint.

Commands:
  install     Install and register the Service with the OS service manager
  uninstall   Stop, unregister, and remove the installed Service
  start       Start the registered Service
  stop        Stop the registered Service
  logs        Print recent log lines and stream new ones
  version     Print version information

Invoked with no subcommand, stelliberty-service runs as the daemon
itself — this is the form the OS service manager execs.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use the dev-mode IPC endpoint name")
}

// Execute runs the root command, mapping the resulting error onto the
// exit codes spec §6 names (0 success; 1 generic failure; 1223 Windows
// elevation cancel; 126/127 Linux pkexec cancel/missing).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	daemon := privsvc.NewDaemon(Version, logger)

	if running, err := isWindowsService(); err == nil && running {
		return privsvc.ServeWindowsService(daemon, devMode)
	}

	logger.Info("stelliberty-service starting", "version", Version, "dev_mode", devMode)
	return daemon.Serve(context.Background(), devMode)
}
