package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   printVersion,
}

func printVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("stelliberty-service %s\n", Version)
	fmt.Printf("  Commit:     %s\n", Commit)
	fmt.Printf("  Built:      %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	// "-v"/"--version" alias (spec §6 CLI surface) via cobra's built-in
	// version flag, which (unlike Aliases) is reachable as a dash-prefixed
	// token.
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}
