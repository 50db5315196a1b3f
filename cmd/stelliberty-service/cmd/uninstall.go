package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Stop, unregister, and remove the installed Service",
	RunE:  runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	if err := elevateSelf("uninstall"); err != nil {
		return err
	}

	in := privsvc.NewInstaller()
	if err := in.Uninstall(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Service uninstalled.")
	return nil
}
