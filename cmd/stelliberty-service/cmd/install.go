package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install and register the Service with the OS service manager",
	Long: `Install copies the running binary into the per-user private service
directory (spec §6 File system) and registers it with the platform's
service manager (SCM / systemd / launchd), requesting elevation first.`,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable path: %w", err)
	}

	if err := elevateSelf("install"); err != nil {
		return err
	}

	in := privsvc.NewInstaller()
	if err := in.Install(self); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Service installed.")
	return nil
}
