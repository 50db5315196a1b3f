package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the registered Service",
	RunE:  runServiceStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runServiceStop(cmd *cobra.Command, args []string) error {
	if err := elevateSelf("stop"); err != nil {
		return err
	}

	in := privsvc.NewInstaller()
	if err := in.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Service stopped.")
	return nil
}
