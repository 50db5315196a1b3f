package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the registered Service",
	RunE:  runServiceStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runServiceStart(cmd *cobra.Command, args []string) error {
	if err := elevateSelf("start"); err != nil {
		return err
	}

	in := privsvc.NewInstaller()
	if err := in.Start(); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Service started.")
	return nil
}
