package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the control plane is running",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidPath := pidFilePath()
	pid := readPIDFile(pidPath)
	if pid == 0 {
		fmt.Println("control plane: not running")
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil || !processIsAlive(proc) {
		os.Remove(pidPath)
		fmt.Println("control plane: not running (stale PID file removed)")
		return nil
	}

	fmt.Printf("control plane: running (PID %d)\n", pid)
	return nil
}
