package cmd

import (
	"fmt"
	"os"

	"github.com/stelliberty/stelliberty/internal/privsvc"
)

// elevateSelf re-execs the running binary under platform elevation with
// subcommand (and --dev if set) when the current process is not already
// elevated, then exits — the elevated child runs this same code path,
// finds itself already elevated, and performs the real work (spec §4.C
// "Privilege elevation at install/uninstall time"; §6: "Commands other
// than logs and version require elevation").
func elevateSelf(subcommand string) error {
	if isElevated() {
		return nil
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve own executable path: %w", err)
	}

	args := []string{subcommand}
	if devMode {
		args = append(args, "--dev")
	}
	if err := privsvc.ElevatedRun(self, args...); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
