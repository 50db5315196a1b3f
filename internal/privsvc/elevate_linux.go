//go:build linux

package privsvc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// linuxPkexecUserCancel and linuxPkexecMissing are pkexec's own exit
// codes (spec §4.C: "distinguish user-cancel (exit 126) and missing
// helper (127)").
const (
	linuxPkexecUserCancel = 126
	linuxPkexecMissing    = 127
)

func elevatedRun(name string, args ...string) error {
	if os.Geteuid() == 0 {
		cmd := exec.Command(name, args...)
		return cmd.Run()
	}

	pkexecArgs := append([]string{name}, args...)
	cmd := exec.Command("pkexec", pkexecArgs...)
	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case linuxPkexecUserCancel:
			return &ctlerr.ElevationCancelledError{}
		case linuxPkexecMissing:
			return &ctlerr.PlatformUnsupportedError{Capability: "pkexec"}
		}
	}
	return fmt.Errorf("pkexec %s: %w", name, err)
}
