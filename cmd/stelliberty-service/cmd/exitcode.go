package cmd

import (
	"errors"
	"os/exec"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// exitCodeFor maps err onto the process exit code spec §6 names for the
// Service binary.
func exitCodeFor(err error) int {
	var elevationCancelled *ctlerr.ElevationCancelledError
	if errors.As(err, &elevationCancelled) {
		if windowsExitCode, ok := windowsElevationCancelCode(); ok {
			return windowsExitCode
		}
		return 126
	}

	var platformUnsupported *ctlerr.PlatformUnsupportedError
	if errors.As(err, &platformUnsupported) {
		return 127
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return 1
}
