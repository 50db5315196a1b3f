//go:build darwin

package privsvc

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// elevatedRun wraps the command in an AppleScript `do shell script ...
// with administrator privileges`, osascript's own prompt-for-password
// mechanism (spec §4.C: 'macOS: "osascript" "with administrator
// privileges" wrapper').
func elevatedRun(name string, args ...string) error {
	script := fmt.Sprintf("do shell script %s with administrator privileges", quoteAppleScript(shellJoin(name, args)))
	cmd := exec.Command("osascript", "-e", script)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// osascript reports a user-declined password prompt as "User
		// canceled." on stderr; exec.ExitError's exit code alone can't
		// distinguish that from any other script failure.
		if strings.Contains(stderr.String(), "User canceled") {
			return &ctlerr.ElevationCancelledError{}
		}
	}
	return fmt.Errorf("osascript elevation: %w", err)
}

func shellJoin(name string, args []string) string {
	out := name
	for _, a := range args {
		out += " " + a
	}
	return out
}

func quoteAppleScript(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
