//go:build windows

package privsvc

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// windowsUserCancelledElevation is the ShellExecuteW return code for a
// user-declined UAC prompt (spec §4.C: "user-cancelled (code 1223)").
const windowsUserCancelledElevation = 1223

var (
	shell32           = syscall.NewLazyDLL("shell32.dll")
	procShellExecuteW = shell32.NewProc("ShellExecuteW")
)

const swHide = 0

// elevatedRun shells out via ShellExecuteW with verb "runas", the
// standard way a Windows process prompts for UAC elevation of a
// separate child rather than itself, and blocks are not available
// through this API — install/uninstall callers poll service state
// afterward rather than waiting on a process handle.
func elevatedRun(name string, args ...string) error {
	verb, err := syscall.UTF16PtrFromString("runas")
	if err != nil {
		return fmt.Errorf("encode verb: %w", err)
	}
	file, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return fmt.Errorf("encode executable path: %w", err)
	}
	params, err := syscall.UTF16PtrFromString(joinArgs(args))
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}

	ret, _, callErr := procShellExecuteW.Call(
		0,
		uintptr(unsafe.Pointer(verb)),
		uintptr(unsafe.Pointer(file)),
		uintptr(unsafe.Pointer(params)),
		0,
		swHide,
	)

	if ret <= 32 {
		if ret == windowsUserCancelledElevation {
			return &ctlerr.ElevationCancelledError{}
		}
		if callErr != nil && callErr != syscall.Errno(0) {
			return fmt.Errorf("ShellExecuteW: %w", callErr)
		}
		return fmt.Errorf("ShellExecuteW failed with code %d", ret)
	}
	return nil
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
	}
	return out
}
