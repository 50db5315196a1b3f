package privsvc

// ElevatedRun runs name with args under the platform's elevation
// mechanism (spec §4.C "Privilege elevation at install/uninstall time").
// On Linux and macOS it blocks until the elevated process exits; on
// Windows it returns once ShellExecuteW has launched it. Implemented per
// platform in elevate_windows.go / elevate_linux.go / elevate_darwin.go.
//
// Returns ctlerr.ElevationCancelledError when the user declines the
// prompt (Windows 1223, Linux pkexec 126), ctlerr.PlatformUnsupportedError
// when pkexec reports a missing helper (127), and a plain error carrying
// the platform's failure otherwise.
func ElevatedRun(name string, args ...string) error {
	return elevatedRun(name, args...)
}
