package osintegration

// SetAutoStart enables or disables launching the control plane at login
// (spec §4.I "Auto-start"). Windows writes a Scheduled Task XML and
// registers it with `schtasks.exe /create` run directly by the current
// process, with no elevation prompt; macOS/Linux use
// the per-user LaunchAgent / `.desktop` convention instead, neither of
// which needs elevation since both live under the user's own profile.
func SetAutoStart(enabled bool, executablePath string) error {
	return setAutoStart(enabled, executablePath)
}

// GetAutoStartStatus reports whether auto-start is currently registered.
func GetAutoStartStatus() (bool, error) {
	return getAutoStartStatus()
}
