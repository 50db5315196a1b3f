package ipc

// EndpointName returns the IPC endpoint's base name for the build mode:
// "stelliberty_dev" in dev mode, "stelliberty" in release (spec §6).
func EndpointName(devMode bool) string {
	if devMode {
		return "stelliberty_dev"
	}
	return "stelliberty"
}
