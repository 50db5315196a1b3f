//go:build !windows

package cmd

func windowsElevationCancelCode() (int, bool) {
	return 0, false
}
