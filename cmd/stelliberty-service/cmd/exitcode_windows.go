//go:build windows

package cmd

func windowsElevationCancelCode() (int, bool) {
	return 1223, true
}
