//go:build windows

package cmd

import "golang.org/x/sys/windows"

func isElevated() bool {
	token := windows.GetCurrentProcessToken()
	return token.IsElevated()
}
