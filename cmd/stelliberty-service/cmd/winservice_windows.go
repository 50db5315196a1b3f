//go:build windows

package cmd

import "github.com/stelliberty/stelliberty/internal/privsvc"

func isWindowsService() (bool, error) {
	return privsvc.RunAsWindowsService()
}
