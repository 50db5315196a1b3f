//go:build windows

package osintegration

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const internetSettingsKeyPath = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

// readProxyRegistryValues reads back the values InternetSetOptionW's
// PER_CONNECTION_OPTION call persists under HKCU, since WinINet itself
// exposes no query-side counterpart to the set call.
func readProxyRegistryValues() (enabled bool, server string, err error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false, "", fmt.Errorf("open Internet Settings key: %w", err)
	}
	defer key.Close()

	enableVal, _, err := key.GetIntegerValue("ProxyEnable")
	if err != nil {
		return false, "", nil
	}
	server, _, _ = key.GetStringValue("ProxyServer")
	return enableVal != 0, server, nil
}
