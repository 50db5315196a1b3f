package osintegration

// SystemProxyConfig is the request shape for EnableSystemProxy (spec
// §4.I, grounded on the original's `atoms/system_proxy/manager.rs`
// `EnableSystemProxy` struct).
type SystemProxyConfig struct {
	Host           string
	Port           uint16
	BypassDomains  []string
	UsePACMode     bool
	PACScript      string
	PACFilePath    string
}

// SystemProxyStatus is the result of QuerySystemProxy.
type SystemProxyStatus struct {
	Enabled bool
	Server  string
}

// EnableSystemProxy turns on the OS-level system proxy per cfg. Windows
// writes per-connection WinINet options for the default LAN connection
// only; RAS/dial-up entries are not enumerated or updated. macOS
// uses `networksetup` across all network services; Linux branches on
// XDG_CURRENT_DESKTOP (gsettings for GNOME, kwriteconfig5 for KDE).
// Implemented per platform in systemproxy_{windows,darwin,linux}.go.
func EnableSystemProxy(cfg SystemProxyConfig) error {
	return enableSystemProxy(cfg)
}

// DisableSystemProxy turns the system proxy back off, restoring the
// prior disabled state.
func DisableSystemProxy() error {
	return disableSystemProxy()
}

// QuerySystemProxy reports the current system-level proxy configuration.
func QuerySystemProxy() (SystemProxyStatus, error) {
	return querySystemProxy()
}
