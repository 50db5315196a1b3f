//go:build linux

package osintegration

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// desktopEnvironment classifies XDG_CURRENT_DESKTOP into the two
// adapters spec §4.I names explicitly; anything else is unsupported
// rather than guessed at.
type desktopEnvironment int

const (
	desktopUnknown desktopEnvironment = iota
	desktopGNOME
	desktopKDE
)

func currentDesktop() desktopEnvironment {
	v := strings.ToUpper(os.Getenv("XDG_CURRENT_DESKTOP"))
	switch {
	case strings.Contains(v, "GNOME"):
		return desktopGNOME
	case strings.Contains(v, "KDE"):
		return desktopKDE
	default:
		return desktopUnknown
	}
}

func enableSystemProxy(cfg SystemProxyConfig) error {
	switch currentDesktop() {
	case desktopGNOME:
		return enableGNOMEProxy(cfg)
	case desktopKDE:
		return enableKDEProxy(cfg)
	default:
		return &ctlerr.PlatformUnsupportedError{Capability: "system proxy on " + os.Getenv("XDG_CURRENT_DESKTOP")}
	}
}

func disableSystemProxy() error {
	switch currentDesktop() {
	case desktopGNOME:
		return runGsettings("set", "org.gnome.system.proxy", "mode", "none")
	case desktopKDE:
		return runKWriteConfig("ProxyType", "0")
	default:
		return &ctlerr.PlatformUnsupportedError{Capability: "system proxy on " + os.Getenv("XDG_CURRENT_DESKTOP")}
	}
}

func querySystemProxy() (SystemProxyStatus, error) {
	switch currentDesktop() {
	case desktopGNOME:
		mode, err := exec.Command("gsettings", "get", "org.gnome.system.proxy", "mode").Output()
		if err != nil {
			return SystemProxyStatus{}, fmt.Errorf("gsettings get mode: %w", err)
		}
		enabled := strings.Contains(string(mode), "manual")
		if !enabled {
			return SystemProxyStatus{Enabled: false}, nil
		}
		host, _ := exec.Command("gsettings", "get", "org.gnome.system.proxy.http", "host").Output()
		port, _ := exec.Command("gsettings", "get", "org.gnome.system.proxy.http", "port").Output()
		server := strings.Trim(strings.TrimSpace(string(host)), "'") + ":" + strings.TrimSpace(string(port))
		return SystemProxyStatus{Enabled: true, Server: server}, nil
	case desktopKDE:
		out, err := exec.Command("kreadconfig5", "--file", "kioslaverc", "--group", "Proxy Settings", "--key", "ProxyType").Output()
		if err != nil {
			return SystemProxyStatus{}, fmt.Errorf("kreadconfig5 ProxyType: %w", err)
		}
		if strings.TrimSpace(string(out)) != "1" {
			return SystemProxyStatus{Enabled: false}, nil
		}
		server, _ := exec.Command("kreadconfig5", "--file", "kioslaverc", "--group", "Proxy Settings", "--key", "httpProxy").Output()
		return SystemProxyStatus{Enabled: true, Server: strings.TrimSpace(string(server))}, nil
	default:
		return SystemProxyStatus{}, &ctlerr.PlatformUnsupportedError{Capability: "system proxy on " + os.Getenv("XDG_CURRENT_DESKTOP")}
	}
}

func enableGNOMEProxy(cfg SystemProxyConfig) error {
	if cfg.UsePACMode {
		if err := runGsettings("set", "org.gnome.system.proxy", "mode", "auto"); err != nil {
			return err
		}
		return runGsettings("set", "org.gnome.system.proxy", "autoconfig-url", cfg.PACScript)
	}
	if err := runGsettings("set", "org.gnome.system.proxy", "mode", "manual"); err != nil {
		return err
	}
	for _, scheme := range []string{"http", "https", "ftp", "socks"} {
		if err := runGsettings("set", "org.gnome.system.proxy."+scheme, "host", cfg.Host); err != nil {
			return err
		}
		if err := runGsettings("set", "org.gnome.system.proxy."+scheme, "port", strconv.Itoa(int(cfg.Port))); err != nil {
			return err
		}
	}
	return runGsettings("set", "org.gnome.system.proxy", "ignore-hosts", gnomeStringList(cfg.BypassDomains))
}

func enableKDEProxy(cfg SystemProxyConfig) error {
	if cfg.UsePACMode {
		if err := runKWriteConfig("ProxyType", "2"); err != nil {
			return err
		}
		return runKWriteConfig("Proxy Config Script", cfg.PACScript)
	}
	server := fmt.Sprintf("http://%s %d", cfg.Host, cfg.Port)
	if err := runKWriteConfig("ProxyType", "1"); err != nil {
		return err
	}
	if err := runKWriteConfig("httpProxy", server); err != nil {
		return err
	}
	if err := runKWriteConfig("httpsProxy", server); err != nil {
		return err
	}
	return runKWriteConfig("NoProxyFor", strings.Join(cfg.BypassDomains, ","))
}

func runGsettings(args ...string) error {
	if err := exec.Command("gsettings", args...).Run(); err != nil {
		return fmt.Errorf("gsettings %v: %w", args, err)
	}
	return nil
}

func runKWriteConfig(key, value string) error {
	cmd := exec.Command("kwriteconfig5", "--file", "kioslaverc", "--group", "Proxy Settings", "--key", key, value)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("kwriteconfig5 %s: %w", key, err)
	}
	return nil
}

func gnomeStringList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "'" + it + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
