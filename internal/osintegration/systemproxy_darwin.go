//go:build darwin

package osintegration

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// networksetup operates per network service (Wi-Fi, Ethernet, ...);
// spec §4.I: "macOS uses `networksetup` across all services."
func listNetworkServices() ([]string, error) {
	out, err := exec.Command("networksetup", "-listallnetworkservices").Output()
	if err != nil {
		return nil, fmt.Errorf("networksetup -listallnetworkservices: %w", err)
	}
	var services []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "An asterisk") {
			continue
		}
		services = append(services, line)
	}
	return services, nil
}

func enableSystemProxy(cfg SystemProxyConfig) error {
	services, err := listNetworkServices()
	if err != nil {
		return err
	}
	for _, svc := range services {
		if cfg.UsePACMode {
			if err := networksetup("-setautoproxyurl", svc, cfg.PACScript); err != nil {
				return err
			}
			if err := networksetup("-setautoproxystate", svc, "on"); err != nil {
				return err
			}
			continue
		}
		port := strconv.Itoa(int(cfg.Port))
		if err := networksetup("-setwebproxy", svc, cfg.Host, port); err != nil {
			return err
		}
		if err := networksetup("-setsecurewebproxy", svc, cfg.Host, port); err != nil {
			return err
		}
		if err := networksetup("-setproxybypassdomains", svc, cfg.BypassDomains...); err != nil {
			return err
		}
		if err := networksetup("-setwebproxystate", svc, "on"); err != nil {
			return err
		}
		if err := networksetup("-setsecurewebproxystate", svc, "on"); err != nil {
			return err
		}
	}
	return nil
}

func disableSystemProxy() error {
	services, err := listNetworkServices()
	if err != nil {
		return err
	}
	for _, svc := range services {
		_ = networksetup("-setautoproxystate", svc, "off")
		_ = networksetup("-setwebproxystate", svc, "off")
		_ = networksetup("-setsecurewebproxystate", svc, "off")
	}
	return nil
}

func querySystemProxy() (SystemProxyStatus, error) {
	services, err := listNetworkServices()
	if err != nil || len(services) == 0 {
		return SystemProxyStatus{}, err
	}
	out, err := exec.Command("networksetup", "-getwebproxy", services[0]).Output()
	if err != nil {
		return SystemProxyStatus{}, fmt.Errorf("networksetup -getwebproxy: %w", err)
	}

	status := SystemProxyStatus{}
	var host, port string
	for _, line := range strings.Split(string(out), "\n") {
		switch {
		case strings.HasPrefix(line, "Enabled:"):
			status.Enabled = strings.TrimSpace(strings.TrimPrefix(line, "Enabled:")) == "Yes"
		case strings.HasPrefix(line, "Server:"):
			host = strings.TrimSpace(strings.TrimPrefix(line, "Server:"))
		case strings.HasPrefix(line, "Port:"):
			port = strings.TrimSpace(strings.TrimPrefix(line, "Port:"))
		}
	}
	if host != "" {
		status.Server = host + ":" + port
	}
	return status, nil
}

func networksetup(args ...string) error {
	if err := exec.Command("networksetup", args...).Run(); err != nil {
		return fmt.Errorf("networksetup %v: %w", args, err)
	}
	return nil
}
