// Package osintegration implements the OS Integration Adapters (spec
// §4.I): small per-platform components with pre/post-conditions only —
// system proxy configuration, Windows loopback exemption, auto-start
// registration, and network interface discovery.
package osintegration

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// NetworkInterfaces is the result of GetNetworkInterfaces: the union of
// a fixed local-address set with the host's non-loopback, non-APIPA
// addresses (spec §4.I, grounded on the original's
// `atoms/network_interfaces/detector.rs`).
type NetworkInterfaces struct {
	Addresses []string
	Hostname  string
}

// GetNetworkInterfaces returns the addresses a GUI would offer as
// candidate listen addresses: 127.0.0.1, localhost, optionally
// "<hostname>.local", and every non-loopback non-APIPA IPv4 address
// found on the host together with any IPv6 address on the same
// interface, zone indices stripped.
func GetNetworkInterfaces() NetworkInterfaces {
	addresses := []string{"127.0.0.1", "localhost"}

	hostname := getHostname()
	if hostname != "" && hostname != "localhost" && hostname != "127.0.0.1" {
		addresses = append(addresses, hostname+".local")
	}

	addresses = append(addresses, collectInterfaceAddresses()...)

	for i, a := range addresses {
		if idx := strings.IndexByte(a, '%'); idx >= 0 {
			addresses[i] = a[:idx]
		}
	}
	addresses = dedupSorted(addresses)

	return NetworkInterfaces{Addresses: addresses, Hostname: hostname}
}

func getHostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	out, err := exec.Command("hostname").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// isAPIPA reports whether ip is a 169.254.0.0/16 link-local address,
// which Windows assigns when DHCP fails and which no adapter exposes
// intentionally.
func isAPIPA(ip net.IP) bool {
	v4 := ip.To4()
	return v4 != nil && v4[0] == 169 && v4[1] == 254
}

func collectInterfaceAddresses() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var out []string
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		hasValidIPv4 := false
		for _, a := range addrs {
			ip := ipFromAddr(a)
			if ip == nil || ip.To4() == nil {
				continue
			}
			if !ip.IsLoopback() && !isAPIPA(ip) {
				hasValidIPv4 = true
			}
		}

		for _, a := range addrs {
			ip := ipFromAddr(a)
			if ip == nil {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				if !ip.IsLoopback() && !isAPIPA(ip) {
					out = append(out, ip.String())
				}
				continue
			}
			// IPv6: only included alongside a companion valid IPv4 on the
			// same interface, matching the original's `has_valid_ipv4`
			// gate.
			if !ip.IsLoopback() && hasValidIPv4 {
				out = append(out, fmt.Sprintf("%s%%%s", ip.String(), iface.Name))
			}
		}
	}
	return out
}

func ipFromAddr(a net.Addr) net.IP {
	switch v := a.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		return nil
	}
}

func dedupSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	var last string
	seen := false
	for _, v := range in {
		if seen && v == last {
			continue
		}
		out = append(out, v)
		last = v
		seen = true
	}
	return out
}
