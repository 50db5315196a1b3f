// Package runtimeparams implements the Runtime Injector (spec §4.G): the
// final stamping pass applied to a CanonicalConfig immediately before Core
// boot, after the Subscription Parser and Override Engine have produced
// their output document.
//
// The Injector only ever touches the specific top-level keys it owns
// (mixed-port, allow-lan, ipv6 bind, mode, tun, dns, external-controller,
// ...). Every other key — proxies, proxy-groups, rules, and anything an
// override rule added — passes through untouched, which is why the
// Injector takes a *canonconf.Document rather than rebuilding one.
package runtimeparams

import (
	"fmt"
	"runtime"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"gopkg.in/yaml.v3"
)

// IPCEndpointKey returns the platform- and build-mode-specific key the
// Core's own IPC listener binds to, mirroring the original's per-platform
// pipe/socket naming (dev builds use a distinct name so a developer can
// run a release Core and a dev Core side by side without collision).
func IPCEndpointKey(devMode bool) string {
	suffix := ""
	if devMode {
		suffix = "_dev"
	}
	if runtime.GOOS == "windows" {
		return fmt.Sprintf(`\\.\pipe\stelliberty%s`, suffix)
	}
	return fmt.Sprintf("/tmp/stelliberty%s.sock", suffix)
}

// Inject stamps params into doc, producing the final document the
// Supervisor hands to the Core on next boot. devMode selects the IPC
// endpoint naming; it does not otherwise change injected values.
func Inject(doc *canonconf.Document, params canonconf.RuntimeParameters, devMode bool) error {
	m, err := doc.Mapping()
	if err != nil {
		return fmt.Errorf("runtime injector: %w", err)
	}

	canonconf.MapSet(m, "mixed-port", canonconf.ScalarInt(params.MixedPort))
	canonconf.MapSet(m, "allow-lan", canonconf.ScalarBool(params.AllowLAN))
	canonconf.MapSet(m, "ipv6", canonconf.ScalarBool(params.IPv6))
	canonconf.MapSet(m, "mode", canonconf.ScalarString(params.Mode))
	canonconf.MapSet(m, "tcp-concurrent", canonconf.ScalarBool(params.TCPConcurrent))
	canonconf.MapSet(m, "unified-delay", canonconf.ScalarBool(params.UnifiedDelay))
	if params.FindProcessMode != "" {
		canonconf.MapSet(m, "find-process-mode", canonconf.ScalarString(params.FindProcessMode))
	}
	if params.GeodataLoader != "" {
		canonconf.MapSet(m, "geodata-loader", canonconf.ScalarString(params.GeodataLoader))
	}
	if params.LogLevel != "" {
		canonconf.MapSet(m, "log-level", canonconf.ScalarString(params.LogLevel))
	}

	if params.KeepAliveEnabled {
		canonconf.MapSet(m, "keep-alive-interval", canonconf.ScalarString(params.KeepAliveInterval))
	} else {
		canonconf.MapDelete(m, "keep-alive-interval")
	}

	injectTUN(m, params.TUN)
	injectExternalController(m, params)
	injectDNSOverride(m, params)

	// The control plane's own IPC endpoint is always present, independent
	// of any GUI override: it is how the GUI itself talks to this Core.
	canonconf.MapSet(m, "external-controller-pipe", canonconf.ScalarString(IPCEndpointKey(devMode)))

	return nil
}

// injectTUN fully rebuilds the `tun` block from params on every
// injection — unlike the other keys, TUN has enough interdependent
// sub-fields (stack, routes, hijacks) that a partial merge would leave
// stale values from a prior boot's different RuntimeParameters.
func injectTUN(m *yaml.Node, tun canonconf.TUNParameters) {
	block := canonconf.NewMapping()
	canonconf.MapSet(block, "enable", canonconf.ScalarBool(tun.Enabled))
	canonconf.MapSet(block, "stack", canonconf.ScalarString(tun.Stack))
	if tun.Device != "" {
		canonconf.MapSet(block, "device", canonconf.ScalarString(tun.Device))
	}
	canonconf.MapSet(block, "auto-route", canonconf.ScalarBool(tun.AutoRoute))
	canonconf.MapSet(block, "auto-redirect", canonconf.ScalarBool(tun.AutoRedirect))
	canonconf.MapSet(block, "auto-detect-interface", canonconf.ScalarBool(tun.AutoDetectInterface))
	canonconf.MapSet(block, "strict-route", canonconf.ScalarBool(tun.StrictRoute))
	if tun.MTU > 0 {
		canonconf.MapSet(block, "mtu", canonconf.ScalarInt(tun.MTU))
	}
	canonconf.MapSet(block, "disable-icmp-forwarding", canonconf.ScalarBool(tun.DisableICMPForwarding))
	if len(tun.DNSHijacks) > 0 {
		canonconf.MapSet(block, "dns-hijack", canonconf.SequenceOfStrings(tun.DNSHijacks))
	}
	if len(tun.RouteExcludeAddresses) > 0 {
		canonconf.MapSet(block, "route-exclude-address", canonconf.SequenceOfStrings(tun.RouteExcludeAddresses))
	}
	canonconf.MapSet(m, "tun", block)
}

// injectExternalController stamps the optional external HTTP API,
// alongside the always-present IPC endpoint. Address and Secret are only
// written when the GUI has opted into exposing the HTTP controller;
// leaving the block absent matches the Core's own default of no external
// listener.
func injectExternalController(m *yaml.Node, params canonconf.RuntimeParameters) {
	if params.ExternalControllerAddress == "" {
		canonconf.MapDelete(m, "external-controller")
		canonconf.MapDelete(m, "secret")
		return
	}
	canonconf.MapSet(m, "external-controller", canonconf.ScalarString(params.ExternalControllerAddress))
	canonconf.MapSet(m, "secret", canonconf.ScalarString(params.ExternalControllerSecret))
}

// injectDNSOverride writes the verbatim `dns` block only when enabled.
// Guard: if the document already carries a `dns` block whose
// `enhanced-mode` is set to something other than "fake-ip" (a subscription
// or override rule deliberately chose redir-host/normal DNS behaviour),
// the Injector leaves it alone rather than clobbering that choice — the
// override only applies when the document has no opinion yet, or already
// agrees on fake-ip.
func injectDNSOverride(m *yaml.Node, params canonconf.RuntimeParameters) {
	if !params.DNSOverrideEnabled || params.DNSOverrideContent == "" {
		return
	}
	if existing, ok := canonconf.MapGet(m, "dns"); ok {
		if mode, ok2 := canonconf.MapGet(existing, "enhanced-mode"); ok2 {
			if v := canonconf.StringValue(mode); v != "" && v != "fake-ip" {
				return
			}
		}
	}
	overrideDoc, err := canonconf.ParseDocument([]byte(params.DNSOverrideContent))
	if err != nil {
		return
	}
	overrideMapping, err := overrideDoc.Mapping()
	if err != nil {
		return
	}
	canonconf.MapSet(m, "dns", overrideMapping)
}
