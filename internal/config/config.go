// Package config provides configuration types for the Stelliberty control
// plane.
//
// The control plane owns exactly one Core process at a time and synthesises
// its configuration document at startup; this package only describes the
// control plane's own bootstrap configuration (how to find/launch the Core,
// default RuntimeParameters, where override rules live, heartbeat cadence).
// It intentionally excludes anything the GUI owns at runtime:
//
//   - NO persisted subscription bodies (the GUI manages those; this file
//     only points at a source path for headless/dev operation)
//   - NO policy semantics for the Core's own proxy decisions
//   - NO backup serialisation
//   - NO auto-start registration state (that is OS adapter state, not config)
package config

import (
	"os"
)

// StellibertyConfig is the top-level configuration for the Stelliberty
// control plane binary (cmd/stelliberty).
type StellibertyConfig struct {
	// Core configures how the Core binary is located and launched.
	Core CoreConfig `yaml:"core" mapstructure:"core"`

	// Runtime holds the default RuntimeParameters stamped by the Injector
	// when the GUI has not supplied an override for a given field.
	Runtime RuntimeDefaults `yaml:"runtime" mapstructure:"runtime"`

	// Heartbeat configures the cadence of the controller->Service liveness
	// protocol (4.D). Only meaningful when Core.Mode is "service".
	Heartbeat HeartbeatConfig `yaml:"heartbeat" mapstructure:"heartbeat"`

	// Subscription configures where the control plane reads a subscription
	// body from when running headless (no GUI attached). Downloading
	// subscription bodies over HTTPS is out of scope; Source is always a
	// local file path.
	Subscription SubscriptionConfig `yaml:"subscription" mapstructure:"subscription"`

	// Override lists the OverrideRules applied, in order, before the
	// Runtime Injector runs.
	Override OverrideConfig `yaml:"override" mapstructure:"override"`

	// Service configures the privileged Service binary location and
	// installation behaviour.
	Service ServiceConfig `yaml:"service" mapstructure:"service"`

	// LogLevel sets the minimum log level.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// DevMode selects the debug build-mode IPC endpoint names
	// (stelliberty_dev) and enables verbose logging.
	DevMode bool `yaml:"dev_mode" mapstructure:"dev_mode"`
}

// CoreConfig configures the Core binary the Supervisor launches.
type CoreConfig struct {
	// ExecutablePath is the path to the Core binary to spawn.
	ExecutablePath string `yaml:"executable_path" mapstructure:"executable_path" validate:"required"`

	// Args are additional arguments passed to the Core on launch.
	Args []string `yaml:"args" mapstructure:"args"`

	// DataDir is the directory the Core uses for its own working state.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// Mode selects whether the Supervisor owns the Core as a direct child
	// ("direct") or forwards lifecycle operations to the privileged
	// Service over IPC ("service").
	Mode string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=direct service"`
}

// KeepAliveConfig configures the Core's mixed-port keep-alive behaviour.
type KeepAliveConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Interval string `yaml:"interval" mapstructure:"interval" validate:"omitempty,duration"`
}

// TUNDefaults configures the default TUN block the Injector stamps when the
// GUI has not supplied its own RuntimeParameters.TUN.
type TUNDefaults struct {
	Enabled               bool     `yaml:"enabled" mapstructure:"enabled"`
	Stack                 string   `yaml:"stack" mapstructure:"stack" validate:"omitempty,oneof=system gvisor mixed"`
	Device                string   `yaml:"device" mapstructure:"device"`
	AutoRoute             bool     `yaml:"auto_route" mapstructure:"auto_route"`
	AutoRedirect          bool     `yaml:"auto_redirect" mapstructure:"auto_redirect"`
	AutoDetectInterface   bool     `yaml:"auto_detect_interface" mapstructure:"auto_detect_interface"`
	DNSHijacks            []string `yaml:"dns_hijacks" mapstructure:"dns_hijacks"`
	StrictRoute           bool     `yaml:"strict_route" mapstructure:"strict_route"`
	RouteExcludeAddresses []string `yaml:"route_exclude_addresses" mapstructure:"route_exclude_addresses"`
	MTU                   int      `yaml:"mtu" mapstructure:"mtu" validate:"omitempty,min=576,max=65535"`
	DisableICMPForwarding bool     `yaml:"disable_icmp_forwarding" mapstructure:"disable_icmp_forwarding"`
}

// DNSOverrideDefaults configures the default DNS override RuntimeParameters
// field (4.G: verbatim `dns`/`hosts` blocks when present).
type DNSOverrideDefaults struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Content string `yaml:"content" mapstructure:"content"`
}

// ExternalControllerDefaults configures the optional HTTP API the Injector
// stamps alongside the always-present IPC endpoint.
type ExternalControllerDefaults struct {
	Address string `yaml:"address" mapstructure:"address"`
	Secret  string `yaml:"secret" mapstructure:"secret"`
}

// RuntimeDefaults mirrors the RuntimeParameters entity (spec §3) and
// supplies the values the Injector (4.G) stamps when the GUI has not sent
// its own overrides for a given boot.
type RuntimeDefaults struct {
	MixedPort         int    `yaml:"mixed_port" mapstructure:"mixed_port" validate:"omitempty,min=1,max=65535"`
	AllowLAN          bool   `yaml:"allow_lan" mapstructure:"allow_lan"`
	IPv6              bool   `yaml:"ipv6" mapstructure:"ipv6"`
	Mode              string `yaml:"mode" mapstructure:"mode" validate:"omitempty,oneof=rule global direct"`
	TCPConcurrent     bool   `yaml:"tcp_concurrent" mapstructure:"tcp_concurrent"`
	UnifiedDelay      bool   `yaml:"unified_delay" mapstructure:"unified_delay"`
	FindProcessMode   string `yaml:"find_process_mode" mapstructure:"find_process_mode"`
	GeodataLoader     string `yaml:"geodata_loader" mapstructure:"geodata_loader"`
	LogLevel          string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error silent"`

	KeepAlive          KeepAliveConfig            `yaml:"keep_alive" mapstructure:"keep_alive"`
	TUN                TUNDefaults                `yaml:"tun" mapstructure:"tun"`
	DNSOverride        DNSOverrideDefaults         `yaml:"dns_override" mapstructure:"dns_override"`
	ExternalController ExternalControllerDefaults `yaml:"external_controller" mapstructure:"external_controller"`
}

// HeartbeatConfig configures the controller->Service liveness protocol.
type HeartbeatConfig struct {
	// Interval is the cadence C at which the controller sends Heartbeat
	// (e.g. "30s"). Defaults to "30s".
	Interval string `yaml:"interval" mapstructure:"interval" validate:"omitempty,duration"`
}

// SubscriptionConfig configures headless subscription loading.
type SubscriptionConfig struct {
	// SourcePath is a local file containing the subscription body (raw,
	// Base64, or a full YAML document). Empty means the GUI supplies the
	// subscription at runtime instead.
	SourcePath string `yaml:"source_path" mapstructure:"source_path"`

	// AutoProbe is loaded from configuration only; no code in this
	// repository reads it, and nothing starts a subscription.Prober.
	AutoProbe bool `yaml:"auto_probe" mapstructure:"auto_probe"`

	// ProbeInterval is how often the prober measures group latency (e.g.
	// "300s"). Defaults to "300s", matching the AUTO group's own interval.
	ProbeInterval string `yaml:"probe_interval" mapstructure:"probe_interval" validate:"omitempty,duration"`
}

// OverrideRuleEntry configures a single OverrideRule source.
type OverrideRuleEntry struct {
	// Kind is "yaml_merge" or "script".
	Kind string `yaml:"kind" mapstructure:"kind" validate:"required,oneof=yaml_merge script"`

	// Path is the file containing the rule's document (yaml_merge) or
	// source code (script).
	Path string `yaml:"path" mapstructure:"path" validate:"required"`
}

// OverrideConfig lists the OverrideRules applied, in declared order, before
// the Runtime Injector runs.
type OverrideConfig struct {
	Rules []OverrideRuleEntry `yaml:"rules" mapstructure:"rules" validate:"omitempty,dive"`
}

// ServiceConfig configures the privileged Service binary.
type ServiceConfig struct {
	// BinaryPath is the bundled Service executable to install/compare
	// against the private copy (4.C installation state machine).
	BinaryPath string `yaml:"binary_path" mapstructure:"binary_path"`

	// AutoInstall is checked by Validate (it requires BinaryPath) but no
	// code acts on it: the control plane never installs the Service by
	// itself, and installation stays an explicit, elevation-driven user
	// action. Default: false.
	AutoInstall bool `yaml:"auto_install" mapstructure:"auto_install"`
}

// SetDevDefaults applies permissive defaults for development mode.
// Applied BEFORE validation so required fields are satisfied without a
// full config file.
func (c *StellibertyConfig) SetDevDefaults() {
	if !c.DevMode {
		return
	}

	if c.Core.ExecutablePath == "" {
		c.Core.ExecutablePath = devCoreExecutableName()
	}
	if c.LogLevel == "" {
		c.LogLevel = "debug"
	}
}

// devCoreExecutableName returns a platform-appropriate placeholder Core
// binary name used only when dev_mode is set and no path was configured.
func devCoreExecutableName() string {
	if os.PathSeparator == '\\' {
		return "core.exe"
	}
	return "core"
}

// SetDefaults applies sensible default values to the configuration.
func (c *StellibertyConfig) SetDefaults() {
	if c.Core.Mode == "" {
		c.Core.Mode = "direct"
	}

	if c.Runtime.MixedPort == 0 {
		c.Runtime.MixedPort = 7890
	}
	if c.Runtime.Mode == "" {
		c.Runtime.Mode = "rule"
	}
	if c.Runtime.FindProcessMode == "" {
		c.Runtime.FindProcessMode = "strict"
	}
	if c.Runtime.GeodataLoader == "" {
		c.Runtime.GeodataLoader = "memconservative"
	}
	if c.Runtime.LogLevel == "" {
		c.Runtime.LogLevel = "info"
	}
	if c.Runtime.KeepAlive.Interval == "" {
		c.Runtime.KeepAlive.Interval = "30s"
	}
	if c.Runtime.TUN.Stack == "" {
		c.Runtime.TUN.Stack = "mixed"
	}
	if c.Runtime.TUN.MTU == 0 {
		c.Runtime.TUN.MTU = 9000
	}
	if c.Runtime.TUN.Device == "" {
		c.Runtime.TUN.Device = "stelliberty-tun"
	}

	if c.Heartbeat.Interval == "" {
		c.Heartbeat.Interval = "30s"
	}

	if c.Subscription.ProbeInterval == "" {
		c.Subscription.ProbeInterval = "300s"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
