// Package config provides configuration loading for the Stelliberty control
// plane.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for stelliberty.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself,
// which Viper's built-in SetConfigName would match (same base name, no extension).
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// No config file found in any standard location.
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName("stelliberty")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: STELLIBERTY_CORE_EXECUTABLE_PATH
	viper.SetEnvPrefix("STELLIBERTY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Bind nested keys for env var support
	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a stelliberty config file
// with an explicit YAML extension (.yaml or .yml). This prevents Viper from
// matching the binary "stelliberty" (no extension) in the current directory.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".stelliberty"),
	}
	if runtime.GOOS == "windows" {
		// %ProgramData%\stelliberty (typically C:\ProgramData\stelliberty)
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, "stelliberty"))
		}
	} else {
		paths = append(paths, "/etc/stelliberty")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for stelliberty.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "stelliberty"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds all Stelliberty config keys for environment
// variable support. This enables overriding nested config values via
// environment variables.
// Example: STELLIBERTY_CORE_EXECUTABLE_PATH overrides core.executable_path
func bindNestedEnvKeys() {
	// Core config
	_ = viper.BindEnv("core.executable_path")
	_ = viper.BindEnv("core.data_dir")
	_ = viper.BindEnv("core.mode")
	// Note: core.args is an array, handled by Viper's env parsing

	// Runtime defaults
	_ = viper.BindEnv("runtime.mixed_port")
	_ = viper.BindEnv("runtime.allow_lan")
	_ = viper.BindEnv("runtime.ipv6")
	_ = viper.BindEnv("runtime.mode")
	_ = viper.BindEnv("runtime.tcp_concurrent")
	_ = viper.BindEnv("runtime.unified_delay")
	_ = viper.BindEnv("runtime.find_process_mode")
	_ = viper.BindEnv("runtime.geodata_loader")
	_ = viper.BindEnv("runtime.log_level")
	_ = viper.BindEnv("runtime.keep_alive.enabled")
	_ = viper.BindEnv("runtime.keep_alive.interval")
	_ = viper.BindEnv("runtime.tun.enabled")
	_ = viper.BindEnv("runtime.tun.stack")
	_ = viper.BindEnv("runtime.tun.device")
	_ = viper.BindEnv("runtime.tun.auto_route")
	_ = viper.BindEnv("runtime.tun.auto_redirect")
	_ = viper.BindEnv("runtime.tun.auto_detect_interface")
	_ = viper.BindEnv("runtime.tun.strict_route")
	_ = viper.BindEnv("runtime.tun.mtu")
	_ = viper.BindEnv("runtime.tun.disable_icmp_forwarding")
	_ = viper.BindEnv("runtime.dns_override.enabled")
	_ = viper.BindEnv("runtime.dns_override.content")
	_ = viper.BindEnv("runtime.external_controller.address")
	_ = viper.BindEnv("runtime.external_controller.secret")

	// Heartbeat config
	_ = viper.BindEnv("heartbeat.interval")

	// Subscription config
	_ = viper.BindEnv("subscription.source_path")
	_ = viper.BindEnv("subscription.auto_probe")
	_ = viper.BindEnv("subscription.probe_interval")

	// Note: override.rules is an array, complex to override via env.
	// Users should use the config file for override rules.

	// Service config
	_ = viper.BindEnv("service.binary_path")
	_ = viper.BindEnv("service.auto_install")

	// Top level
	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("dev_mode")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, and returns the StellibertyConfig.
// LoadConfig itself calls cfg.SetDefaults(), cfg.SetDevDefaults() and
// cfg.Validate(), so the returned config is already validated.
func LoadConfig() (*StellibertyConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
		// This allows running with pure environment variable configuration
	}

	var cfg StellibertyConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply default values for optional fields
	cfg.SetDefaults()

	// In dev mode, apply permissive defaults before validation
	cfg.SetDevDefaults()

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT apply dev defaults or validate.
// Use this when CLI flags may override DevMode before validation.
func LoadConfigRaw() (*StellibertyConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg StellibertyConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
