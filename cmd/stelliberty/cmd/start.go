package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/config"
	"github.com/stelliberty/stelliberty/internal/control"
	"github.com/stelliberty/stelliberty/internal/subscription"
	"github.com/stelliberty/stelliberty/internal/supervisor"
)

var devMode bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Boot the Core and apply the configured subscription",
	Long: `Start loads the control plane config, parses the configured subscription
(subscription.source_path), runs it through the Override Engine and Runtime
Injector, validates the result, and boots the Core under Supervisor
(Core.Mode "direct") or through the privileged Service (Core.Mode
"service"), per spec §4.

Examples:
  # Start with config file settings
  stelliberty start

  # Start with a specific config file
  stelliberty --config /path/to/config.yaml start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&devMode, "dev", false, "enable development mode (dev IPC endpoint, verbose logging)")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigRaw()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if devMode {
		cfg.DevMode = true
	}
	cfg.SetDevDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	if configFile := config.ConfigFileUsed(); configFile != "" {
		logger.Info("loaded config", "file", configFile)
	}

	pidPath := pidFilePath()
	if err := writePIDFile(pidPath); err != nil {
		logger.Warn("failed to write PID file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		return err
	}
	logger.Info("stelliberty stopped")
	return nil
}

// run wires the Orchestrator, boots the Core from the configured
// subscription (if any), starts the heartbeat sender for "service" mode,
// and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.StellibertyConfig, logger *slog.Logger) error {
	corePath := cfg.Core.ExecutablePath
	configPath := filepath.Join(cfg.Core.DataDir, "core-config.yaml")
	if cfg.Core.DataDir == "" {
		configPath = "stelliberty-core-config.yaml"
	}

	var controller control.CoreController
	switch cfg.Core.Mode {
	case "service":
		controller = control.NewServiceCoreController(
			cfg.DevMode, corePath, configPath, cfg.Core.DataDir,
			cfg.Runtime.ExternalController.Address,
		)
		logger.Info("core controlled via privileged service", "dev_mode", cfg.DevMode)
	default:
		controller = supervisor.New(corePath, cfg.Core.Args, cfg.Core.DataDir)
		logger.Info("core controlled directly", "executable", corePath)
	}

	orch := control.NewOrchestrator(controller, configPath, cfg.DevMode)
	orch.SetLogger(logger)
	defer orch.Close()

	rules, err := loadOverrideRules(cfg.Override.Rules)
	if err != nil {
		return fmt.Errorf("load override rules: %w", err)
	}
	params := runtimeParamsFromConfig(cfg.Runtime)

	if cfg.Subscription.SourcePath != "" {
		body, err := os.ReadFile(cfg.Subscription.SourcePath)
		if err != nil {
			return fmt.Errorf("read subscription: %w", err)
		}
		sub, err := subscription.Parse(string(body))
		if err != nil {
			return fmt.Errorf("parse subscription: %w", err)
		}
		resp, err := orch.ApplyOverrides(ctx, sub, control.ApplyOverridesRequest{
			Rules:  rules,
			Params: params,
		})
		if err != nil {
			return fmt.Errorf("apply overrides: %w", err)
		}
		logger.Info("core booted",
			"proxies", len(sub.Proxies),
			"groups", len(sub.ProxyGroups),
			"rules", len(sub.Rules),
			"digest", resp.Digest,
		)
	} else {
		logger.Info("no subscription.source_path configured; waiting for GUI to apply one")
	}

	var heartbeatStop func()
	if cfg.Core.Mode == "service" {
		heartbeatStop = startHeartbeatSender(ctx, controller, cfg.Heartbeat.Interval, logger)
	}

	<-ctx.Done()
	if heartbeatStop != nil {
		heartbeatStop()
	}

	if running, _ := controller.Status(); running {
		logger.Info("stopping core")
		if err := controller.Stop(context.Background()); err != nil {
			logger.Error("failed to stop core", "error", err)
		}
	}
	return nil
}

// startHeartbeatSender drives control.CoreController's heartbeat on
// interval (spec §4.D), only meaningful when the controller forwards to
// the privileged Service. Returns a function that stops the sender.
func startHeartbeatSender(ctx context.Context, controller control.CoreController, interval string, logger *slog.Logger) func() {
	svc, ok := controller.(*control.ServiceCoreController)
	if !ok {
		return func() {}
	}

	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		d = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := svc.Heartbeat(ctx); err != nil {
					logger.Warn("heartbeat failed", "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

// loadOverrideRules reads each configured OverrideRuleEntry's file off
// disk into a canonconf.OverrideRule, in declared order (spec §4.F: rules
// apply in order, a later rule sees the previous rule's output).
func loadOverrideRules(entries []config.OverrideRuleEntry) ([]canonconf.OverrideRule, error) {
	rules := make([]canonconf.OverrideRule, 0, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(e.Path)
		if err != nil {
			return nil, fmt.Errorf("read override rule %s: %w", e.Path, err)
		}
		switch e.Kind {
		case "yaml_merge":
			doc, err := canonconf.ParseDocument(data)
			if err != nil {
				return nil, fmt.Errorf("parse override rule %s: %w", e.Path, err)
			}
			rules = append(rules, canonconf.OverrideRule{Kind: canonconf.OverrideRuleYAMLMerge, Document: doc})
		case "script":
			rules = append(rules, canonconf.OverrideRule{Kind: canonconf.OverrideRuleScript, Source: string(data)})
		default:
			return nil, fmt.Errorf("override rule %s: unknown kind %q", e.Path, e.Kind)
		}
	}
	return rules, nil
}

// runtimeParamsFromConfig maps the configured RuntimeDefaults onto the
// Injector's domain type.
func runtimeParamsFromConfig(r config.RuntimeDefaults) canonconf.RuntimeParameters {
	return canonconf.RuntimeParameters{
		MixedPort:         r.MixedPort,
		AllowLAN:          r.AllowLAN,
		IPv6:              r.IPv6,
		Mode:              r.Mode,
		TCPConcurrent:     r.TCPConcurrent,
		UnifiedDelay:      r.UnifiedDelay,
		FindProcessMode:   r.FindProcessMode,
		GeodataLoader:     r.GeodataLoader,
		LogLevel:          r.LogLevel,
		KeepAliveEnabled:  r.KeepAlive.Enabled,
		KeepAliveInterval: r.KeepAlive.Interval,
		TUN: canonconf.TUNParameters{
			Enabled:               r.TUN.Enabled,
			Stack:                 r.TUN.Stack,
			Device:                r.TUN.Device,
			AutoRoute:             r.TUN.AutoRoute,
			AutoRedirect:          r.TUN.AutoRedirect,
			AutoDetectInterface:   r.TUN.AutoDetectInterface,
			DNSHijacks:            r.TUN.DNSHijacks,
			StrictRoute:           r.TUN.StrictRoute,
			RouteExcludeAddresses: r.TUN.RouteExcludeAddresses,
			MTU:                   r.TUN.MTU,
			DisableICMPForwarding: r.TUN.DisableICMPForwarding,
		},
		DNSOverrideEnabled:        r.DNSOverride.Enabled,
		DNSOverrideContent:        r.DNSOverride.Content,
		ExternalControllerAddress: r.ExternalController.Address,
		ExternalControllerSecret:  r.ExternalController.Secret,
	}
}

// parseLogLevel converts a string log level to slog.Level. Returns
// slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
