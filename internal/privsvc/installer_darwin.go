//go:build darwin

package privsvc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// launchDaemonLabel and launchDaemonPlistPath match §4.C's "a launchd
// Daemon plist under /Library/LaunchDaemons".
const (
	launchDaemonLabel     = "com.stelliberty.service"
	launchDaemonPlistPath = "/Library/LaunchDaemons/com.stelliberty.service.plist"
)

const launchDaemonPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
  <key>Label</key>
  <string>%s</string>
  <key>ProgramArguments</key>
  <array>
    <string>%s</string>
  </array>
  <key>RunAtLoad</key>
  <true/>
  <key>KeepAlive</key>
  <true/>
</dict>
</plist>
`

type launchdManager struct{}

// NewInstaller constructs the platform-appropriate Installer for macOS.
func NewInstaller() *Installer {
	return newInstaller(launchdManager{})
}

func (launchdManager) register(binaryPath string) error {
	plist := fmt.Sprintf(launchDaemonPlistTemplate, launchDaemonLabel, binaryPath)
	if err := os.WriteFile(launchDaemonPlistPath, []byte(plist), 0o644); err != nil {
		return fmt.Errorf("write launchd plist: %w", err)
	}
	return exec.Command("launchctl", "load", "-w", launchDaemonPlistPath).Run()
}

func (launchdManager) unregister() error {
	_ = exec.Command("launchctl", "unload", "-w", launchDaemonPlistPath).Run()
	if err := os.Remove(launchDaemonPlistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove launchd plist: %w", err)
	}
	return nil
}

func (launchdManager) startService() error {
	return exec.Command("launchctl", "start", launchDaemonLabel).Run()
}

func (launchdManager) stopService() error {
	// "service not loaded" is not a stop failure; launchctl's own exit
	// code does not reliably distinguish it, so stop is best-effort.
	_ = exec.Command("launchctl", "stop", launchDaemonLabel).Run()
	return nil
}

func (launchdManager) privateCopyPath() (string, error) {
	dir, err := serviceDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stelliberty-service"), nil
}

// serviceDataDir returns ~/Library/Application Support/Stelliberty/service
// (spec §6 file system).
func serviceDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Library", "Application Support", "Stelliberty", "service"), nil
}
