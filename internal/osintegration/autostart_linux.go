//go:build linux

package osintegration

import (
	"fmt"
	"os"
	"path/filepath"
)

const desktopEntryTemplate = `[Desktop Entry]
Type=Application
Name=Stelliberty
Exec=%s
X-GNOME-Autostart-enabled=true
`

func setAutoStart(enabled bool, executablePath string) error {
	path, err := autostartDesktopFilePath()
	if err != nil {
		return err
	}
	if !enabled {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove autostart entry: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create autostart directory: %w", err)
	}
	entry := fmt.Sprintf(desktopEntryTemplate, executablePath)
	return os.WriteFile(path, []byte(entry), 0o644)
}

func getAutoStartStatus() (bool, error) {
	path, err := autostartDesktopFilePath()
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func autostartDesktopFilePath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "autostart", "stelliberty.desktop"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart", "stelliberty.desktop"), nil
}
