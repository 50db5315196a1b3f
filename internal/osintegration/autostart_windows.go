//go:build windows

package osintegration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const scheduledTaskName = "StellibertyAutoStart"

const scheduledTaskXMLTemplate = `<?xml version="1.0" encoding="UTF-16"?>
<Task version="1.2" xmlns="http://schemas.microsoft.com/windows/2004/02/mit/task">
  <Triggers>
    <LogonTrigger>
      <Enabled>true</Enabled>
    </LogonTrigger>
  </Triggers>
  <Actions>
    <Exec>
      <Command>%s</Command>
    </Exec>
  </Actions>
</Task>
`

func setAutoStart(enabled bool, executablePath string) error {
	if !enabled {
		return exec.Command("schtasks.exe", "/delete", "/tn", scheduledTaskName, "/f").Run()
	}

	dir, err := autoStartTaskDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create task xml directory: %w", err)
	}
	xmlPath := filepath.Join(dir, scheduledTaskName+".xml")
	xml := fmt.Sprintf(scheduledTaskXMLTemplate, executablePath)
	if err := os.WriteFile(xmlPath, []byte(xml), 0o644); err != nil {
		return fmt.Errorf("write task xml: %w", err)
	}

	return exec.Command("schtasks.exe", "/create", "/tn", scheduledTaskName, "/xml", xmlPath, "/f").Run()
}

func getAutoStartStatus() (bool, error) {
	err := exec.Command("schtasks.exe", "/query", "/tn", scheduledTaskName).Run()
	return err == nil, nil
}

func autoStartTaskDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return "", fmt.Errorf("APPDATA is not set")
	}
	return filepath.Join(appData, "stelliberty", "tasks"), nil
}
