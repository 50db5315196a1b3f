//go:build windows

package privsvc

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// windowsServiceName and windowsServiceDisplayName match §4.C:
// "Windows: StellibertyService registered via SCM, OWN_PROCESS,
// autostart."
const (
	windowsServiceName        = "StellibertyService"
	windowsServiceDisplayName = "Stelliberty Service"
)

// windowsServiceStopTimeout bounds how long scmManager.stopService waits
// for the SCM to report the service has actually stopped after
// requesting svc.Stop.
const windowsServiceStopTimeout = 10 * time.Second

type scmManager struct{}

// NewInstaller constructs the platform-appropriate Installer for Windows.
func NewInstaller() *Installer {
	return newInstaller(scmManager{})
}

func (scmManager) register(binaryPath string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	if existing, err := m.OpenService(windowsServiceName); err == nil {
		existing.Close()
		return nil
	}

	s, err := m.CreateService(windowsServiceName, binaryPath, mgr.Config{
		DisplayName: windowsServiceDisplayName,
		StartType:   mgr.StartAutomatic,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer s.Close()
	return nil
}

func (scmManager) unregister() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(windowsServiceName)
	if err != nil {
		// Already unregistered.
		return nil
	}
	defer s.Close()
	return s.Delete()
}

func (scmManager) startService() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(windowsServiceName)
	if err != nil {
		return fmt.Errorf("open service: %w", err)
	}
	defer s.Close()
	return s.Start()
}

func (scmManager) stopService() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(windowsServiceName)
	if err != nil {
		// Not registered; nothing to stop.
		return nil
	}
	defer s.Close()

	status, err := s.Control(svc.Stop)
	if err != nil {
		return nil
	}

	deadline := time.Now().Add(windowsServiceStopTimeout)
	for status.State != svc.Stopped && time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		status, err = s.Query()
		if err != nil {
			return nil
		}
	}
	return nil
}

func (scmManager) privateCopyPath() (string, error) {
	dir, err := serviceDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stelliberty-service.exe"), nil
}

// serviceDataDir returns %APPDATA%/stelliberty/service (spec §6 file
// system).
func serviceDataDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return "", fmt.Errorf("APPDATA is not set")
	}
	return filepath.Join(appData, "stelliberty", "service"), nil
}
