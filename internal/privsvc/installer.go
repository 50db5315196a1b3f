package privsvc

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// InstallState is a state in the installation state machine (spec
// §4.C): NotInstalled -> Installing -> Installed(version) ->
// Uninstalling -> NotInstalled.
type InstallState string

const (
	StateNotInstalled InstallState = "not_installed"
	StateInstalling   InstallState = "installing"
	StateInstalled    InstallState = "installed"
	StateUninstalling InstallState = "uninstalling"
)

// FileLockRetryAttempts and FileLockRetryInterval bound the Windows
// file-lock retry loop Uninstall runs when removing the private copy
// (spec §4.C: "tolerating short Windows file-lock windows by retry
// (15 x 200 ms)").
const (
	FileLockRetryAttempts = 15
	FileLockRetryInterval = 200 * time.Millisecond
)

// serviceManager is the per-platform surface the Installer drives: the
// actual OS service-manager registration (SCM / systemd / launchd) and
// process control, implemented by installer_windows.go,
// installer_linux.go, installer_darwin.go.
type serviceManager interface {
	// register installs the service manager unit/registration pointing
	// at binaryPath.
	register(binaryPath string) error
	// unregister removes the service manager unit/registration.
	unregister() error
	// startService starts the registered service.
	startService() error
	// stopService stops the registered service, tolerating "already
	// stopped".
	stopService() error
	// privateCopyPath returns the path the installed binary is copied to.
	privateCopyPath() (string, error)
}

// Installer drives the installation state machine over a serviceManager,
// comparing the bundled binary against the private copy by size+mtime
// and reinstalling only on difference (spec §4.C).
type Installer struct {
	mgr serviceManager

	mu    sync.Mutex
	state InstallState
}

func newInstaller(mgr serviceManager) *Installer {
	return &Installer{mgr: mgr, state: StateNotInstalled}
}

// Install compares bundledPath against the private copy by size+mtime;
// if they differ (or no private copy exists), it stops any running
// service, overwrites the private copy, registers it, and restarts.
// Concurrent callers are serialised by Installer's own lock, satisfying
// "atomically with respect to concurrent callers".
func (in *Installer) Install(bundledPath string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.state = StateInstalling
	defer func() {
		if in.state == StateInstalling {
			in.state = StateNotInstalled
		}
	}()

	privatePath, err := in.mgr.privateCopyPath()
	if err != nil {
		return &ctlerr.ServiceInstallError{Reason: err.Error()}
	}

	same, err := sameBinary(bundledPath, privatePath)
	if err != nil {
		return &ctlerr.ServiceInstallError{Reason: err.Error()}
	}
	if same {
		in.state = StateInstalled
		return nil
	}

	// Best-effort stop; a prior install that never registered leaves
	// nothing to stop, which is not an install failure.
	_ = in.mgr.stopService()

	if err := copyFile(bundledPath, privatePath); err != nil {
		return &ctlerr.ServiceInstallError{Reason: fmt.Sprintf("copy binary: %v", err)}
	}
	if err := in.mgr.register(privatePath); err != nil {
		return &ctlerr.ServiceInstallError{Reason: fmt.Sprintf("register service: %v", err)}
	}
	if err := in.mgr.startService(); err != nil {
		return &ctlerr.ServiceInstallError{Reason: fmt.Sprintf("start service: %v", err)}
	}

	in.state = StateInstalled
	return nil
}

// Uninstall stops and unregisters the service, then removes the private
// copy, retrying past short Windows file-lock windows.
func (in *Installer) Uninstall() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.state = StateUninstalling

	if err := in.mgr.stopService(); err != nil {
		return &ctlerr.ServiceUninstallError{Reason: fmt.Sprintf("stop service: %v", err)}
	}
	if err := in.mgr.unregister(); err != nil {
		return &ctlerr.ServiceUninstallError{Reason: fmt.Sprintf("unregister service: %v", err)}
	}

	privatePath, err := in.mgr.privateCopyPath()
	if err != nil {
		return &ctlerr.ServiceUninstallError{Reason: err.Error()}
	}

	var removeErr error
	for attempt := 0; attempt < FileLockRetryAttempts; attempt++ {
		removeErr = os.Remove(privatePath)
		if removeErr == nil || os.IsNotExist(removeErr) {
			removeErr = nil
			break
		}
		time.Sleep(FileLockRetryInterval)
	}
	if removeErr != nil {
		return &ctlerr.ServiceUninstallError{Reason: fmt.Sprintf("remove private copy: %v", removeErr)}
	}

	in.state = StateNotInstalled
	return nil
}

// Start starts the already-registered service (spec §6 CLI "start"),
// without touching the private copy or registration.
func (in *Installer) Start() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.mgr.startService(); err != nil {
		return &ctlerr.ServiceInstallError{Reason: fmt.Sprintf("start service: %v", err)}
	}
	return nil
}

// Stop stops the registered service (spec §6 CLI "stop") without
// uninstalling it.
func (in *Installer) Stop() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if err := in.mgr.stopService(); err != nil {
		return &ctlerr.ServiceUninstallError{Reason: fmt.Sprintf("stop service: %v", err)}
	}
	return nil
}

// State reports the Installer's current InstallState.
func (in *Installer) State() InstallState {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// sameBinary reports whether a and b have identical size and mtime,
// the cheap comparison the original installer uses instead of hashing
// the whole binary on every Install call.
func sameBinary(a, b string) (bool, error) {
	sa, err := os.Stat(a)
	if err != nil {
		return false, fmt.Errorf("stat bundled binary: %w", err)
	}
	sb, err := os.Stat(b)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat private copy: %w", err)
	}
	return sa.Size() == sb.Size() && sa.ModTime().Equal(sb.ModTime()), nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(parentDir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o755); err != nil {
		return err
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
