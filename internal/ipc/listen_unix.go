//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// EndpointPath returns the Unix domain socket path for name (spec §6:
// "/tmp/stelliberty_dev.sock" in dev mode, "/tmp/stelliberty.sock" in
// release).
func EndpointPath(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

// ListenEndpoint listens on a Unix domain socket at path, removing any
// stale socket file left behind by a prior crashed process first, and
// restricting the socket to mode 0600 (spec §6: "Unix sockets are
// created with mode 0600").
func ListenEndpoint(path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		l.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return l, nil
}
