//go:build windows

package ipc

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSDDL grants Authenticated Users, Administrators, and SYSTEM access
// to the pipe and nothing else, matching spec §6 exactly:
// "D:(A;;GA;;;AU)(A;;GA;;;BA)(A;;GA;;;SY)".
const pipeSDDL = "D:(A;;GA;;;AU)(A;;GA;;;BA)(A;;GA;;;SY)"

// EndpointPath returns the Windows named pipe path for name (spec §6:
// `\\.\pipe\stelliberty_dev` in dev mode, `\\.\pipe\stelliberty` in
// release).
func EndpointPath(name string) string {
	return `\\.\pipe\` + name
}

// ListenEndpoint listens on a named pipe at path with the permissive
// DACL spec §6 names.
func ListenEndpoint(path string) (net.Listener, error) {
	l, err := winio.ListenPipe(path, &winio.PipeConfig{SecurityDescriptor: pipeSDDL})
	if err != nil {
		return nil, fmt.Errorf("listen named pipe: %w", err)
	}
	return l, nil
}
