//go:build windows

package ipc

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// DialNamedPipe returns a Dialer connecting to a Windows named pipe at
// path (e.g. `\\.\pipe\stelliberty`). go-winio's client dial has no
// SDDL of its own to configure — the security descriptor lives on the
// listener side — so this is a thin wrapper around DialPipeContext.
func DialNamedPipe(path string) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		return winio.DialPipeContext(ctx, path)
	}
}

// DialEndpoint returns a Dialer for the platform's IPC transport at path.
func DialEndpoint(path string) Dialer {
	return DialNamedPipe(path)
}
