//go:build !windows

package ipc

import (
	"context"
	"net"
)

// DialUnixSocket returns a Dialer connecting to a Unix domain socket at
// path — the IPC transport for every non-Windows platform.
func DialUnixSocket(path string) Dialer {
	var d net.Dialer
	return func(ctx context.Context) (net.Conn, error) {
		return d.DialContext(ctx, "unix", path)
	}
}

// DialEndpoint returns a Dialer for the platform's IPC transport at path.
func DialEndpoint(path string) Dialer {
	return DialUnixSocket(path)
}
