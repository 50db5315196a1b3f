//go:build windows

package privsvc

import (
	"context"

	"golang.org/x/sys/windows/svc"
)

// RunAsWindowsService reports whether the current process was started by
// the SCM rather than interactively, the Windows analogue of
// runningUnderSystemd for Linux.
func RunAsWindowsService() (bool, error) {
	return svc.IsWindowsService()
}

// windowsServiceHandler adapts Daemon.Serve to the svc.Handler interface
// the SCM expects a registered OWN_PROCESS service to implement.
type windowsServiceHandler struct {
	daemon  *Daemon
	devMode bool
}

// ServeWindowsService blocks running d under the SCM's service control
// protocol until the SCM requests a stop.
func ServeWindowsService(d *Daemon, devMode bool) error {
	return svc.Run(windowsServiceName, &windowsServiceHandler{daemon: d, devMode: devMode})
}

func (h *windowsServiceHandler) Execute(args []string, r <-chan svc.ChangeRequest, s chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	s <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.daemon.Serve(ctx, h.devMode) }()

	s <- svc.Status{State: svc.Running, Accepts: accepted}

	for {
		select {
		case err := <-done:
			s <- svc.Status{State: svc.StopPending}
			_ = err
			return false, 0
		case req := <-r:
			switch req.Cmd {
			case svc.Interrogate:
				s <- req.CurrentStatus
			case svc.Stop, svc.Shutdown:
				s <- svc.Status{State: svc.StopPending}
				cancel()
				<-done
				return false, 0
			}
		}
	}
}
