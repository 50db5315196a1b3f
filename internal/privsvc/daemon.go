package privsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/stelliberty/stelliberty/internal/heartbeat"
	"github.com/stelliberty/stelliberty/internal/ipc"
	"github.com/stelliberty/stelliberty/internal/supervisor"
)

// heartbeatCheckInterval is how often the Daemon's Monitor wakes to
// compare the last-observed Heartbeat against HeartbeatTimeout.
const heartbeatCheckInterval = 5 * time.Second

// Daemon is the long-running process a registered Service installation
// actually execs: it owns the Supervisor for the Core on the
// controller's behalf, accepts Commands over the IPC listener, and
// stops the Core (never itself) on heartbeat timeout (spec §4.D).
type Daemon struct {
	Version string
	Logs    *LogBuffer
	Logger  *slog.Logger

	mu      sync.Mutex
	sup     *supervisor.Supervisor
	started time.Time

	monitor *heartbeat.Monitor
}

// NewDaemon constructs a Daemon reporting version to get_version commands.
func NewDaemon(version string, logger *slog.Logger) *Daemon {
	return &Daemon{Version: version, Logs: NewLogBuffer(), Logger: logger}
}

// Serve listens on the platform IPC endpoint for devMode and dispatches
// Commands until ctx is cancelled.
func (d *Daemon) Serve(ctx context.Context, devMode bool) error {
	path := ipc.EndpointPath(ipc.EndpointName(devMode))
	l, err := ipc.ListenEndpoint(path)
	if err != nil {
		return fmt.Errorf("listen ipc endpoint: %w", err)
	}
	defer l.Close()

	d.monitor = heartbeat.NewMonitor(d.onHeartbeatTimeout)
	go d.monitor.Run(heartbeatCheckInterval)
	defer d.monitor.Stop()

	d.log("listening", "endpoint", path)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := l.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.handleConn(ctx, conn)
		}()
	}
}

func (d *Daemon) onHeartbeatTimeout() {
	d.mu.Lock()
	sup := d.sup
	d.mu.Unlock()
	if sup == nil {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), supervisor.GracefulStopTimeout+5*time.Second)
	defer cancel()
	if err := sup.Stop(stopCtx); err != nil {
		d.log("heartbeat timeout: stop core failed", "error", err)
		return
	}
	d.log("heartbeat timeout: core stopped")
}

func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		payload, err := ipc.ReadFrame(conn)
		if err != nil {
			return
		}
		var cmd Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			d.reply(conn, ErrorResponse("protocol", err.Error()))
			continue
		}

		if cmd.Kind == CommandStreamLogs {
			d.streamLogs(ctx, conn)
			return
		}

		resp := d.dispatch(ctx, cmd)
		if !d.reply(conn, resp) {
			return
		}
	}
}

func (d *Daemon) dispatch(ctx context.Context, cmd Command) Response {
	switch cmd.Kind {
	case CommandStartClash:
		return d.startClash(ctx, cmd)
	case CommandStopClash:
		return d.stopClash(ctx)
	case CommandGetStatus:
		return d.status()
	case CommandGetLogs:
		return Response{Kind: ResponseLogs, LogLines: d.Logs.Recent(cmd.Lines)}
	case CommandGetVersion:
		return Response{Kind: ResponseVersion, Version: d.Version}
	case CommandHeartbeat:
		d.monitor.Observe()
		return Response{Kind: ResponseHeartbeatAck}
	default:
		return ErrorResponse("unknown_command", string(cmd.Kind))
	}
}

func (d *Daemon) startClash(ctx context.Context, cmd Command) Response {
	args := []string{"-d", cmd.DataDir, "-f", cmd.ConfigPath}
	if cmd.ExternalController != "" {
		args = append(args, "-ext-ctl", cmd.ExternalController)
	}

	d.mu.Lock()
	d.sup = supervisor.New(cmd.CorePath, args, cmd.DataDir)
	sup := d.sup
	d.started = time.Now()
	d.mu.Unlock()

	if err := sup.Start(ctx); err != nil {
		return ErrorResponse("start_clash", err.Error())
	}
	d.log("core started", "core_path", cmd.CorePath)
	return SuccessResponse("core started")
}

func (d *Daemon) stopClash(ctx context.Context) Response {
	d.mu.Lock()
	sup := d.sup
	d.mu.Unlock()
	if sup == nil {
		return ErrorResponse("not_running", "no core instance")
	}
	if err := sup.Stop(ctx); err != nil {
		return ErrorResponse("stop_clash", err.Error())
	}
	d.log("core stopped")
	return SuccessResponse("core stopped")
}

func (d *Daemon) status() Response {
	d.mu.Lock()
	sup := d.sup
	started := d.started
	d.mu.Unlock()
	if sup == nil {
		return Response{Kind: ResponseStatus, Running: false}
	}
	running, pid := sup.Status()
	resp := Response{Kind: ResponseStatus, Running: running, PID: pid}
	if running {
		resp.Uptime = time.Since(started).Round(time.Second).String()
	}
	return resp
}

func (d *Daemon) streamLogs(ctx context.Context, conn net.Conn) {
	ch, unsubscribe := d.Logs.Subscribe()
	defer unsubscribe()

	for _, line := range d.Logs.Recent(LogBufferCapacity) {
		if !d.reply(conn, Response{Kind: ResponseLogStream, Line: line}) {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			if !d.reply(conn, Response{Kind: ResponseLogStream, Line: line}) {
				return
			}
		}
	}
}

func (d *Daemon) reply(conn net.Conn, resp Response) bool {
	payload, err := json.Marshal(resp)
	if err != nil {
		return false
	}
	return ipc.WriteFrame(conn, payload) == nil
}

func (d *Daemon) log(msg string, args ...any) {
	d.Logs.Append(fmt.Sprintf("%s %v", msg, args))
	if d.Logger != nil {
		d.Logger.Info(msg, args...)
	}
}
