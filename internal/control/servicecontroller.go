package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stelliberty/stelliberty/internal/ipc"
	"github.com/stelliberty/stelliberty/internal/privsvc"
)

// ServiceCoreController implements CoreController by forwarding Core
// lifecycle requests to the privileged Service over its IPC endpoint
// (Core.Mode "service" in spec §4.B: the Supervisor itself runs inside
// the Service, not the unprivileged control plane, when the Core needs
// a capability — TUN, low ports — the control plane cannot grant it).
type ServiceCoreController struct {
	Dial                ipc.Dialer
	CorePath            string
	ConfigPath          string
	DataDir             string
	ExternalController  string
}

// NewServiceCoreController constructs a ServiceCoreController dialing
// the Service's IPC endpoint for devMode.
func NewServiceCoreController(devMode bool, corePath, configPath, dataDir, externalController string) *ServiceCoreController {
	path := ipc.EndpointPath(ipc.EndpointName(devMode))
	return &ServiceCoreController{
		Dial:               ipc.DialEndpoint(path),
		CorePath:           corePath,
		ConfigPath:         configPath,
		DataDir:            dataDir,
		ExternalController: externalController,
	}
}

func (s *ServiceCoreController) call(ctx context.Context, cmd privsvc.Command) (privsvc.Response, error) {
	conn, err := s.Dial(ctx)
	if err != nil {
		return privsvc.Response{}, fmt.Errorf("dial service: %w", err)
	}
	defer conn.Close()

	req, err := json.Marshal(cmd)
	if err != nil {
		return privsvc.Response{}, err
	}
	if err := ipc.WriteFrame(conn, req); err != nil {
		return privsvc.Response{}, err
	}
	payload, err := ipc.ReadFrame(conn)
	if err != nil {
		return privsvc.Response{}, err
	}
	var resp privsvc.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return privsvc.Response{}, err
	}
	if resp.Kind == privsvc.ResponseError {
		return resp, fmt.Errorf("%s: %s", resp.ErrorCode, resp.ErrorMessage)
	}
	return resp, nil
}

// Start asks the Service to start the Core.
func (s *ServiceCoreController) Start(ctx context.Context) error {
	_, err := s.call(ctx, privsvc.Command{
		Kind:               privsvc.CommandStartClash,
		CorePath:           s.CorePath,
		ConfigPath:         s.ConfigPath,
		DataDir:            s.DataDir,
		ExternalController: s.ExternalController,
	})
	return err
}

// Stop asks the Service to stop the Core.
func (s *ServiceCoreController) Stop(ctx context.Context) error {
	_, err := s.call(ctx, privsvc.Command{Kind: privsvc.CommandStopClash})
	return err
}

// Heartbeat sends a single Heartbeat to the Service (spec §4.D: the
// controller side of the liveness protocol). Callers run this on
// config.HeartbeatConfig.Interval for as long as the control plane is
// attached to a "service"-mode Core.
func (s *ServiceCoreController) Heartbeat(ctx context.Context) error {
	_, err := s.call(ctx, privsvc.Command{Kind: privsvc.CommandHeartbeat})
	return err
}

// Status asks the Service for the Core's current running state.
func (s *ServiceCoreController) Status() (running bool, pid int) {
	resp, err := s.call(context.Background(), privsvc.Command{Kind: privsvc.CommandGetStatus})
	if err != nil {
		return false, 0
	}
	return resp.Running, resp.PID
}
