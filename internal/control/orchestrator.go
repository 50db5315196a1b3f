package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/ctlerr"
	"github.com/stelliberty/stelliberty/internal/ipc"
	"github.com/stelliberty/stelliberty/internal/override"
	"github.com/stelliberty/stelliberty/internal/runtimeparams"
	"github.com/stelliberty/stelliberty/internal/validate"
)

// readyCheckBudget bounds how long the Orchestrator waits for the
// Core's IPC endpoint to answer GET /version after a start (spec
// "Concrete end-to-end scenarios" #1, "Happy start": "within 2 s
// GET /version over IPC returns 2xx").
const readyCheckBudget = 2 * time.Second

// CoreController is the subset of lifecycle control the Orchestrator
// needs over the Core, satisfied directly by *supervisor.Supervisor
// (Core.Mode "direct") and by ServiceCoreController (Core.Mode
// "service", forwarding to the privileged Service over IPC instead of
// owning the child process itself).
type CoreController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() (running bool, pid int)
}

// Orchestrator wires the Subscription Parser's output, the Override
// Engine, the Runtime Injector, and the Validator into the single
// pipeline driven by ApplyOverridesRequest, then decides whether the
// resulting CanonicalConfig's digest requires pushing the new config to
// the Core under Supervisor (spec §8 P4: restart-on-digest-change,
// no-op otherwise). A running Core gets the update via a PUT /configs
// hot reload over its own IPC endpoint first, falling back to a full
// stop/start cycle only if that fails.
type Orchestrator struct {
	sup        CoreController
	configPath string
	devMode    bool
	logger     *slog.Logger

	// ipcPool/ipcClient talk to the Core's own IPC endpoint (spec §2:
	// "all runtime API traffic after the Core has started flows
	// through A regardless") — a distinct peer from sup, which only
	// controls the Core's process lifetime.
	ipcPool   *ipc.Pool
	ipcClient *ipc.Client

	mu            sync.Mutex
	currentDigest string
}

// NewOrchestrator constructs an Orchestrator. configPath is the file the
// Core reads its configuration from; the Orchestrator writes the
// assembled document there before (re)starting the Core.
func NewOrchestrator(sup CoreController, configPath string, devMode bool) *Orchestrator {
	endpoint := runtimeparams.IPCEndpointKey(devMode)
	pool := ipc.NewPool(ipc.DialEndpoint(endpoint))
	return &Orchestrator{
		sup:        sup,
		configPath: configPath,
		devMode:    devMode,
		logger:     slog.Default(),
		ipcPool:    pool,
		ipcClient:  ipc.NewClient(pool),
	}
}

// SetLogger replaces the Orchestrator's logger, used for readiness and
// hot-reload diagnostics that have no request/response to report back
// on (nothing in ApplyOverridesResponse blocks on them).
func (o *Orchestrator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		o.logger = logger
	}
}

// Close releases the Orchestrator's IPC pool to the Core. Callers
// should invoke this once the Orchestrator is no longer needed.
func (o *Orchestrator) Close() error {
	return o.ipcPool.Close()
}

// ParseSubscription runs the Subscription Parser and reports the
// resulting entity counts without touching the running Core.
func ParseSubscription(parse func(string) (*canonconf.Subscription, error), req ParseSubscriptionRequest) ParseSubscriptionResponse {
	sub, err := parse(req.Body)
	if err != nil {
		return ParseSubscriptionResponse{RequestID: req.RequestID, Error: err.Error()}
	}
	return ParseSubscriptionResponse{
		RequestID:  req.RequestID,
		ProxyCount: len(sub.Proxies),
		GroupCount: len(sub.ProxyGroups),
		RuleCount:  len(sub.Rules),
	}
}

// ApplyOverrides assembles sub into a CanonicalConfig document, runs the
// Override Engine and Runtime Injector over it, validates the result,
// and — only if the resulting digest differs from the last one this
// Orchestrator applied — writes the config and restarts the Core.
func (o *Orchestrator) ApplyOverrides(ctx context.Context, sub *canonconf.Subscription, req ApplyOverridesRequest) (ApplyOverridesResponse, error) {
	doc, err := AssembleDocument(sub)
	if err != nil {
		return ApplyOverridesResponse{}, fmt.Errorf("assemble document: %w", err)
	}

	if err := override.Apply(doc, req.Rules); err != nil {
		return ApplyOverridesResponse{}, err
	}
	if err := runtimeparams.Inject(doc, req.Params, o.devMode); err != nil {
		return ApplyOverridesResponse{}, &ctlerr.InjectSerializeError{Err: err}
	}
	if issues := validate.Validate(doc); len(issues) > 0 {
		return ApplyOverridesResponse{}, &ctlerr.ValidationFailedError{Errors: issues}
	}

	digest, err := canonconf.Digest(doc)
	if err != nil {
		return ApplyOverridesResponse{}, err
	}

	o.mu.Lock()
	unchanged := digest == o.currentDigest
	o.mu.Unlock()
	if unchanged {
		return ApplyOverridesResponse{RequestID: req.RequestID, Digest: digest, Restarted: false}, nil
	}

	b, err := doc.Bytes()
	if err != nil {
		return ApplyOverridesResponse{}, err
	}
	if err := os.WriteFile(o.configPath, b, 0o600); err != nil {
		return ApplyOverridesResponse{}, fmt.Errorf("write config: %w", err)
	}

	if running, _ := o.sup.Status(); running {
		if err := o.hotReload(ctx); err == nil {
			o.mu.Lock()
			o.currentDigest = digest
			o.mu.Unlock()
			return ApplyOverridesResponse{RequestID: req.RequestID, Digest: digest, Restarted: true}, nil
		}
		if err := o.sup.Stop(ctx); err != nil {
			return ApplyOverridesResponse{}, err
		}
	}
	if err := o.sup.Start(ctx); err != nil {
		return ApplyOverridesResponse{}, err
	}
	o.awaitReady(ctx)

	o.mu.Lock()
	o.currentDigest = digest
	o.mu.Unlock()

	return ApplyOverridesResponse{RequestID: req.RequestID, Digest: digest, Restarted: true}, nil
}

// hotReload asks an already-running Core to pick up the config file
// just written to o.configPath via a PUT /configs call over IPC,
// instead of the heavier stop-then-start cycle — the same hot reload
// the Core's own external-controller API exposes over TCP. Falls back
// to the caller restarting the Core on any error.
func (o *Orchestrator) hotReload(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, readyCheckBudget)
	defer cancel()
	_, _, err := o.ipcClient.Request(rctx, http.MethodPut, "/configs", map[string]string{"path": o.configPath})
	if err != nil {
		o.logger.Warn("hot reload via IPC failed, falling back to restart", "error", err)
	}
	return err
}

// awaitReady polls GET /version over IPC until it returns 2xx or
// readyCheckBudget elapses, logging (not failing) on timeout — the
// Core may simply be slow to bind its IPC listener this time around.
func (o *Orchestrator) awaitReady(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, readyCheckBudget)
	defer cancel()
	for {
		status, _, err := o.ipcClient.Request(rctx, http.MethodGet, "/version", nil)
		if err == nil && status >= 200 && status < 300 {
			return
		}
		select {
		case <-rctx.Done():
			o.logger.Warn("core did not answer GET /version within budget", "budget", readyCheckBudget)
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// AssembleDocument builds the CanonicalConfig document's proxies/
// proxy-groups/rules top-level keys from a parsed Subscription. Callers
// run the Override Engine, Runtime Injector, and Validator over the
// result before handing it to the Supervisor.
func AssembleDocument(sub *canonconf.Subscription) (*canonconf.Document, error) {
	doc := canonconf.NewEmptyMapping()
	m, err := doc.Mapping()
	if err != nil {
		return nil, err
	}

	proxies := canonconf.NewSequence()
	for _, p := range sub.Proxies {
		proxies.Content = append(proxies.Content, p.Root)
	}
	canonconf.MapSet(m, "proxies", proxies)

	groups := canonconf.NewSequence()
	for _, g := range sub.ProxyGroups {
		groups.Content = append(groups.Content, g.Root)
	}
	canonconf.MapSet(m, "proxy-groups", groups)

	rules := canonconf.NewSequence()
	for _, r := range sub.Rules {
		rules.Content = append(rules.Content, r.Root)
	}
	canonconf.MapSet(m, "rules", rules)

	return doc, nil
}
