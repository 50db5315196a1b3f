package subscription

import (
	"context"
	"net/http"
	"time"
)

// ProbeResult is a single proxy's measured delay against DefaultURLTestTarget.
type ProbeResult struct {
	ProxyName string
	DelayMS   int64
	Err       error
}

// Prober measures proxy latency on an interval, a supplement (§7.1) to
// the always-present parser: each tick it asks Dial for an HTTP client
// and times a GET of DefaultURLTestTarget per proxy name. No code in the
// control plane constructs or runs a Prober, and the
// Subscription.AutoProbe setting does not start one.
type Prober struct {
	Dial     func(ctx context.Context) (*http.Client, error)
	Interval time.Duration
}

// NewProber constructs a Prober with the given measurement cadence.
func NewProber(interval time.Duration, dial func(ctx context.Context) (*http.Client, error)) *Prober {
	if interval <= 0 {
		interval = DefaultURLTestIntervalSeconds * time.Second
	}
	return &Prober{Dial: dial, Interval: interval}
}

// ProbeOnce measures a single proxy's delay via the supplied client,
// returning the round trip time to DefaultURLTestTarget in milliseconds.
func ProbeOnce(ctx context.Context, client *http.Client, proxyName string) ProbeResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DefaultURLTestTarget, nil)
	if err != nil {
		return ProbeResult{ProxyName: proxyName, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return ProbeResult{ProxyName: proxyName, Err: err}
	}
	defer resp.Body.Close()
	return ProbeResult{ProxyName: proxyName, DelayMS: time.Since(start).Milliseconds()}
}

// Run loops ProbeOnce for each name in names every p.Interval until ctx is
// done, sending each result to results. Run closes results before
// returning.
func (p *Prober) Run(ctx context.Context, names []string, results chan<- ProbeResult) {
	defer close(results)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client, err := p.Dial(ctx)
			if err != nil {
				continue
			}
			for _, name := range names {
				select {
				case results <- ProbeOnce(ctx, client, name):
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
