// Package control defines the GUI-facing request/response envelope types
// and the orchestration that wires the Subscription Parser, Override
// Engine, Runtime Injector, and Validator into the single pipeline the
// control plane runs on every subscription update or RuntimeParameters
// change (spec §4: "update subscription" and "apply overrides" are the
// two operations a GUI actually drives end to end).
package control

import "github.com/stelliberty/stelliberty/internal/canonconf"

// ParseSubscriptionRequest asks the control plane to parse a subscription
// body into the Subscription entity, without yet applying it to the
// running Core.
type ParseSubscriptionRequest struct {
	RequestID string `json:"request_id"`
	Body      string `json:"body"`
}

// ParseSubscriptionResponse carries the parsed proxy/group/rule counts
// and any parse error, mirroring the original's Dart<->Rust struct
// pairing (a request struct and a response struct per operation, both
// JSON-tagged for the GUI's own decoder).
type ParseSubscriptionResponse struct {
	RequestID   string `json:"request_id"`
	ProxyCount  int    `json:"proxy_count"`
	GroupCount  int    `json:"group_count"`
	RuleCount   int    `json:"rule_count"`
	Error       string `json:"error,omitempty"`
}

// ApplyOverridesRequest asks the control plane to run the Override
// Engine and Runtime Injector over the current Subscription and rebuild
// the CanonicalConfig, restarting the Core only if the resulting digest
// differs from the currently running one (spec §8 P4).
type ApplyOverridesRequest struct {
	RequestID string                    `json:"request_id"`
	Rules     []canonconf.OverrideRule  `json:"-"`
	Params    canonconf.RuntimeParameters `json:"-"`
}

// ApplyOverridesResponse reports the resulting digest and whether a Core
// restart was triggered.
type ApplyOverridesResponse struct {
	RequestID string `json:"request_id"`
	Digest    string `json:"digest"`
	Restarted bool   `json:"restarted"`
	Error     string `json:"error,omitempty"`
}
