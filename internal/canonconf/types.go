package canonconf

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// CanonicalConfig is the Core's native configuration document, produced by
// the Subscription Parser (4.E) and the Override Engine (4.F), then stamped
// by the Runtime Injector (4.G) immediately before being handed to the
// Supervisor for the Core's next boot.
//
// It always carries its Digest: the control plane compares digests to
// decide whether a config change requires a Core restart (spec §4.D, §8
// P4: restart-on-change, no-op on unchanged digest).
type CanonicalConfig struct {
	Document *Document
	Digest   string
}

// NewCanonicalConfig wraps doc and computes its digest.
func NewCanonicalConfig(doc *Document) (*CanonicalConfig, error) {
	digest, err := Digest(doc)
	if err != nil {
		return nil, err
	}
	return &CanonicalConfig{Document: doc, Digest: digest}, nil
}

// Digest computes the config_digest: an xxhash64 of the document's
// canonical YAML bytes, hex-encoded. Two documents that serialise to the
// same bytes (including key order, since ordering is preserved end to end)
// produce the same digest; control.Orchestrator treats an unchanged digest
// as a no-op rather than a restart.
func Digest(doc *Document) (string, error) {
	b, err := doc.Bytes()
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := xxhash.Sum64(b)
	return fmt.Sprintf("%016x", sum), nil
}

// Subscription is the parsed result of the Subscription Parser (4.E): a
// set of Proxy entries plus the ProxyGroups/Rules synthesised around them
// (spec §4.E.3: default PROXY select + AUTO url-test + single MATCH rule
// when the source did not already carry its own groups/rules).
type Subscription struct {
	// Proxies is the list of parsed proxy entries, each a mapping node
	// with at minimum `name` and `type` keys plus the per-scheme fields
	// (server/port/cipher/password/uuid/...).
	Proxies []*Document

	// ProxyGroups is the list of proxy-group mapping nodes (select,
	// url-test, fallback, load-balance, relay).
	ProxyGroups []*Document

	// Rules is the ordered list of rule scalar nodes such as
	// "MATCH,PROXY" (logical-type
	// classifier rules terminating in DIRECT/REJECT/REJECT-DROP/PASS or a
	// group/proxy name).
	Rules []*Document

	// SourceWasFullConfig records whether the subscription source was
	// already a full Clash-style YAML document (carrying its own
	// `proxy-groups:`/`rules:` blocks) rather than a bare proxy list —
	// when true the Parser does not synthesise defaults over it.
	SourceWasFullConfig bool
}

// OverrideRuleKind discriminates an OverrideRule's processing path.
type OverrideRuleKind string

const (
	// OverrideRuleYAMLMerge deep-merges Document into the working
	// CanonicalConfig: mappings merge key by key, sequences are replaced
	// wholesale unless the rule explicitly requests append semantics.
	OverrideRuleYAMLMerge OverrideRuleKind = "yaml_merge"

	// OverrideRuleScript evaluates Source as a CEL program against the
	// working document (encoded as a JSON-like dynamic value) and expects
	// back a transformed value, re-encoded into the document.
	OverrideRuleScript OverrideRuleKind = "script"
)

// OverrideRule is a single entry in the Override Engine's ordered rule
// list (4.F). Rules apply in declared order; a later rule sees the
// previous rule's output.
type OverrideRule struct {
	Kind OverrideRuleKind

	// Document holds the merge patch when Kind is OverrideRuleYAMLMerge.
	Document *Document

	// Source holds the CEL program text when Kind is OverrideRuleScript.
	Source string
}

// RuntimeParameters is the GUI-facing domain type mirroring
// config.RuntimeDefaults (spec §3): the set of fields the Runtime Injector
// (4.G) stamps into the CanonicalConfig's top-level keys immediately
// before Core boot, overriding whatever the Subscription Parser/Override
// Engine produced for those specific keys only — every other key in the
// document (proxies, proxy-groups, rules, and any override-added key) is
// passed through untouched.
type RuntimeParameters struct {
	MixedPort       int
	AllowLAN        bool
	IPv6            bool
	Mode            string
	TCPConcurrent   bool
	UnifiedDelay    bool
	FindProcessMode string
	GeodataLoader   string
	LogLevel        string

	KeepAliveEnabled  bool
	KeepAliveInterval string

	TUN TUNParameters

	DNSOverrideEnabled bool
	DNSOverrideContent string

	ExternalControllerAddress string
	ExternalControllerSecret  string
}

// TUNParameters mirrors config.TUNDefaults as the runtime domain type the
// Injector consumes.
type TUNParameters struct {
	Enabled               bool
	Stack                 string
	Device                string
	AutoRoute             bool
	AutoRedirect          bool
	AutoDetectInterface   bool
	DNSHijacks            []string
	StrictRoute           bool
	RouteExcludeAddresses []string
	MTU                   int
	DisableICMPForwarding bool
}
