package runtimeparams

import (
	"strings"
	"testing"

	"github.com/stelliberty/stelliberty/internal/canonconf"
)

func TestInject_StampsCoreKeys(t *testing.T) {
	t.Parallel()

	doc := canonconf.NewEmptyMapping()
	params := canonconf.RuntimeParameters{
		MixedPort: 7891,
		AllowLAN:  true,
		Mode:      "rule",
	}

	if err := Inject(doc, params, false); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	m, err := doc.Mapping()
	if err != nil {
		t.Fatalf("Mapping: %v", err)
	}
	port, ok := canonconf.MapGet(m, "mixed-port")
	if !ok || canonconf.StringValue(port) != "7891" {
		t.Errorf("mixed-port not stamped correctly")
	}
	if !canonconf.MapHas(m, "tun") {
		t.Error("tun block not stamped")
	}
}

func TestInject_PreservesUnrelatedKeys(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte("proxies:\n  - name: a\nrules:\n  - MATCH,PROXY\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if err := Inject(doc, canonconf.RuntimeParameters{Mode: "rule"}, false); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !strings.Contains(string(out), "proxies:") || !strings.Contains(string(out), "rules:") {
		t.Errorf("Inject must not remove pass-through keys, got:\n%s", out)
	}
}

func TestInjectDNSOverride_RespectsExistingNonFakeIPMode(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte("dns:\n  enhanced-mode: redir-host\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	params := canonconf.RuntimeParameters{
		DNSOverrideEnabled: true,
		DNSOverrideContent: "enhanced-mode: fake-ip\nnameserver:\n  - 8.8.8.8\n",
	}
	if err := Inject(doc, params, false); err != nil {
		t.Fatalf("Inject: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !strings.Contains(string(out), "redir-host") {
		t.Errorf("Inject must not clobber an existing non-fake-ip dns block, got:\n%s", out)
	}
}

func TestIPCEndpointKey_DevSuffix(t *testing.T) {
	t.Parallel()

	if got := IPCEndpointKey(true); !strings.Contains(got, "_dev") {
		t.Errorf("IPCEndpointKey(true) = %q, want _dev suffix", got)
	}
	if got := IPCEndpointKey(false); strings.Contains(got, "_dev") {
		t.Errorf("IPCEndpointKey(false) = %q, should not contain _dev", got)
	}
}
