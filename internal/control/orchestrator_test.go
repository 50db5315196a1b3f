package control

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.uber.org/goleak"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/subscription"
	"github.com/stelliberty/stelliberty/internal/supervisor"
)

func sleepCommand() (string, []string) {
	if os.PathSeparator == '\\' {
		return "cmd", []string{"/C", "timeout", "/T", "30"}
	}
	return "sleep", []string{"30"}
}

const sampleSubscriptionBody = "ss://YWVzLTI1Ni1nY206cGFzc3dvcmQ@example.com:8388#node-a\n"

func TestParseSubscription_ReportsCounts(t *testing.T) {
	defer goleak.VerifyNone(t)

	resp := ParseSubscription(subscription.Parse, ParseSubscriptionRequest{RequestID: "r1", Body: sampleSubscriptionBody})
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.ProxyCount != 1 {
		t.Errorf("ProxyCount = %d, want 1", resp.ProxyCount)
	}
	if resp.GroupCount != 2 {
		t.Errorf("GroupCount = %d, want 2 (PROXY select + AUTO url-test)", resp.GroupCount)
	}
	if resp.RuleCount != 1 {
		t.Errorf("RuleCount = %d, want 1 (MATCH,PROXY)", resp.RuleCount)
	}
}

func TestParseSubscription_EmptyBodyReportsError(t *testing.T) {
	resp := ParseSubscription(subscription.Parse, ParseSubscriptionRequest{RequestID: "r2", Body: "   "})
	if resp.Error == "" {
		t.Fatal("expected an error for an empty subscription body")
	}
}

func TestOrchestrator_ApplyOverrides_RestartsOnDigestChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	bin, args := sleepCommand()
	if _, err := exec.LookPath(bin); err != nil {
		t.Skip("sleep binary not available")
	}

	sub, err := subscription.Parse(sampleSubscriptionBody)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	sup := supervisor.New(bin, args, dir)
	orch := NewOrchestrator(sup, configPath, true)
	defer orch.Close()

	params := canonconf.RuntimeParameters{MixedPort: 7890, Mode: "rule"}

	resp1, err := orch.ApplyOverrides(context.Background(), sub, ApplyOverridesRequest{RequestID: "a1", Params: params})
	if err != nil {
		t.Fatalf("ApplyOverrides: %v", err)
	}
	if !resp1.Restarted {
		t.Error("expected first ApplyOverrides to restart (digest was unset)")
	}
	t.Cleanup(func() { _ = sup.Stop(context.Background()) })

	resp2, err := orch.ApplyOverrides(context.Background(), sub, ApplyOverridesRequest{RequestID: "a2", Params: params})
	if err != nil {
		t.Fatalf("second ApplyOverrides: %v", err)
	}
	if resp2.Restarted {
		t.Error("expected second ApplyOverrides with identical input to be a no-op")
	}
	if resp2.Digest != resp1.Digest {
		t.Errorf("digest changed across identical ApplyOverrides calls: %s vs %s", resp1.Digest, resp2.Digest)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}
}

func TestAssembleDocument_EmptySubscriptionSerialises(t *testing.T) {
	sub := &canonconf.Subscription{}
	doc, err := AssembleDocument(sub)
	if err != nil {
		t.Fatalf("AssembleDocument: %v", err)
	}
	b, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(b) == 0 {
		t.Error("expected a non-empty serialised document even for an empty subscription")
	}
}
