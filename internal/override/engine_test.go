package override

import (
	"strings"
	"testing"

	"github.com/stelliberty/stelliberty/internal/canonconf"
)

func TestApply_YAMLMerge_DeepMergesMappings(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte("mixed-port: 7890\nallow-lan: false\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	patch, err := canonconf.ParseDocument([]byte("allow-lan: true\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	rules := []canonconf.OverrideRule{
		{Kind: canonconf.OverrideRuleYAMLMerge, Document: patch},
	}
	if err := Apply(doc, rules); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !strings.Contains(string(out), "allow-lan: true") {
		t.Errorf("expected allow-lan overwritten to true, got:\n%s", out)
	}
	if !strings.Contains(string(out), "mixed-port: 7890") {
		t.Errorf("expected mixed-port preserved, got:\n%s", out)
	}
}

func TestApply_SequenceReplacedByDefault(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte("rules:\n  - MATCH,DIRECT\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	patch, err := canonconf.ParseDocument([]byte("rules:\n  - MATCH,PROXY\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}

	if err := Apply(doc, []canonconf.OverrideRule{{Kind: canonconf.OverrideRuleYAMLMerge, Document: patch}}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	out, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if strings.Contains(string(out), "DIRECT") {
		t.Errorf("expected sequence replaced wholesale, got:\n%s", out)
	}
}

func TestApply_OrderMatters(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte("mixed-port: 1\n"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	first, _ := canonconf.ParseDocument([]byte("mixed-port: 2\n"))
	second, _ := canonconf.ParseDocument([]byte("mixed-port: 3\n"))

	rules := []canonconf.OverrideRule{
		{Kind: canonconf.OverrideRuleYAMLMerge, Document: first},
		{Kind: canonconf.OverrideRuleYAMLMerge, Document: second},
	}
	if err := Apply(doc, rules); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	out, _ := doc.Bytes()
	if !strings.Contains(string(out), "mixed-port: 3") {
		t.Errorf("expected the later rule to win, got:\n%s", out)
	}
}
