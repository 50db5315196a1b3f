package subscription

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stelliberty/stelliberty/internal/canonconf"
)

const sampleSS = "ss://YWVzLTI1Ni1nY206c2VjcmV0@example.com:8388#node-a"

func TestParse_RawURIList_SynthesisesDefaults(t *testing.T) {
	t.Parallel()

	sub, err := Parse(sampleSS)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sub.Proxies) != 1 {
		t.Fatalf("expected 1 proxy, got %d", len(sub.Proxies))
	}
	if len(sub.ProxyGroups) != 2 {
		t.Fatalf("expected PROXY+AUTO groups, got %d", len(sub.ProxyGroups))
	}
	if len(sub.Rules) != 1 {
		t.Fatalf("expected 1 synthesised rule, got %d", len(sub.Rules))
	}
	if sub.SourceWasFullConfig {
		t.Error("raw URI list must not be flagged as a full config")
	}
}

func TestParse_Base64Body(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte(sampleSS + "\n"))
	sub, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sub.Proxies) != 1 {
		t.Fatalf("expected 1 proxy from decoded body, got %d", len(sub.Proxies))
	}
}

func TestParse_FullYAMLConfig_PreservesGroupsAndRules(t *testing.T) {
	t.Parallel()

	body := `
proxies:
  - name: node-a
    type: ss
    server: example.com
    port: 8388
    cipher: aes-256-gcm
    password: secret
proxy-groups:
  - name: Manual
    type: select
    proxies:
      - node-a
rules:
  - MATCH,Manual
`
	sub, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !sub.SourceWasFullConfig {
		t.Error("full YAML document must be flagged as a full config")
	}
	if len(sub.ProxyGroups) != 1 {
		t.Errorf("expected the document's own single group preserved, got %d", len(sub.ProxyGroups))
	}
}

func TestParse_EmptyBody_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Parse("   "); err == nil {
		t.Error("expected an error for an empty body")
	}
}

func TestLooksLikeBase64_ThresholdAndAlphabet(t *testing.T) {
	t.Parallel()

	short := "c2hvcnQ="
	if looksLikeBase64(short) {
		t.Error("short strings must not be classified as base64")
	}
	long := strings.Repeat("QQ==", 20)
	if !looksLikeBase64(long) {
		t.Error("a long base64-alphabet string should be classified as base64")
	}
	if looksLikeBase64(strings.Repeat("ss://not-base64!!", 10)) {
		t.Error("a URI list must not be classified as base64")
	}
}

func TestParseProxyURI_Shadowsocks(t *testing.T) {
	t.Parallel()

	doc, err := parseProxyURI(sampleSS)
	if err != nil {
		t.Fatalf("parseProxyURI: %v", err)
	}
	m, err := doc.Mapping()
	if err != nil {
		t.Fatalf("Mapping: %v", err)
	}
	if canonconf.StringValue(mustField(m, "server")) != "example.com" {
		t.Errorf("server not parsed correctly")
	}
	if canonconf.StringValue(mustField(m, "cipher")) != "aes-256-gcm" {
		t.Errorf("cipher not parsed correctly")
	}
}

func mustField(m *canonconf.YAMLNode, key string) *canonconf.YAMLNode {
	v, _ := canonconf.MapGet(m, key)
	return v
}
