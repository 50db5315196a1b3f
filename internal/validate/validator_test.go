package validate

import (
	"testing"

	"github.com/stelliberty/stelliberty/internal/canonconf"
)

const validDoc = `
proxies:
  - name: proxy-a
    type: ss
    cipher: aes-256-gcm
    password: secret
proxy-groups:
  - name: auto
    type: url-test
    proxies:
      - proxy-a
rules:
  - MATCH,auto
`

func TestValidate_ValidDocument(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte(validDoc))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if issues := Validate(doc); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidate_MissingProxyField(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte(`
proxies:
  - name: proxy-a
    type: ss
    cipher: aes-256-gcm
`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	issues := Validate(doc)
	if len(issues) == 0 {
		t.Fatal("expected a missing-password issue")
	}
}

func TestValidate_UnknownRuleTarget(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte(`
rules:
  - MATCH,nonexistent-group
`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	issues := Validate(doc)
	if len(issues) == 0 {
		t.Fatal("expected unknown-target issue")
	}
}

func TestValidate_DetectsGroupCycle(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte(`
proxy-groups:
  - name: a
    type: select
    proxies:
      - b
  - name: b
    type: select
    proxies:
      - a
rules:
  - MATCH,a
`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	issues := Validate(doc)
	found := false
	for _, iss := range issues {
		if iss.Category == "proxy-group" && iss.Message != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cycle issue, got %v", issues)
	}
}

func TestValidate_SpecialTargetsAllowed(t *testing.T) {
	t.Parallel()

	doc, err := canonconf.ParseDocument([]byte(`
rules:
  - MATCH,DIRECT
`))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if issues := Validate(doc); len(issues) != 0 {
		t.Errorf("DIRECT should be a valid special target, got %v", issues)
	}
}
