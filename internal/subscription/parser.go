// Package subscription implements the Subscription Parser (spec §4.E):
// turns a subscription body of unknown shape (raw proxy-URI list, a
// Base64-wrapped version of the same, or a full Clash-style YAML
// document) into a canonconf.Subscription, synthesising a default
// PROXY select group, an AUTO url-test group, and a single catch-all
// MATCH rule when the source did not already carry its own groups/rules.
package subscription

import (
	"strings"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// DefaultURLTestTarget is the probe URL the synthesised AUTO group uses,
// matching the Core's own convention of a 204-response endpoint so a
// successful probe never downloads a response body.
const DefaultURLTestTarget = "http://www.gstatic.com/generate_204"

// DefaultURLTestIntervalSeconds is the synthesised AUTO group's probe
// cadence in seconds.
const DefaultURLTestIntervalSeconds = 300

// Parse classifies body and returns the resulting Subscription. body may
// be a raw proxy-URI list (one per line), a Base64 encoding of the same,
// or a full Clash-style YAML document.
func Parse(body string) (*canonconf.Subscription, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &ctlerr.ConfigParseError{Err: errEmptyBody}
	}

	if looksLikeYAMLConfig(body) {
		return parseFullConfig(body)
	}

	text := body
	if looksLikeBase64(compactWhitespace(body)) {
		decoded, err := decodeBase64Body(compactWhitespace(body))
		if err != nil {
			return nil, &ctlerr.ConfigParseError{Err: err}
		}
		text = string(decoded)
	}

	return parseURIList(text)
}

var errEmptyBody = emptyBodyError{}

type emptyBodyError struct{}

func (emptyBodyError) Error() string { return "subscription body is empty" }

// looksLikeYAMLConfig requires both a `proxies:` key and at least one of
// `proxy-groups:`/`rules:` to treat the body as an already-complete
// configuration document rather than a bare proxy list that merely
// happens to parse as YAML (a single `vmess://...` line does not).
func looksLikeYAMLConfig(body string) bool {
	hasProxies := strings.Contains(body, "proxies:")
	hasGroupsOrRules := strings.Contains(body, "proxy-groups:") || strings.Contains(body, "rules:")
	return hasProxies && hasGroupsOrRules
}

func compactWhitespace(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseFullConfig(body string) (*canonconf.Subscription, error) {
	doc, err := canonconf.ParseDocument([]byte(body))
	if err != nil {
		return nil, &ctlerr.ConfigParseError{Err: err}
	}
	m, err := doc.Mapping()
	if err != nil {
		return nil, &ctlerr.ConfigParseError{Err: err}
	}

	sub := &canonconf.Subscription{SourceWasFullConfig: true}
	if proxies, ok := canonconf.MapGet(m, "proxies"); ok {
		for _, p := range canonconf.NodeContent(proxies) {
			sub.Proxies = append(sub.Proxies, &canonconf.Document{Root: p})
		}
	}
	if groups, ok := canonconf.MapGet(m, "proxy-groups"); ok {
		for _, g := range canonconf.NodeContent(groups) {
			sub.ProxyGroups = append(sub.ProxyGroups, &canonconf.Document{Root: g})
		}
	}
	if rules, ok := canonconf.MapGet(m, "rules"); ok {
		for _, r := range canonconf.NodeContent(rules) {
			sub.Rules = append(sub.Rules, &canonconf.Document{Root: r})
		}
	}
	return sub, nil
}

// parseURIList parses one proxy URI per non-empty line and synthesises
// the default group/rule set around the result.
func parseURIList(text string) (*canonconf.Subscription, error) {
	sub := &canonconf.Subscription{}
	var names []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		doc, err := parseProxyURI(line)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		sub.Proxies = append(sub.Proxies, doc)
		if m, merr := doc.Mapping(); merr == nil {
			if name, ok := canonconf.MapGet(m, "name"); ok {
				names = append(names, canonconf.StringValue(name))
			}
		}
	}
	if len(sub.Proxies) == 0 {
		return nil, &ctlerr.ConfigParseError{Err: errNoProxiesParsed}
	}

	sub.ProxyGroups = append(sub.ProxyGroups, buildSelectGroup("PROXY", names))
	sub.ProxyGroups = append(sub.ProxyGroups, buildAutoGroup("AUTO", names))
	sub.Rules = append(sub.Rules, buildMatchRule("PROXY"))
	return sub, nil
}

var errNoProxiesParsed = emptyProxiesError{}

type emptyProxiesError struct{}

func (emptyProxiesError) Error() string { return "no proxies parsed from subscription body" }

func buildSelectGroup(name string, members []string) *canonconf.Document {
	doc := canonconf.NewEmptyMapping()
	m, _ := doc.Mapping()
	canonconf.MapSet(m, "name", canonconf.ScalarString(name))
	canonconf.MapSet(m, "type", canonconf.ScalarString("select"))
	canonconf.MapSet(m, "proxies", canonconf.SequenceOfStrings(members))
	return doc
}

func buildAutoGroup(name string, members []string) *canonconf.Document {
	doc := canonconf.NewEmptyMapping()
	m, _ := doc.Mapping()
	canonconf.MapSet(m, "name", canonconf.ScalarString(name))
	canonconf.MapSet(m, "type", canonconf.ScalarString("url-test"))
	canonconf.MapSet(m, "proxies", canonconf.SequenceOfStrings(members))
	canonconf.MapSet(m, "url", canonconf.ScalarString(DefaultURLTestTarget))
	canonconf.MapSet(m, "interval", canonconf.ScalarInt(DefaultURLTestIntervalSeconds))
	return doc
}

func buildMatchRule(target string) *canonconf.Document {
	return &canonconf.Document{Root: canonconf.ScalarString("MATCH," + target)}
}
