// Package validate implements the Validator (spec §4.H): a read-only
// structural check of a CanonicalConfig document run before it is handed
// to the Supervisor, covering proxy field completeness, proxy-group
// reference validity, rule target resolution, and group reference cycles.
//
// The Validator never mutates the document; it only classifies it as
// valid or produces the full list of ValidationIssues found (never just
// the first one), matching the original's collect-everything behaviour.
package validate

import (
	"fmt"

	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

var validProxyTypes = map[string]bool{
	"ss": true, "ssr": true, "vmess": true, "vless": true,
	"trojan": true, "hysteria": true, "hysteria2": true, "tuic": true,
	"http": true, "https": true, "socks5": true, "snell": true,
}

var validGroupTypes = map[string]bool{
	"select": true, "url-test": true, "fallback": true,
	"load-balance": true, "relay": true,
}

var validRuleTypes = map[string]bool{
	"DOMAIN": true, "DOMAIN-SUFFIX": true, "DOMAIN-KEYWORD": true,
	"IP-CIDR": true, "IP-CIDR6": true, "GEOIP": true, "SRC-IP-CIDR": true,
	"DST-PORT": true, "SRC-PORT": true, "PROCESS-NAME": true,
	"PROCESS-PATH": true, "RULE-SET": true, "MATCH": true,
}

var specialTargets = map[string]bool{
	"DIRECT": true, "REJECT": true, "REJECT-DROP": true, "PASS": true,
}

// Validate runs the full structural check over doc and returns every
// ValidationIssue found. A nil/empty slice means the document is valid.
func Validate(doc *canonconf.Document) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue

	m, err := doc.Mapping()
	if err != nil {
		return []ctlerr.ValidationIssue{{Category: "shape", Message: err.Error()}}
	}

	proxyNames := map[string]bool{"DIRECT": true, "REJECT": true, "REJECT-DROP": true, "PASS": true}
	proxies, _ := canonconf.MapGet(m, "proxies")
	issues = append(issues, validateProxies(proxies, proxyNames)...)

	groups, _ := canonconf.MapGet(m, "proxy-groups")
	groupNames := map[string]bool{}
	groupRefs := map[string][]string{}
	issues = append(issues, validateGroups(groups, proxyNames, groupNames, groupRefs)...)

	allTargets := map[string]bool{}
	for k := range proxyNames {
		allTargets[k] = true
	}
	for k := range groupNames {
		allTargets[k] = true
	}

	rules, _ := canonconf.MapGet(m, "rules")
	issues = append(issues, validateRules(rules, allTargets)...)

	issues = append(issues, detectGroupCycles(groupRefs)...)

	return issues
}

func validateProxies(proxies *yamlNode, known map[string]bool) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue
	if proxies == nil {
		return issues
	}
	for i, p := range nodeContent(proxies) {
		name := canonconf.StringValue(fieldOf(p, "name"))
		typ := canonconf.StringValue(fieldOf(p, "type"))
		if name == "" {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy", Field: fmt.Sprintf("proxies[%d].name", i),
				Message: "proxy entry missing name",
			})
			continue
		}
		known[name] = true
		if !validProxyTypes[typ] {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy", Field: fmt.Sprintf("proxies[%d].type", i),
				Message: fmt.Sprintf("proxy %q has unknown type %q", name, typ),
			})
			continue
		}
		issues = append(issues, validateProxyFields(name, i, typ, p)...)
	}
	return issues
}

// validateProxyFields checks the per-type required fields the original
// validator enforces: ss/ssr need cipher+password, vmess/vless need uuid,
// trojan/hysteria/hysteria2 need password.
func validateProxyFields(name string, i int, typ string, p *yamlNode) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue
	require := func(field string) {
		if canonconf.StringValue(fieldOf(p, field)) == "" {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy", Field: fmt.Sprintf("proxies[%d].%s", i, field),
				Message: fmt.Sprintf("proxy %q (%s) missing required field %q", name, typ, field),
			})
		}
	}
	switch typ {
	case "ss", "ssr":
		require("cipher")
		require("password")
	case "vmess", "vless":
		require("uuid")
	case "trojan", "hysteria", "hysteria2":
		require("password")
	}
	return issues
}

func validateGroups(groups *yamlNode, proxyNames map[string]bool, groupNames map[string]bool, groupRefs map[string][]string) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue
	if groups == nil {
		return issues
	}
	for i, g := range nodeContent(groups) {
		name := canonconf.StringValue(fieldOf(g, "name"))
		typ := canonconf.StringValue(fieldOf(g, "type"))
		if name == "" {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy-group", Field: fmt.Sprintf("proxy-groups[%d].name", i),
				Message: "proxy-group entry missing name",
			})
			continue
		}
		groupNames[name] = true
		if !validGroupTypes[typ] {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy-group", Field: fmt.Sprintf("proxy-groups[%d].type", i),
				Message: fmt.Sprintf("group %q has unknown type %q", name, typ),
			})
		}
		proxiesField := fieldOf(g, "proxies")
		refs := canonconf.StringSliceValue(proxiesField)
		groupRefs[name] = refs
		for _, ref := range refs {
			if proxyNames[ref] {
				continue
			}
			// Forward reference to another group is allowed and resolved
			// once all groups are known: the second pass below flags
			// dangling references that are neither a proxy nor any
			// declared group, and detectGroupCycles checks group cycles.
		}
	}
	// Second pass: now that all group names are known, flag references
	// that resolve to neither a proxy nor a group.
	for name, refs := range groupRefs {
		for _, ref := range refs {
			if proxyNames[ref] || groupNames[ref] {
				continue
			}
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy-group", Field: fmt.Sprintf("proxy-groups[%s].proxies", name),
				Message: fmt.Sprintf("group %q references unknown proxy/group %q", name, ref),
			})
		}
	}
	return issues
}

func validateRules(rules *yamlNode, known map[string]bool) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue
	if rules == nil {
		return issues
	}
	for i, r := range nodeContent(rules) {
		line := canonconf.StringValue(r)
		if line == "" {
			continue
		}
		parts := splitRule(line)
		if len(parts) == 0 {
			continue
		}
		ruleType := parts[0]
		if !validRuleTypes[ruleType] {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "rule", Field: fmt.Sprintf("rules[%d]", i),
				Message: fmt.Sprintf("unknown rule type %q", ruleType),
			})
			continue
		}
		if ruleType == "MATCH" {
			if len(parts) < 2 {
				issues = append(issues, ctlerr.ValidationIssue{
					Category: "rule", Field: fmt.Sprintf("rules[%d]", i),
					Message: "MATCH rule missing target",
				})
				continue
			}
			checkTarget(parts[1], i, known, &issues)
			continue
		}
		if len(parts) < 3 {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "rule", Field: fmt.Sprintf("rules[%d]", i),
				Message: fmt.Sprintf("rule %q missing target", ruleType),
			})
			continue
		}
		checkTarget(parts[2], i, known, &issues)
	}
	return issues
}

func checkTarget(target string, i int, known map[string]bool, issues *[]ctlerr.ValidationIssue) {
	if specialTargets[target] || known[target] {
		return
	}
	*issues = append(*issues, ctlerr.ValidationIssue{
		Category: "rule", Field: fmt.Sprintf("rules[%d]", i),
		Message: fmt.Sprintf("rule targets unknown proxy/group %q", target),
	})
}

func splitRule(line string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == ',' {
			parts = append(parts, line[start:i])
			start = i + 1
		}
	}
	parts = append(parts, line[start:])
	return parts
}

// detectGroupCycles runs a DFS with a visited set and a recursion stack
// over the group-reference graph, reporting the first cycle found per
// connected component — the original validator's exact approach to
// catching a select group that (directly or transitively) references
// itself.
func detectGroupCycles(refs map[string][]string) []ctlerr.ValidationIssue {
	var issues []ctlerr.ValidationIssue
	visited := map[string]bool{}
	onStack := map[string]bool{}

	var dfs func(name string, path []string) bool
	dfs = func(name string, path []string) bool {
		if onStack[name] {
			issues = append(issues, ctlerr.ValidationIssue{
				Category: "proxy-group", Field: name,
				Message: fmt.Sprintf("cycle detected in group references: %v", append(path, name)),
			})
			return true
		}
		if visited[name] {
			return false
		}
		visited[name] = true
		onStack[name] = true
		for _, ref := range refs[name] {
			if _, isGroup := refs[ref]; isGroup {
				if dfs(ref, append(path, name)) {
					onStack[name] = false
					return true
				}
			}
		}
		onStack[name] = false
		return false
	}

	for name := range refs {
		if !visited[name] {
			dfs(name, nil)
		}
	}
	return issues
}

type yamlNode = canonconf.YAMLNode

func nodeContent(n *yamlNode) []*yamlNode {
	return canonconf.NodeContent(n)
}

func fieldOf(n *yamlNode, key string) *yamlNode {
	v, _ := canonconf.MapGet(n, key)
	return v
}
