// Package override implements the Override Engine (spec §4.F): applies
// an ordered list of OverrideRules to a CanonicalConfig document, each
// rule seeing the previous rule's output. A YamlMerge rule deep-merges a
// static patch document; a Script rule evaluates a CEL expression against
// the working document and replaces it with the expression's result.
package override

import (
	"github.com/stelliberty/stelliberty/internal/canonconf"
	"github.com/stelliberty/stelliberty/internal/ctlerr"
)

// Apply runs rules in order against doc, mutating it in place, and
// returns the first error encountered tagged with the offending rule's
// index (spec §4.F: a rule failure aborts the whole chain rather than
// skipping the bad rule, since later rules may depend on its output).
func Apply(doc *canonconf.Document, rules []canonconf.OverrideRule) error {
	for i, rule := range rules {
		switch rule.Kind {
		case canonconf.OverrideRuleYAMLMerge:
			if rule.Document == nil {
				continue
			}
			if err := ApplyYAMLMerge(doc, rule.Document); err != nil {
				return &ctlerr.OverrideMergeError{RuleIndex: i, Err: err}
			}
		case canonconf.OverrideRuleScript:
			if rule.Source == "" {
				continue
			}
			if err := EvaluateScript(doc, rule.Source); err != nil {
				return &ctlerr.OverrideScriptError{RuleIndex: i, Err: err}
			}
		}
	}
	return nil
}
