package override

import (
	"github.com/stelliberty/stelliberty/internal/canonconf"
	"gopkg.in/yaml.v3"
)

// appendTag marks a sequence node in an override's merge patch as
// "concatenate with the target's existing sequence" rather than the
// default "replace it wholesale" — the convention the Override Engine
// uses to let a rule add to a list (e.g. additional rules/proxies)
// without having to restate the whole thing.
const appendTag = "!append"

// deepMerge merges patch into target in place: mapping keys merge
// key-by-key (recursing into nested mappings), scalar values overwrite,
// and sequences are replaced wholesale unless the patch's sequence node
// carries appendTag, in which case the patch's items are concatenated
// onto the target's existing sequence.
func deepMerge(target, patch *yaml.Node) *yaml.Node {
	if target == nil {
		return patch
	}
	if patch == nil {
		return target
	}

	if patch.Kind == yaml.SequenceNode && patch.Tag == appendTag {
		if target.Kind == yaml.SequenceNode {
			target.Content = append(target.Content, patch.Content...)
			return target
		}
		return patch
	}

	if patch.Kind != yaml.MappingNode || target.Kind != yaml.MappingNode {
		return patch
	}

	for i := 0; i+1 < len(patch.Content); i += 2 {
		key := patch.Content[i].Value
		value := patch.Content[i+1]
		if existing, ok := canonconf.MapGet(target, key); ok {
			canonconf.MapSet(target, key, deepMerge(existing, value))
		} else {
			canonconf.MapSet(target, key, value)
		}
	}
	return target
}

// ApplyYAMLMerge deep-merges rule into doc in place.
func ApplyYAMLMerge(doc *canonconf.Document, rule *canonconf.Document) error {
	targetMapping, err := doc.Mapping()
	if err != nil {
		return err
	}
	patchMapping, err := rule.Mapping()
	if err != nil {
		return err
	}
	deepMerge(targetMapping, patchMapping)
	return nil
}
