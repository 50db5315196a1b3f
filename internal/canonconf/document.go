// Package canonconf implements the CanonicalConfig entity and the shared
// types moving between the Subscription Parser, Override Engine, Runtime
// Injector, and Validator: an ordered-mapping YAML document representing
// the Core's configuration in its native schema.
//
// Ordering is preserved end to end via gopkg.in/yaml.v3's yaml.Node tree
// rather than decoding into a plain map, so re-serialisation never
// reorders keys a user or a YamlMerge rule placed deliberately.
package canonconf

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document wraps a parsed YAML document, preserving key order and style.
type Document struct {
	Root *yaml.Node
}

// ParseDocument parses raw YAML bytes into a Document.
func ParseDocument(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{Root: &root}, nil
}

// NewEmptyMapping returns a Document wrapping a fresh, empty mapping node.
func NewEmptyMapping() *Document {
	return &Document{Root: &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
	}}
}

// Mapping returns the document's root mapping node, unwrapping a
// DocumentNode wrapper if present.
func (d *Document) Mapping() (*yaml.Node, error) {
	n := d.Root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("empty document")
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("document root is not a mapping")
	}
	return n, nil
}

// Bytes re-serialises the document to YAML.
func (d *Document) Bytes() ([]byte, error) {
	out, err := yaml.Marshal(d.Root)
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return out, nil
}

// Clone performs a deep copy of the document so callers can mutate a
// working copy without aliasing the original (used by the Injector, which
// must not mutate the Override Engine's output in place when idempotence
// is being verified by a caller holding the prior document).
func (d *Document) Clone() *Document {
	return &Document{Root: cloneNode(d.Root)}
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Content != nil {
		clone.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			clone.Content[i] = cloneNode(c)
		}
	}
	return &clone
}

// MapGet returns the value node for key in mapping m, and whether it was
// found. m must be a MappingNode.
func MapGet(m *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}

// MapSet sets key to value in mapping m, overwriting any prior value and
// preserving the position of an existing key, or appending a new entry.
func MapSet(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, keyNode(key), value)
}

// MapDelete removes key from mapping m if present.
func MapDelete(m *yaml.Node, key string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return
		}
	}
}

// MapHas reports whether mapping m has key.
func MapHas(m *yaml.Node, key string) bool {
	_, ok := MapGet(m, key)
	return ok
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

// ScalarString builds a scalar string node.
func ScalarString(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// ScalarBool builds a scalar bool node.
func ScalarBool(b bool) *yaml.Node {
	v := "false"
	if b {
		v = "true"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
}

// ScalarInt builds a scalar integer node.
func ScalarInt(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", i)}
}

// SequenceOfStrings builds a sequence node of string scalars.
func SequenceOfStrings(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, s := range items {
		seq.Content = append(seq.Content, ScalarString(s))
	}
	return seq
}

// NewMapping builds an empty mapping node.
func NewMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// NewSequence builds an empty sequence node.
func NewSequence() *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
}

// StringValue returns the scalar string value of n, or "" if n is nil or
// not a scalar.
func StringValue(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

// YAMLNode is an alias for yaml.Node, exported so packages that only need
// to pass node pointers around (not construct or decode them) don't need
// their own import of gopkg.in/yaml.v3.
type YAMLNode = yaml.Node

// NodeContent returns the child nodes of a sequence or mapping node, or
// nil for any other kind.
func NodeContent(n *yaml.Node) []*yaml.Node {
	if n == nil {
		return nil
	}
	return n.Content
}

// StringSliceValue returns the string values of a sequence node, skipping
// any non-scalar entries.
func StringSliceValue(n *yaml.Node) []string {
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		if c.Kind == yaml.ScalarNode {
			out = append(out, c.Value)
		}
	}
	return out
}
