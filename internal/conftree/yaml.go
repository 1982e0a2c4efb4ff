package conftree

import (
	"gopkg.in/yaml.v3"
)

// Node converts the map into a YAML mapping node that keeps key order.
func (m *Map) Node() *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.Keys() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			m.values[k].Node(),
		)
	}

	return node
}

// Node converts the value into a YAML node.
func (v Value) Node() *yaml.Node {
	switch v.kind {
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.String()}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v.String()}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.String()}
	case KindList:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for _, item := range v.list {
			node.Content = append(node.Content, item.Node())
		}

		return node
	case KindMap:
		return v.m.Node()
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.str}
	}
}

// MarshalYAML implements yaml.Marshaler.
func (m *Map) MarshalYAML() (interface{}, error) {
	return m.Node(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.Node(), nil
}

// MarshalYAML renders the merged tree content.
func (t *Tree) MarshalYAML() (interface{}, error) {
	return t.Map.Node(), nil
}
