// Package conftree parses strata's site configuration language into
// immutable, ordered config trees.
//
// A document is a sequence of "key: value" lines. Nesting uses indentation
// in fixed-width steps; the width is detected from the first indented line
// unless given explicitly:
//
//	parent: base
//	title: My Site
//	tags: go, web
//	pagination:
//	  per_page: 10
//	  enabled: true
//
// Values are strings, integers, floats, booleans, inline lists (comma
// separated, or bracketed) and nested maps. Keys are lower-cased. The
// optional first-line "parent:" directive merges the document over a
// previously parsed named document: nested maps merge key by key, every
// other child value replaces the parent's.
package conftree

// Tree is a parsed, finalized config document. It embeds its root Map, so
// lookups such as tree.String("title") work directly on the tree.
type Tree struct {
	*Map

	name   string
	file   string
	parent *Tree
}

// Name returns the document name used for parent resolution.
func (t *Tree) Name() string { return t.name }

// File returns the source file path, if the tree was read from disk.
func (t *Tree) File() string { return t.file }

// Parent returns the tree this document inherited from, or nil.
func (t *Tree) Parent() *Tree { return t.parent }

// Root returns the root map.
func (t *Tree) Root() *Map { return t.Map }

// Chain returns the inheritance chain from t up to the topmost ancestor.
func (t *Tree) Chain() []string {
	var names []string
	for cur := t; cur != nil; cur = cur.parent {
		names = append(names, cur.name)
	}

	return names
}

// Equal reports whether two trees hold structurally equal content.
func (t *Tree) Equal(o *Tree) bool {
	if t == nil || o == nil {
		return t == o
	}

	return t.Map.Equal(o.Map)
}
