package conftree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	siteerrors "github.com/conneroisu/strata/internal/errors"
)

// Extension is the file extension of config documents.
const Extension = ".conf"

// Loader parses named config documents for one build and resolves their
// parent directives. Parents are looked up among documents already known to
// the loader, then as <dir>/<name>.conf.
type Loader struct {
	dir         string
	indentWidth int
	trees       map[string]*Tree
	loading     []string
}

// NewLoader returns a loader that reads parent documents from dir.
func NewLoader(dir string, indentWidth int) *Loader {
	return &Loader{
		dir:         dir,
		indentWidth: indentWidth,
		trees:       make(map[string]*Tree),
	}
}

// Add makes an already-parsed tree available as a parent.
func (l *Loader) Add(t *Tree) {
	l.trees[t.Name()] = t
}

// Get returns a loaded tree by name.
func (l *Loader) Get(name string) (*Tree, bool) {
	t, ok := l.trees[name]

	return t, ok
}

// Names returns the names of all loaded trees in no particular order.
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.trees))
	for name := range l.trees {
		names = append(names, name)
	}

	return names
}

// Load returns the document called name, reading <dir>/<name>.conf if it was
// not loaded before.
func (l *Loader) Load(name string) (*Tree, error) {
	if t, ok := l.trees[name]; ok {
		return t, nil
	}

	return l.LoadFile(filepath.Join(l.dir, name+Extension))
}

// LoadFile parses the file at path. The document is named after the file
// without its extension.
func (l *Loader) LoadFile(path string) (*Tree, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if t, ok := l.trees[name]; ok {
		return t, nil
	}

	for _, open := range l.loading {
		if open == name {
			chain := append(append([]string(nil), l.loading...), name)

			return nil, siteerrors.NewFormatError(path, 1,
				fmt.Sprintf("parent cycle: %s", strings.Join(chain, " -> ")))
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, siteerrors.NewIOError(path, "cannot read config document", err)
	}

	l.loading = append(l.loading, name)
	defer func() { l.loading = l.loading[:len(l.loading)-1] }()

	t, err := Parse(name, src,
		WithFile(path),
		WithIndentWidth(l.indentWidth),
		WithResolver(l.Load),
	)
	if err != nil {
		return nil, err
	}

	l.trees[name] = t

	return t, nil
}
