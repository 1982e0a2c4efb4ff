package conftree

// merge returns a new map holding parent overlaid with child. Keys keep the
// parent's order, followed by keys only the child defines. Nested maps on
// both sides merge recursively; any other child value replaces the parent's.
// Neither input is modified.
func merge(parent, child *Map) *Map {
	out := newMap()

	for _, k := range parent.Keys() {
		pv := parent.values[k]
		cv, ok := child.values[k]
		if !ok {
			out.set(k, pv)

			continue
		}

		pm, pIsMap := pv.AsMap()
		cm, cIsMap := cv.AsMap()
		if pIsMap && cIsMap {
			out.set(k, mapValue(merge(pm, cm)))

			continue
		}

		out.set(k, cv)
	}

	for _, k := range child.Keys() {
		if _, ok := parent.values[k]; !ok {
			out.set(k, child.values[k])
		}
	}

	return out
}

// Merge overlays child on parent and returns the result as a tree named
// after the child.
func Merge(parent, child *Tree) *Tree {
	if parent == nil {
		return child
	}
	if child == nil {
		return parent
	}

	return &Tree{
		Map:    merge(parent.Map, child.Map),
		name:   child.name,
		file:   child.file,
		parent: parent,
	}
}
