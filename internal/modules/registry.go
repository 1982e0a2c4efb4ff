package modules

import (
	"context"
	"fmt"
	"slices"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/logging"
	"github.com/conneroisu/strata/internal/store"
)

// Registry holds the modules of one build in registration order.
type Registry struct {
	descriptors []*Descriptor
	byName      map[string]*Descriptor
	logger      logging.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Nop()
	}

	return &Registry{
		byName: make(map[string]*Descriptor),
		logger: logger.WithComponent("modules"),
	}
}

// Register adds m. Names must be unique.
func (r *Registry) Register(m Module) error {
	name := m.Name()
	if name == "" {
		return siteerrors.NewPreconditionError("", "module has no name")
	}

	if _, exists := r.byName[name]; exists {
		return siteerrors.NewPreconditionError(name, "module is already registered")
	}

	d := newDescriptor(m, len(r.descriptors))
	r.descriptors = append(r.descriptors, d)
	r.byName[name] = d

	return nil
}

// Get returns the descriptor of a registered module.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]

	return d, ok
}

// Descriptors returns every descriptor in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	return slices.Clone(r.descriptors)
}

// Graph returns each module's dependencies keyed by module name.
func (r *Registry) Graph() map[string][]string {
	graph := make(map[string][]string, len(r.descriptors))
	for _, d := range r.descriptors {
		graph[d.Name()] = d.Dependencies()
	}

	return graph
}

// Dependents returns the modules that depend directly on name, in
// registration order.
func (r *Registry) Dependents(name string) []string {
	var out []string
	for _, d := range r.descriptors {
		if slices.Contains(d.deps, name) {
			out = append(out, d.Name())
		}
	}

	return out
}

type mark int

const (
	unvisited mark = iota
	inProgress
	done
)

// Resolve returns the load order: every module after all of its
// dependencies, ties broken by registration order. Unknown dependencies are
// reported for every module before any traversal.
func (r *Registry) Resolve() ([]*Descriptor, error) {
	for _, d := range r.descriptors {
		for _, dep := range d.deps {
			if _, ok := r.byName[dep]; !ok {
				return nil, siteerrors.NewMissingDependencyError(d.Name(), dep)
			}
		}
	}

	marks := make(map[string]mark, len(r.descriptors))
	order := make([]*Descriptor, 0, len(r.descriptors))
	var path []string

	var visit func(d *Descriptor) error
	visit = func(d *Descriptor) error {
		switch marks[d.Name()] {
		case done:
			return nil
		case inProgress:
			return siteerrors.NewCircularDependencyError(cyclePath(path, d.Name()))
		}

		marks[d.Name()] = inProgress
		path = append(path, d.Name())

		for _, dep := range r.sortedDeps(d) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		marks[d.Name()] = done
		order = append(order, d)

		return nil
	}

	for _, d := range r.descriptors {
		if err := visit(d); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// sortedDeps returns d's dependencies in registration order.
func (r *Registry) sortedDeps(d *Descriptor) []*Descriptor {
	deps := make([]*Descriptor, 0, len(d.deps))
	for _, name := range d.deps {
		deps = append(deps, r.byName[name])
	}
	slices.SortFunc(deps, func(a, b *Descriptor) int { return a.index - b.index })

	return deps
}

// cyclePath cuts the DFS path at the first visit of name and reverses it so
// that each module is followed by one that depends on it. The first and
// last elements are both name.
func cyclePath(path []string, name string) []string {
	start := slices.Index(path, name)
	cycle := append(slices.Clone(path[start:]), name)
	slices.Reverse(cycle)

	return cycle
}

// ResolveAndLoad resolves the load order, declares every module as a record
// type on s and loads each module once in order. Nothing is loaded when
// resolution fails.
func (r *Registry) ResolveAndLoad(ctx context.Context, s *store.Store) ([]*Descriptor, error) {
	order, err := r.Resolve()
	if err != nil {
		return nil, err
	}

	for _, d := range r.descriptors {
		s.DeclareType(d.Name())
	}

	for _, d := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		op := logging.StartOperation(r.logger.With("module", d.Name()), "load")
		if err := d.Load(ctx, s); err != nil {
			op.EndWithError(ctx, err)

			return nil, fmt.Errorf("module %s: %w", d.Name(), err)
		}
		op.End(ctx)

		records, _ := d.RecordCount()
		r.logger.Debug(ctx, "Module loaded", "module", d.Name(), "records", records)
	}

	return order, nil
}

// Names returns the names of descriptors in the given order.
func Names(ds []*Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name()
	}

	return out
}
