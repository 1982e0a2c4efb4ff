// Package modules registers content modules, orders them by dependency and
// runs their one-shot loads against a build's store.
package modules

import (
	"context"
	"time"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/store"
	"github.com/conneroisu/strata/internal/types"
)

// Module is a named unit of content-producing logic. Load registers the
// module's records into the store; the module's name is the record type.
type Module interface {
	Name() string
	Dependencies() []string
	Load(ctx context.Context, s *store.Store) error
}

// SchemaProvider is implemented by modules that declare field kinds.
type SchemaProvider interface {
	Schema() types.Schema
}

// LoadFunc is the load step of a module built with New.
type LoadFunc func(ctx context.Context, s *store.Store) error

type funcModule struct {
	name string
	deps []string
	load LoadFunc
}

// New returns a Module from its parts. A nil load registers nothing.
func New(name string, deps []string, load LoadFunc) Module {
	return &funcModule{name: name, deps: append([]string(nil), deps...), load: load}
}

func (m *funcModule) Name() string           { return m.name }
func (m *funcModule) Dependencies() []string { return append([]string(nil), m.deps...) }

func (m *funcModule) Load(ctx context.Context, s *store.Store) error {
	if m.load == nil {
		return nil
	}

	return m.load(ctx, s)
}

// State is the load state of a registered module.
type State int

const (
	NotLoaded State = iota
	Loaded
)

// String returns the state name.
func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}

	return "not loaded"
}

// Descriptor is a registered module with its load bookkeeping. The state
// moves from NotLoaded to Loaded at most once.
type Descriptor struct {
	module   Module
	deps     []string
	index    int
	state    State
	records  int
	duration time.Duration
}

func newDescriptor(m Module, index int) *Descriptor {
	seen := make(map[string]bool)
	var deps []string
	for _, d := range m.Dependencies() {
		if !seen[d] {
			seen[d] = true
			deps = append(deps, d)
		}
	}

	return &Descriptor{module: m, deps: deps, index: index}
}

// Name returns the module name.
func (d *Descriptor) Name() string { return d.module.Name() }

// Dependencies returns the distinct dependency names as declared.
func (d *Descriptor) Dependencies() []string { return append([]string(nil), d.deps...) }

// Module returns the underlying module.
func (d *Descriptor) Module() Module { return d.module }

// State returns the load state.
func (d *Descriptor) State() State { return d.state }

// Loaded reports whether Load has completed.
func (d *Descriptor) Loaded() bool { return d.state == Loaded }

// Schema returns the module's declared field kinds, or nil.
func (d *Descriptor) Schema() types.Schema {
	if sp, ok := d.module.(SchemaProvider); ok {
		return sp.Schema()
	}

	return nil
}

// RecordCount returns how many records the load registered.
func (d *Descriptor) RecordCount() (int, error) {
	if d.state != Loaded {
		return 0, siteerrors.NewPreconditionError(d.Name(), "record count of a module that is not loaded")
	}

	return d.records, nil
}

// Duration returns how long the load took.
func (d *Descriptor) Duration() (time.Duration, error) {
	if d.state != Loaded {
		return 0, siteerrors.NewPreconditionError(d.Name(), "load duration of a module that is not loaded")
	}

	return d.duration, nil
}

// Load runs the module's load once. A failed load leaves the descriptor
// NotLoaded.
func (d *Descriptor) Load(ctx context.Context, s *store.Store) error {
	if d.state == Loaded {
		return siteerrors.NewPreconditionError(d.Name(), "module is already loaded")
	}

	start := time.Now()
	before := s.Len()

	if err := d.module.Load(ctx, s); err != nil {
		return err
	}

	d.records = s.Len() - before
	d.duration = time.Since(start)
	d.state = Loaded

	return nil
}
