// Package store holds the content records of one build generation and
// keeps them indexed by id, URL and source path.
package store

import (
	"iter"
	"slices"
	"strconv"
	"sync"

	siteerrors "github.com/conneroisu/strata/internal/errors"
	"github.com/conneroisu/strata/internal/query"
	"github.com/conneroisu/strata/internal/types"
)

// Store is an append-only, multi-indexed record set. A new Store is built
// for every generation; records are never updated or removed.
type Store struct {
	mu sync.RWMutex

	types     map[string]bool
	typeOrder []string

	byID    map[string]*types.Record
	byURL   map[string]*types.Record
	byPath  map[string]*types.Record
	all     []*types.Record
	dynamic []*types.Record
}

// Stats reports index sizes.
type Stats struct {
	Types   int
	IDs     int
	URLs    int
	Paths   int
	All     int
	Dynamic int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		types:  make(map[string]bool),
		byID:   make(map[string]*types.Record),
		byURL:  make(map[string]*types.Record),
		byPath: make(map[string]*types.Record),
	}
}

// DeclareType makes name a valid record type for registration and queries.
func (s *Store) DeclareType(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.types[name] {
		s.types[name] = true
		s.typeOrder = append(s.typeOrder, name)
	}
}

// HasType reports whether name was declared. It makes the store a
// query.TypeSet.
func (s *Store) HasType(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.types[name]
}

// Types returns the declared types in declaration order.
func (s *Store) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.typeOrder)
}

// Register adds rec to every applicable index. The id, path and URL are
// checked in that order before anything is inserted, so a rejected record
// leaves the store unchanged. The record's URL and Path are replaced by
// their normalized forms on success.
func (s *Store) Register(rec *types.Record) error {
	if rec == nil {
		return siteerrors.NewPreconditionError("", "cannot register a nil record")
	}

	url, err := NormalizeURL(rec.URL)
	if err != nil {
		return siteerrors.NewPreconditionError(rec.String(), "invalid record URL").WithCause(err)
	}

	relPath, err := NormalizePath(rec.Path)
	if err != nil {
		return siteerrors.NewPreconditionError(rec.String(), "invalid record path").WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.types[rec.Module] {
		return siteerrors.NewPreconditionError(rec.String(),
			"record belongs to undeclared module "+strconv.Quote(rec.Module))
	}

	if rec.ID != "" {
		if existing, ok := s.byID[rec.ID]; ok {
			return siteerrors.NewDuplicateIDError(rec.ID, existing.String())
		}
	}

	if relPath != "" {
		if existing, ok := s.byPath[relPath]; ok {
			return siteerrors.NewDuplicatePathError(relPath, existing.String())
		}
	}

	if existing, ok := s.byURL[url]; ok {
		return siteerrors.NewDuplicateURLError(url, existing.String())
	}

	rec.URL = url
	rec.Path = relPath

	if rec.ID != "" {
		s.byID[rec.ID] = rec
	}
	if relPath != "" {
		s.byPath[relPath] = rec
	}
	s.byURL[url] = rec
	s.all = append(s.all, rec)
	if rec.Dynamic {
		s.dynamic = append(s.dynamic, rec)
	}

	return nil
}

// GetByID returns the record with id if it belongs to typ. An empty typ
// matches any module.
func (s *Store) GetByID(typ, id string) (*types.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok || (typ != "" && rec.Module != typ) {
		return nil, false
	}

	return rec, true
}

// GetByURL returns the record served at url.
func (s *Store) GetByURL(url string) (*types.Record, bool) {
	normalized, err := NormalizeURL(url)
	if err != nil {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byURL[normalized]

	return rec, ok
}

// GetByPath returns the record read from the relative source path.
func (s *Store) GetByPath(relPath string) (*types.Record, bool) {
	normalized, err := NormalizePath(relPath)
	if err != nil || normalized == "" {
		return nil, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byPath[normalized]

	return rec, ok
}

// Filter parses text against the declared types and evaluates it over the
// current records.
func (s *Store) Filter(text string) (*query.Result, error) {
	q, err := query.Parse(text, s)
	if err != nil {
		return nil, err
	}

	return q.Evaluate(s), nil
}

// All iterates over every record in insertion order. Each iteration sees
// the records registered when it starts.
func (s *Store) All() iter.Seq[*types.Record] {
	return s.seq(func() []*types.Record { return s.all })
}

// Dynamic iterates over the dynamic records in insertion order.
func (s *Store) Dynamic() iter.Seq[*types.Record] {
	return s.seq(func() []*types.Record { return s.dynamic })
}

// ByModule iterates over the records owned by module.
func (s *Store) ByModule(module string) iter.Seq[*types.Record] {
	return func(yield func(*types.Record) bool) {
		for rec := range s.All() {
			if rec.Module == module && !yield(rec) {
				return
			}
		}
	}
}

func (s *Store) seq(view func() []*types.Record) iter.Seq[*types.Record] {
	return func(yield func(*types.Record) bool) {
		s.mu.RLock()
		snapshot := slices.Clone(view())
		s.mu.RUnlock()

		for _, rec := range snapshot {
			if !yield(rec) {
				return
			}
		}
	}
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.all)
}

// Stats returns the current index sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Types:   len(s.typeOrder),
		IDs:     len(s.byID),
		URLs:    len(s.byURL),
		Paths:   len(s.byPath),
		All:     len(s.all),
		Dynamic: len(s.dynamic),
	}
}
