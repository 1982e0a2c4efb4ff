package query

import (
	"iter"

	"github.com/conneroisu/strata/internal/types"
)

// Result is an immutable, duplicate-free selection of records in store
// insertion order. Later registrations do not affect it.
type Result struct {
	records []*types.Record
}

// Len returns the number of records.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}

	return len(r.records)
}

// Empty reports whether nothing matched.
func (r *Result) Empty() bool { return r.Len() == 0 }

// At returns the i-th record, or nil when i is out of range.
func (r *Result) At(i int) *types.Record {
	if i < 0 || i >= r.Len() {
		return nil
	}

	return r.records[i]
}

// Records returns a copy of the matched records.
func (r *Result) Records() []*types.Record {
	out := make([]*types.Record, r.Len())
	if r != nil {
		copy(out, r.records)
	}

	return out
}

// All iterates over the matched records.
func (r *Result) All() iter.Seq[*types.Record] {
	return func(yield func(*types.Record) bool) {
		if r == nil {
			return
		}
		for _, rec := range r.records {
			if !yield(rec) {
				return
			}
		}
	}
}

// Page returns the records of the 1-based page of size perPage.
func (r *Result) Page(page, perPage int) []*types.Record {
	if perPage <= 0 || page < 1 {
		return nil
	}

	start := (page - 1) * perPage
	if start >= r.Len() {
		return nil
	}

	end := min(start+perPage, r.Len())

	return append([]*types.Record(nil), r.records[start:end]...)
}

// Pages returns how many pages of size perPage the result fills, at least 1.
func (r *Result) Pages(perPage int) int {
	if perPage <= 0 || r.Len() == 0 {
		return 1
	}

	return (r.Len() + perPage - 1) / perPage
}
