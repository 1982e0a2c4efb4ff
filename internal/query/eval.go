package query

import (
	"iter"

	"github.com/conneroisu/strata/internal/types"
)

// Source supplies the records a query is evaluated against, in insertion
// order.
type Source interface {
	All() iter.Seq[*types.Record]
}

// Evaluate runs the query over src and returns an immutable snapshot in
// src's insertion order.
func (q *Query) Evaluate(src Source) *Result {
	var records []*types.Record
	for rec := range src.All() {
		records = append(records, rec)
	}

	var selected map[*types.Record]bool
	for i, c := range q.Clauses {
		matched := c.selectFrom(records)
		if i == 0 {
			selected = matched

			continue
		}

		selected = combine(q.Ops[i-1], selected, matched)
	}

	out := make([]*types.Record, 0, len(selected))
	for _, rec := range records {
		if selected[rec] {
			out = append(out, rec)
		}
	}

	return &Result{records: out}
}

func combine(op SetOp, left, right map[*types.Record]bool) map[*types.Record]bool {
	out := make(map[*types.Record]bool, len(left)+len(right))

	switch op {
	case Intersect:
		for rec := range left {
			if right[rec] {
				out[rec] = true
			}
		}
	case Difference:
		for rec := range left {
			if !right[rec] {
				out[rec] = true
			}
		}
	default:
		for rec := range left {
			out[rec] = true
		}
		for rec := range right {
			out[rec] = true
		}
	}

	return out
}

func (c Clause) selectFrom(records []*types.Record) map[*types.Record]bool {
	out := make(map[*types.Record]bool)
	for _, rec := range records {
		if c.Matches(rec) {
			out[rec] = true
		}
	}

	return out
}

// Matches reports whether rec has the clause's type and satisfies every
// predicate.
func (c Clause) Matches(rec *types.Record) bool {
	if rec.Module != c.Type {
		return false
	}

	for _, p := range c.Predicates {
		if !p.Matches(rec) {
			return false
		}
	}

	return true
}

// Matches tests the predicate against the record's field, read as a set of
// scalar strings. A missing field is the empty set.
func (p Predicate) Matches(rec *types.Record) bool {
	have := make(map[string]bool)
	if v, ok := rec.Field(p.Field); ok {
		for _, s := range v.Set() {
			have[s] = true
		}
	}

	for _, want := range p.Values {
		if have[want] == p.Negate {
			return false
		}
	}

	return true
}
